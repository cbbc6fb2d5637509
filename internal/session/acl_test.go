package session

import "testing"

func TestDefaultUserAllowsAll(t *testing.T) {
	acl := NewACL("secret")
	u, ok := acl.Authenticate("default", "secret")
	if !ok {
		t.Fatalf("expected default user to authenticate")
	}
	if !u.Allows("GET") || !u.Allows("select") {
		t.Fatalf("expected @all rule to allow any command")
	}
}

func TestAuthenticateWrongPasswordDenied(t *testing.T) {
	acl := NewACL("secret")
	if _, ok := acl.Authenticate("default", "wrong"); ok {
		t.Fatalf("expected wrong password to fail")
	}
	if _, ok := acl.Authenticate("ghost", "whatever"); ok {
		t.Fatalf("expected unknown user to fail")
	}
}

func TestRuleOrderingLaterOverrides(t *testing.T) {
	rules := []Rule{
		{Allow: true, Name: "@all"},
		{Allow: false, Name: "DEL"},
	}
	u := &User{Name: "limited", Rules: rules}
	if !u.Allows("GET") {
		t.Fatalf("expected GET allowed via @all")
	}
	if u.Allows("DEL") {
		t.Fatalf("expected DEL denied by later rule")
	}
}

func TestDatabaseScopedRule(t *testing.T) {
	u := &User{Name: "scoped", Rules: []Rule{
		{Allow: true, Name: "REPORTING"},
	}}
	if !u.AllowsDatabase("reporting") {
		t.Fatalf("expected case-insensitive db rule match")
	}
	if u.AllowsDatabase("other") {
		t.Fatalf("expected no db access without a matching rule")
	}
}

func TestAllRuleGrantsEveryDatabase(t *testing.T) {
	u := &User{Name: "super", Rules: []Rule{{Allow: true, Name: "@all"}}}
	if !u.AllowsDatabase("anything") {
		t.Fatalf("expected @all to grant database access like it grants command access")
	}
	u.Rules = append(u.Rules, Rule{Allow: false, Name: "secret"})
	if u.AllowsDatabase("secret") {
		t.Fatalf("expected a later -dbname rule to override @all")
	}
}

func TestSetUserGetUserDelUser(t *testing.T) {
	acl := NewACL("secret")
	acl.SetUser("alice", "pw", []Rule{{Allow: true, Name: "GET"}})
	u, ok := acl.GetUser("alice")
	if !ok || !u.Allows("GET") || u.Allows("SET") {
		t.Fatalf("unexpected rule evaluation for alice: %+v", u)
	}
	if !acl.DelUser("alice") {
		t.Fatalf("expected DelUser to report existing user")
	}
	if _, ok := acl.GetUser("alice"); ok {
		t.Fatalf("expected alice removed")
	}
}

func TestACLSnapshotRoundTrip(t *testing.T) {
	acl := NewACL("secret")
	acl.SetUser("bob", "pw", []Rule{{Allow: true, Name: "@all"}, {Allow: false, Name: "DEL"}})

	raw, err := acl.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	acl2 := NewACL("other")
	if err := acl2.LoadSnapshot(raw); err != nil {
		t.Fatalf("load: %v", err)
	}
	u, ok := acl2.GetUser("bob")
	if !ok {
		t.Fatalf("expected bob restored")
	}
	if u.Allows("DEL") || !u.Allows("GET") {
		t.Fatalf("unexpected restored rule evaluation: %+v", u.Rules)
	}
	if _, ok := acl2.GetUser("default"); ok {
		t.Fatalf("expected LoadSnapshot to replace the whole directory, not merge")
	}
}
