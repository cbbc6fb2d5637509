package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// knownCommands disambiguates a "+name" ACL rule: if name is a known
// command verb (or the @all wildcard) the rule grants/denies that
// command; otherwise it grants access to the database named name. The
// rule grammar reuses "+x" for both meanings, so the command-name set is
// the only thing that tells them apart.
var knownCommands = map[string]bool{
	"AUTH": true, "USE": true, "PING": true, "QUIT": true,
	"GET": true, "SET": true, "SETEX": true, "TTL": true, "DEL": true, "INCR": true, "DECR": true,
	"LPUSH": true, "RPUSH": true, "LPOP": true, "RPOP": true, "LRANGE": true,
	"SADD": true, "SMEMBERS": true,
	"HSET": true, "HGET": true, "HGETALL": true,
	"ZADD": true, "ZRANGE": true, "ZSCORE": true,
	"JSON.SET": true, "JSON.GET": true,
	"CREATE": true, "ALTER": true, "INSERT": true, "SELECT": true, "UPDATE": true, "DELETE": true, "SEARCH": true,
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true,
	"SAVE": true, "REWRITEAOF": true, "INFO": true, "ACL": true, "CLIENT": true,
}

// Rule is one `+cmd`/`-cmd`/`+@all`/`-@all`/`+dbname` ACL rule entry.
type Rule struct {
	Allow bool
	Name  string // uppercased command verb, "@all", or a database name
}

// ParseRule parses one wire-form rule token such as "+get", "-@all", or
// "+mydb".
func ParseRule(tok string) (Rule, error) {
	if len(tok) < 2 || (tok[0] != '+' && tok[0] != '-') {
		return Rule{}, fmt.Errorf("acl: malformed rule %q", tok)
	}
	name := tok[1:]
	if name != "@all" {
		name = strings.ToUpper(name)
	}
	return Rule{Allow: tok[0] == '+', Name: name}, nil
}

func (r Rule) String() string {
	sign := "-"
	if r.Allow {
		sign = "+"
	}
	return sign + r.Name
}

// HashPassword renders a password into its stored form. Real credential
// verification (constant-time comparison, a slow KDF) is an external
// collaborator per this engine's scope; this hook exists so one can be
// substituted without touching the rule-evaluation logic below.
func HashPassword(pass string) string {
	sum := sha256.Sum256([]byte(pass))
	return hex.EncodeToString(sum[:])
}

// User is one ACL principal: a password hash plus an ordered rule list.
type User struct {
	Name         string
	PasswordHash string
	Rules        []Rule
}

// Allows evaluates whether cmd (an uppercased verb) is permitted: start
// deny, apply rules in order, @all matches every command, later rules
// override earlier ones.
func (u *User) Allows(cmd string) bool {
	cmd = strings.ToUpper(cmd)
	allowed := false
	for _, r := range u.Rules {
		if !knownCommands[r.Name] && r.Name != "@all" {
			continue // a database-scope rule, not a command rule
		}
		if r.Name == "@all" || r.Name == cmd {
			allowed = r.Allow
		}
	}
	return allowed
}

// AllowsDatabase evaluates whether u may bind current_database to dbname
// via USE. "@all" grants every database, matching its "reserved expansion
// matching every command name" treatment in command authorization;
// command-name rules never count as database rules; absence of any
// matching rule denies.
func (u *User) AllowsDatabase(dbname string) bool {
	allowed := false
	for _, r := range u.Rules {
		if knownCommands[r.Name] {
			continue
		}
		if r.Name == "@all" || strings.EqualFold(r.Name, dbname) {
			allowed = r.Allow
		}
	}
	return allowed
}

// ACL is the process-wide, single-writer/many-reader-guarded user
// directory.
type ACL struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewACL creates an ACL seeded with the "default" user carrying the
// given password and full @all/@all access, the principal a fresh
// process boots with before any ACL SETUSER calls.
func NewACL(defaultPassword string) *ACL {
	a := &ACL{users: make(map[string]*User)}
	a.users["default"] = &User{
		Name:         "default",
		PasswordHash: HashPassword(defaultPassword),
		Rules:        []Rule{{Allow: true, Name: "@all"}},
	}
	return a
}

// SetUser creates or replaces a user's password and rules (ACL SETUSER).
func (a *ACL) SetUser(name, password string, rules []Rule) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[name] = &User{Name: name, PasswordHash: HashPassword(password), Rules: rules}
}

// GetUser returns the named user, or ok=false.
func (a *ACL) GetUser(name string) (*User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.users[name]
	return u, ok
}

// DelUser removes a user, reporting whether it existed.
func (a *ACL) DelUser(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[name]; !ok {
		return false
	}
	delete(a.users, name)
	return true
}

// List returns every user name, for ACL LIST.
func (a *ACL) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.users))
	for n := range a.users {
		out = append(out, n)
	}
	return out
}

// Authenticate verifies a username/password pair, returning the user on
// success. Unknown users and wrong passwords are indistinguishable to the
// caller (both report ok=false), so a failed AUTH never reveals whether
// the username itself exists.
func (a *ACL) Authenticate(name, password string) (*User, bool) {
	u, ok := a.GetUser(name)
	if !ok || u.PasswordHash != HashPassword(password) {
		return nil, false
	}
	return u, true
}

// wireUser/wireACL are the JSON shapes persisted inside a snapshot's
// "acl" field.
type wireUser struct {
	Name         string   `json:"name"`
	PasswordHash string   `json:"password_hash"`
	Rules        []string `json:"rules"`
}

// MarshalSnapshot renders the ACL directory into the snapshot's "acl"
// payload.
func (a *ACL) MarshalSnapshot() (json.RawMessage, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	users := make([]wireUser, 0, len(a.users))
	for _, u := range a.users {
		rules := make([]string, 0, len(u.Rules))
		for _, r := range u.Rules {
			rules = append(rules, r.String())
		}
		users = append(users, wireUser{Name: u.Name, PasswordHash: u.PasswordHash, Rules: rules})
	}
	return json.Marshal(users)
}

// LoadSnapshot replaces the ACL directory with the contents of a
// snapshot's "acl" payload (as produced by MarshalSnapshot). A nil/empty
// payload leaves the ACL untouched (the fresh "default" user from
// NewACL survives when no snapshot has ever been taken).
func (a *ACL) LoadSnapshot(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var users []wireUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return fmt.Errorf("acl: parse snapshot: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users = make(map[string]*User, len(users))
	for _, wu := range users {
		rules := make([]Rule, 0, len(wu.Rules))
		for _, tok := range wu.Rules {
			r, err := ParseRule(tok)
			if err != nil {
				return err
			}
			rules = append(rules, r)
		}
		a.users[wu.Name] = &User{Name: wu.Name, PasswordHash: wu.PasswordHash, Rules: rules}
	}
	return nil
}
