package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/UnSetSoft/ToriDB/internal/session"
)

func TestFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "9999")
	t.Setenv("DB_DATA_DIR", "/tmp/toridb")
	t.Setenv("DB_WORKERS", "12")
	t.Setenv("DB_NAME", "mydb")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.Password != "s3cret" || c.Host != "127.0.0.1" || c.Port != 9999 ||
		c.DataDir != "/tmp/toridb" || c.Workers != 12 || c.DBName != "mydb" {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Addr() != "127.0.0.1:9999" {
		t.Fatalf("unexpected Addr: %s", c.Addr())
	}
}

func TestFromEnvKeepsDefaultsWhenUnset(t *testing.T) {
	d := Default()
	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c != d {
		t.Fatalf("expected FromEnv with no env vars set to equal Default, got %+v vs %+v", c, d)
	}
}

func TestFromEnvRejectsInvalidPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for invalid DB_PORT")
	}
}

func TestLoadACLFileRegistersUsers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acl.yaml")
	contents := "users:\n" +
		"  - name: alice\n" +
		"    password: pw\n" +
		"    rules: [\"+GET\", \"+SET\"]\n" +
		"  - name: bob\n" +
		"    password: pw2\n" +
		"    rules: [\"+@all\", \"-DEL\"]\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write acl file: %v", err)
	}

	acl := session.NewACL("secret")
	if err := LoadACLFile(path, acl); err != nil {
		t.Fatalf("LoadACLFile: %v", err)
	}

	alice, ok := acl.GetUser("alice")
	if !ok || !alice.Allows("GET") || alice.Allows("DEL") {
		t.Fatalf("unexpected alice rules: %+v", alice)
	}
	bob, ok := acl.GetUser("bob")
	if !ok || !bob.Allows("GET") || bob.Allows("DEL") {
		t.Fatalf("unexpected bob rules: %+v", bob)
	}
}

func TestLoadACLFileEmptyPathIsNoop(t *testing.T) {
	acl := session.NewACL("secret")
	if err := LoadACLFile("", acl); err != nil {
		t.Fatalf("expected no-op for empty path, got %v", err)
	}
	if _, ok := acl.GetUser("alice"); ok {
		t.Fatalf("expected no users registered")
	}
}

