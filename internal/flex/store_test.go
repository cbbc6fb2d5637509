package flex

import (
	"testing"
	"time"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

func TestGetSetDel(t *testing.T) {
	s := New()
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected missing key")
	}
	s.Set("k", value.Str("hi"))
	v, ok := s.Get("k")
	if !ok || value.AsString(v) != "hi" {
		t.Fatalf("got %+v, %v", v, ok)
	}
	if !s.Del("k") {
		t.Fatalf("expected Del to report existing key")
	}
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected key gone after Del")
	}
}

func TestTTLLifecycle(t *testing.T) {
	s := New()
	s.Set("k", value.Str("v"))
	if ttl := s.TTL("k"); ttl != -1 {
		t.Fatalf("expected -1 for no expiry, got %d", ttl)
	}
	if ttl := s.TTL("missing"); ttl != -2 {
		t.Fatalf("expected -2 for missing key, got %d", ttl)
	}
	s.SetEx("k", value.Str("v"), 1)
	ttl := s.TTL("k")
	if ttl < 0 || ttl > 1 {
		t.Fatalf("expected ttl in [0,1], got %d", ttl)
	}
}

func TestTTLExpiry(t *testing.T) {
	s := New()
	s.SetEx("k", value.Str("v"), 0)
	time.Sleep(5 * time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Fatalf("expected expired key to read as missing")
	}
	if ttl := s.TTL("k"); ttl != -2 {
		t.Fatalf("expected -2 after expiry, got %d", ttl)
	}
}

func TestIncrDecr(t *testing.T) {
	s := New()
	n, err := s.Incr("n", 1)
	if err != nil || n != 1 {
		t.Fatalf("expected default-then-incr to 1, got %d, %v", n, err)
	}
	n, err = s.Incr("n", -1)
	if err != nil || n != 0 {
		t.Fatalf("expected decr to 0, got %d, %v", n, err)
	}
	s.Set("n", value.Str("abc"))
	if _, err := s.Incr("n", 1); err == nil {
		t.Fatalf("expected TypeMismatch incrementing non-numeric string")
	}
}

func TestListOps(t *testing.T) {
	s := New()
	if _, err := s.RPush("l", value.Str("a"), value.Str("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.LPush("l", value.Str("z")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng, err := s.LRange("l", 0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"z", "a", "b"}
	if len(rng) != len(want) {
		t.Fatalf("want %v got %v", want, rng)
	}
	for i, v := range rng {
		if value.AsString(v) != want[i] {
			t.Fatalf("position %d: want %s got %s", i, want[i], value.AsString(v))
		}
	}
	popped, err := s.LPop("l", 1)
	if err != nil || len(popped) != 1 || value.AsString(popped[0]) != "z" {
		t.Fatalf("unexpected lpop result: %+v, %v", popped, err)
	}
}

func TestSetOps(t *testing.T) {
	s := New()
	added, err := s.SAdd("s", "a", "b", "a")
	if err != nil || added != 2 {
		t.Fatalf("expected 2 added, got %d, %v", added, err)
	}
	members, err := s.SMembers("s")
	if err != nil || len(members) != 2 {
		t.Fatalf("expected 2 members, got %v, %v", members, err)
	}
}

func TestHashOps(t *testing.T) {
	s := New()
	created, err := s.HSet("h", "f1", "v1")
	if err != nil || !created {
		t.Fatalf("expected field created, got %v, %v", created, err)
	}
	created, err = s.HSet("h", "f1", "v2")
	if err != nil || created {
		t.Fatalf("expected field overwritten not created, got %v, %v", created, err)
	}
	v, found, err := s.HGet("h", "f1")
	if err != nil || !found || v != "v2" {
		t.Fatalf("expected v2, got %q, %v, %v", v, found, err)
	}
}

func TestZSetOps(t *testing.T) {
	s := New()
	if err := s.ZAdd("z", "bob", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ZAdd("z", "alice", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	members, err := s.ZRange("z", 0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 || members[0].Member != "alice" {
		t.Fatalf("expected alice first, got %+v", members)
	}
	score, found, err := s.ZScore("z", "bob")
	if err != nil || !found || score != 2 {
		t.Fatalf("expected score 2, got %v, %v, %v", score, found, err)
	}
}

func TestJSONSetGetDottedAndArrow(t *testing.T) {
	s := New()
	if err := s.JSONSet("doc", "", `{"user":{"settings":{"theme":"dark"}}}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, found, err := s.JSONGet("doc", "user->settings->theme")
	if err != nil || !found || got != `"dark"` {
		t.Fatalf("expected dark via arrow path, got %q, %v, %v", got, found, err)
	}
	got, found, err = s.JSONGet("doc", "$.user.settings.theme")
	if err != nil || !found || got != `"dark"` {
		t.Fatalf("expected dark via dollar path, got %q, %v, %v", got, found, err)
	}
}

func TestJSONSetCreatesIntermediatePaths(t *testing.T) {
	s := New()
	if err := s.JSONSet("doc", "a.b.c", `1`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, found, err := s.JSONGet("doc", "$.a.b.c")
	if err != nil || !found || got != "1" {
		t.Fatalf("expected 1, got %q, %v, %v", got, found, err)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	s := New()
	s.SetEx("k1", value.Str("v"), 0)
	s.Set("k2", value.Str("v"))
	time.Sleep(5 * time.Millisecond)
	n := s.Sweep()
	if n != 1 {
		t.Fatalf("expected to sweep 1 key, swept %d", n)
	}
	if _, ok := s.Get("k2"); !ok {
		t.Fatalf("expected k2 to survive sweep")
	}
}
