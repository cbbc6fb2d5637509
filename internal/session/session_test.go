package session

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	s := New()
	if s.State() != StateUnauth {
		t.Fatalf("expected initial state Unauth")
	}
	if err := s.Use("data"); err == nil {
		t.Fatalf("expected USE before auth to fail")
	}
	s.Authenticate(&User{Name: "default"})
	if s.State() != StateAuth {
		t.Fatalf("expected Auth after Authenticate")
	}
	if err := s.Use("data"); err != nil {
		t.Fatalf("USE after auth: %v", err)
	}
	if s.CurrentDatabase() != "data" {
		t.Fatalf("expected current db 'data'")
	}
}

func TestTransactionStagingAndCommit(t *testing.T) {
	s := New()
	s.Authenticate(&User{Name: "default"})
	if err := s.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !s.InTransaction() {
		t.Fatalf("expected InTransaction true")
	}
	s.Stage("DECR", []string{"b"})
	s.Stage("INCR", []string{"other"})
	buf := s.Commit()
	if len(buf) != 2 {
		t.Fatalf("expected 2 staged tuples, got %d", len(buf))
	}
	if s.InTransaction() {
		t.Fatalf("expected Commit to leave the transaction")
	}
	if s.State() != StateAuth {
		t.Fatalf("expected Auth after commit")
	}
}

func TestRollbackDiscardsBuffer(t *testing.T) {
	s := New()
	s.Authenticate(&User{Name: "default"})
	if err := s.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	s.Stage("SET", []string{"b", "0"})
	s.Rollback()
	if s.InTransaction() {
		t.Fatalf("expected rollback to leave the transaction")
	}
	buf := s.Commit() // committing right after rollback should see an empty buffer
	if len(buf) != 0 {
		t.Fatalf("expected empty buffer after rollback, got %d", len(buf))
	}
}

func TestBeginTwiceFails(t *testing.T) {
	s := New()
	s.Authenticate(&User{Name: "default"})
	if err := s.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.Begin(); err == nil {
		t.Fatalf("expected second BEGIN to fail")
	}
}

func TestAddrAndKillFlag(t *testing.T) {
	s := New()
	if s.Addr() != "" {
		t.Fatalf("expected empty addr by default")
	}
	s.SetAddr("127.0.0.1:51000")
	if s.Addr() != "127.0.0.1:51000" {
		t.Fatalf("expected SetAddr to stick, got %q", s.Addr())
	}
	if s.Killed() {
		t.Fatalf("expected not killed by default")
	}
	s.MarkKilled()
	if !s.Killed() {
		t.Fatalf("expected Killed true after MarkKilled")
	}
}
