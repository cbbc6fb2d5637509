// Package session implements the per-connection command-execution state
// machine (Unauth → Auth → Auth+Tx), its ACL principal, and the
// transaction staging buffer that BEGIN/COMMIT/ROLLBACK operate on.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is one of the three states a Session may be in.
type State int

const (
	StateUnauth State = iota
	StateAuth
	StateAuthTx
)

func (s State) String() string {
	switch s {
	case StateUnauth:
		return "unauth"
	case StateAuth:
		return "auth"
	case StateAuthTx:
		return "auth+tx"
	default:
		return "unknown"
	}
}

// Tuple is one staged write command: its verb plus arguments, exactly as
// it will be replayed or logged.
type Tuple struct {
	Verb string
	Args []string
}

// Session is one connection's authentication state, bound database, and
// (while in a transaction) staged command buffer.
type Session struct {
	ID          uuid.UUID
	connectedAt time.Time

	mu        sync.Mutex
	state     State
	user      *User
	currentDB string
	txBuffer  []Tuple
	addr      string
	killed    bool
}

// New creates a fresh, unauthenticated session.
func New() *Session {
	return &Session{ID: uuid.New(), state: StateUnauth, connectedAt: time.Now()}
}

// Age reports how long this session has been connected, for CLIENT LIST.
func (s *Session) Age() time.Duration {
	return time.Since(s.connectedAt)
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the authenticated principal, or nil if Unauth.
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// CurrentDatabase returns the bound database name, or "" if none is
// bound yet.
func (s *Session) CurrentDatabase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDB
}

// Authenticate transitions Unauth → Auth on a successful AUTH.
func (s *Session) Authenticate(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.state = StateAuth
}

// Use binds current_database, requiring at least Auth.
func (s *Session) Use(dbname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnauth {
		return fmt.Errorf("session: USE requires authentication")
	}
	s.currentDB = dbname
	return nil
}

// Begin transitions Auth → Auth+Tx, requiring not already in a
// transaction.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnauth {
		return fmt.Errorf("session: BEGIN requires authentication")
	}
	if s.state == StateAuthTx {
		return fmt.Errorf("session: already in a transaction")
	}
	s.state = StateAuthTx
	s.txBuffer = nil
	return nil
}

// InTransaction reports whether the session is currently staging writes.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAuthTx
}

// Stage appends a request tuple to the transaction buffer. Callers must
// check InTransaction first; Stage panics outside a transaction since
// that would indicate a dispatcher bug, not a client error.
func (s *Session) Stage(verb string, args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthTx {
		panic("session: Stage called outside a transaction")
	}
	s.txBuffer = append(s.txBuffer, Tuple{Verb: verb, Args: args})
}

// Commit returns the staged buffer and transitions back to Auth,
// regardless of whether the caller goes on to apply it successfully —
// COMMIT's semantics (apply-then-possibly-roll-back) live one layer up in
// the dispatcher, which owns the database write lock this call doesn't
// need.
func (s *Session) Commit() []Tuple {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.txBuffer
	s.txBuffer = nil
	s.state = StateAuth
	return buf
}

// Rollback discards the staged buffer and returns to Auth.
func (s *Session) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txBuffer = nil
	s.state = StateAuth
}

// Abort discards the staged buffer and returns to Auth, for a mid-tx
// parse error that aborts the transaction outright.
func (s *Session) Abort() {
	s.Rollback()
}

// SetAddr records the connection's remote address, for CLIENT LIST.
func (s *Session) SetAddr(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addr = addr
}

// Addr returns the connection's remote address.
func (s *Session) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// MarkKilled requests termination of this session after its current
// command finishes, per CLIENT KILL's cooperative semantics — it does not
// interrupt a command already in flight.
func (s *Session) MarkKilled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = true
}

// Killed reports whether MarkKilled has been called.
func (s *Session) Killed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}
