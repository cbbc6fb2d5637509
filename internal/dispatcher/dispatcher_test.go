package dispatcher

import (
	"testing"

	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/session"
)

// authedSession returns a session past AUTH and bound via USE to db, which
// must already be reachable through d.Registry.Get under its own name.
func authedSession(t *testing.T, d *Dispatcher, db *registry.Database) *session.Session {
	t.Helper()
	sess := session.New()
	if reply := d.Dispatch(sess, []string{"AUTH", "default", "secret"}); reply.Kind == resp.KindError {
		t.Fatalf("AUTH failed: %s", reply.ErrMsg)
	}
	if _, err := d.Registry.Get(db.Name); err != nil {
		t.Fatalf("registry.Get: %v", err)
	}
	if reply := d.Dispatch(sess, []string{"USE", db.Name}); reply.Kind == resp.KindError {
		t.Fatalf("USE failed: %s", reply.ErrMsg)
	}
	return sess
}

func TestDispatchKVRoundtrip(t *testing.T) {
	dir := t.TempDir()
	acl := session.NewACL("secret")
	reg := registry.New(dir, 1)
	d := New(reg, acl)
	db, err := reg.Get("data")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	sess := authedSession(t, d, db)

	if reply := d.Dispatch(sess, []string{"SET", "k", "1"}); reply.Kind != resp.KindSimple || reply.Simple != "OK" {
		t.Fatalf("SET: %+v", reply)
	}
	reply := d.Dispatch(sess, []string{"GET", "k"})
	if reply.Kind != resp.KindBulk || string(reply.Bulk) != "1" {
		t.Fatalf("GET: %+v", reply)
	}
	if reply := d.Dispatch(sess, []string{"DEL", "k"}); reply.Kind != resp.KindInteger || reply.Integer != 1 {
		t.Fatalf("DEL: %+v", reply)
	}
	if reply := d.Dispatch(sess, []string{"GET", "k"}); reply.Kind != resp.KindNullBulk {
		t.Fatalf("expected null after DEL, got %+v", reply)
	}
}

func TestDispatchIncrDecrWrongType(t *testing.T) {
	dir := t.TempDir()
	acl := session.NewACL("secret")
	reg := registry.New(dir, 1)
	d := New(reg, acl)
	db, _ := reg.Get("data")
	sess := authedSession(t, d, db)

	d.Dispatch(sess, []string{"SET", "n", "hello"})
	reply := d.Dispatch(sess, []string{"INCR", "n"})
	if reply.Kind != resp.KindError || reply.ErrKind != resp.ErrTypeMismatch {
		t.Fatalf("expected wrongtype error, got %+v", reply)
	}

	d.Dispatch(sess, []string{"SET", "c", "10"})
	reply = d.Dispatch(sess, []string{"INCR", "c"})
	if reply.Kind != resp.KindInteger || reply.Integer != 11 {
		t.Fatalf("INCR: %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"DECR", "c"})
	if reply.Kind != resp.KindInteger || reply.Integer != 10 {
		t.Fatalf("DECR: %+v", reply)
	}
}

func TestDispatchSQLCreateInsertSelect(t *testing.T) {
	dir := t.TempDir()
	acl := session.NewACL("secret")
	reg := registry.New(dir, 1)
	d := New(reg, acl)
	db, _ := reg.Get("data")
	sess := authedSession(t, d, db)

	reply := d.Dispatch(sess, []string{"CREATE", "TABLE", "users", "id:int:pk", "name:string"})
	if reply.Kind != resp.KindSimple {
		t.Fatalf("CREATE TABLE: %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"INSERT", "users", "1", "alice"})
	if reply.Kind != resp.KindInteger || reply.Integer != 1 {
		t.Fatalf("INSERT: %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"INSERT", "users", "1", "bob"})
	if reply.Kind != resp.KindError || reply.ErrKind != resp.ErrDuplicateKey {
		t.Fatalf("expected duplicate key error, got %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"INSERT", "users", "2", "carol"})
	if reply.Kind != resp.KindInteger || reply.Integer != 1 {
		t.Fatalf("INSERT 2: %+v", reply)
	}

	reply = d.Dispatch(sess, []string{"SELECT", "*", "FROM", "users", "WHERE", "id", "=", "2"})
	if reply.Kind != resp.KindArray || len(reply.Array) != 1 {
		t.Fatalf("SELECT: %+v", reply)
	}
}

func TestDispatchSearchOrdersByDescendingSimilarity(t *testing.T) {
	dir := t.TempDir()
	acl := session.NewACL("secret")
	reg := registry.New(dir, 1)
	d := New(reg, acl)
	db, _ := reg.Get("data")
	sess := authedSession(t, d, db)

	d.Dispatch(sess, []string{"CREATE", "TABLE", "points", "id:int:pk", "emb:vector"})
	d.Dispatch(sess, []string{"INSERT", "points", "1", "[1,0]"})
	d.Dispatch(sess, []string{"INSERT", "points", "2", "[0.707,0.707]"})
	d.Dispatch(sess, []string{"INSERT", "points", "3", "[0,1]"})

	reply := d.Dispatch(sess, []string{"SEARCH", "points", "emb", "[1,0]", "3"})
	if reply.Kind != resp.KindArray || len(reply.Array) != 3 {
		t.Fatalf("SEARCH: %+v", reply)
	}
	firstRow := reply.Array[0]
	if firstRow.Kind != resp.KindArray || len(firstRow.Array) == 0 {
		t.Fatalf("unexpected row shape: %+v", firstRow)
	}
	if string(firstRow.Array[0].Bulk) != "1" {
		t.Fatalf("expected row id=1 first, got %+v", firstRow)
	}
	lastRow := reply.Array[2]
	if string(lastRow.Array[0].Bulk) != "3" {
		t.Fatalf("expected row id=3 last, got %+v", lastRow)
	}
}

func TestDispatchTransactionCommitAndRollback(t *testing.T) {
	dir := t.TempDir()
	acl := session.NewACL("secret")
	reg := registry.New(dir, 1)
	d := New(reg, acl)
	db, _ := reg.Get("data")
	sess := authedSession(t, d, db)

	if reply := d.Dispatch(sess, []string{"BEGIN"}); reply.Kind != resp.KindSimple {
		t.Fatalf("BEGIN: %+v", reply)
	}
	if reply := d.Dispatch(sess, []string{"SET", "a", "1"}); reply.Simple != "QUEUED" {
		t.Fatalf("expected QUEUED while staged, got %+v", reply)
	}
	if reply := d.Dispatch(sess, []string{"COMMIT"}); reply.Kind != resp.KindSimple {
		t.Fatalf("COMMIT: %+v", reply)
	}
	reply := d.Dispatch(sess, []string{"GET", "a"})
	if string(reply.Bulk) != "1" {
		t.Fatalf("expected committed value, got %+v", reply)
	}

	d.Dispatch(sess, []string{"BEGIN"})
	d.Dispatch(sess, []string{"SET", "a", "2"})
	d.Dispatch(sess, []string{"ROLLBACK"})
	reply = d.Dispatch(sess, []string{"GET", "a"})
	if string(reply.Bulk) != "1" {
		t.Fatalf("expected rollback to discard staged SET, got %+v", reply)
	}
}

func TestDispatchACLSetuserGetuserListDeluser(t *testing.T) {
	dir := t.TempDir()
	acl := session.NewACL("secret")
	reg := registry.New(dir, 1)
	d := New(reg, acl)
	db, _ := reg.Get("data")
	sess := authedSession(t, d, db)

	reply := d.Dispatch(sess, []string{"ACL", "SETUSER", "alice", "pw", "+GET", "+SET"})
	if reply.Kind != resp.KindSimple {
		t.Fatalf("ACL SETUSER: %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"ACL", "GETUSER", "alice"})
	if reply.Kind != resp.KindBulk {
		t.Fatalf("ACL GETUSER: %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"ACL", "LIST"})
	if reply.Kind != resp.KindArray || len(reply.Array) < 2 {
		t.Fatalf("ACL LIST: %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"ACL", "DELUSER", "alice"})
	if reply.Kind != resp.KindInteger || reply.Integer != 1 {
		t.Fatalf("ACL DELUSER: %+v", reply)
	}
}

func TestDispatchClientListAndKill(t *testing.T) {
	dir := t.TempDir()
	acl := session.NewACL("secret")
	reg := registry.New(dir, 1)
	d := New(reg, acl)
	db, _ := reg.Get("data")
	sess := authedSession(t, d, db)
	sess.SetAddr("127.0.0.1:9001")
	d.Clients.Register(sess)
	defer d.Clients.Unregister(sess)

	reply := d.Dispatch(sess, []string{"CLIENT", "LIST"})
	if reply.Kind != resp.KindArray || len(reply.Array) != 1 {
		t.Fatalf("CLIENT LIST: %+v", reply)
	}
	reply = d.Dispatch(sess, []string{"CLIENT", "KILL", "127.0.0.1:9001"})
	if reply.Kind != resp.KindInteger || reply.Integer != 1 {
		t.Fatalf("CLIENT KILL: %+v", reply)
	}
	if !sess.Killed() {
		t.Fatalf("expected session marked killed")
	}
}
