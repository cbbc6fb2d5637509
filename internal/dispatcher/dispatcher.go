// Package dispatcher resolves a request tuple's verb, enforces ACL,
// stages or applies it against the session's current database, and logs
// committed writes before the client sees success — the data-flow
// described for every command reaching the engine.
package dispatcher

import (
	"fmt"
	"log"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/session"
)

// Dispatcher ties the session/ACL layer to the registry of databases.
type Dispatcher struct {
	Registry *registry.Registry
	ACL      *session.ACL
	Clients  *ClientRegistry
}

// New creates a Dispatcher over reg and acl.
func New(reg *registry.Registry, acl *session.ACL) *Dispatcher {
	return &Dispatcher{Registry: reg, ACL: acl, Clients: NewClientRegistry()}
}

var upperFold = cases.Upper(language.Und)

func foldVerb(s string) string { return upperFold.String(s) }

// ddlOrAdmin verbs are rejected inside a transaction: rolling back a
// schema change or an ACL mutation needs more than the row-level undo
// list COMMIT keeps for ordinary writes, so they are simply disallowed
// as staged commands rather than half-supported.
var ddlOrAdmin = map[string]bool{
	"CREATE": true, "ALTER": true, "SAVE": true, "REWRITEAOF": true, "ACL": true, "CLIENT": true,
}

// writeVerbs are the commands that mutate state and therefore need a log
// record before the client sees success.
var writeVerbs = map[string]bool{
	"SET": true, "SETEX": true, "DEL": true, "INCR": true, "DECR": true,
	"LPUSH": true, "RPUSH": true, "LPOP": true, "RPOP": true,
	"SADD": true, "HSET": true, "ZADD": true, "JSON.SET": true,
	"CREATE": true, "ALTER": true, "INSERT": true, "UPDATE": true, "DELETE": true,
}

// Dispatch resolves and applies (or stages) one request tuple for sess. A
// panic inside a handler never reaches the caller: it is recovered here,
// logged, and reported as an Internal error rather than taking the whole
// listener down.
func (d *Dispatcher) Dispatch(sess *session.Session, args []string) (reply resp.Reply) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatcher: recovered panic handling %v: %v", args, r)
			reply = toReply(newError(resp.ErrInternal, fmt.Errorf("panic: %v", r)))
		}
	}()
	return d.dispatch(sess, args)
}

func (d *Dispatcher) dispatch(sess *session.Session, args []string) resp.Reply {
	if len(args) == 0 {
		return resp.Err(resp.ErrParse, "empty command")
	}
	verb := foldVerb(args[0])
	rest := args[1:]

	if verb == "AUTH" {
		return d.handleAuth(sess, rest)
	}

	if sess.State() == session.StateUnauth {
		if verb == "PING" {
			return resp.Simple("PONG")
		}
		return resp.Err(resp.ErrPermission, "")
	}

	user := sess.User()
	if !user.Allows(verb) {
		return resp.Err(resp.ErrPermission, "")
	}

	if sess.InTransaction() && verb != "COMMIT" && verb != "ROLLBACK" && verb != "PING" {
		sess.Stage(verb, rest)
		return resp.Simple("QUEUED")
	}

	switch verb {
	case "PING":
		return resp.Simple("PONG")
	case "QUIT":
		return resp.OK()
	case "USE":
		return d.handleUse(sess, user, rest)
	case "BEGIN":
		return d.handleBegin(sess)
	case "COMMIT":
		return d.handleCommit(sess)
	case "ROLLBACK":
		return d.handleRollback(sess)
	}

	db, err := d.dbFor(sess)
	if err != nil {
		return toReply(err)
	}
	if !writeVerbs[verb] {
		reply, _ := d.execute(db, verb, rest)
		return reply
	}

	// A non-transactional write holds DBLock for its whole apply phase —
	// mutation and log append together — the same span COMMIT holds it
	// for, so a concurrent SAVE/checkpoint can never snapshot mid-write.
	db.DBLock.Lock()
	defer db.DBLock.Unlock()
	reply, undo := d.execute(db, verb, rest)
	_ = undo // no rollback needed outside a transaction
	if reply.Kind == resp.KindError {
		return reply
	}
	if logErr := db.AppendLog(append([]string{verb}, rest...)); logErr != nil {
		return resp.Err(resp.ErrIO, logErr.Error())
	}
	return reply
}

func (d *Dispatcher) dbFor(sess *session.Session) (*registry.Database, error) {
	name := sess.CurrentDatabase()
	if name == "" {
		return nil, newError(resp.ErrTxState, fmt.Errorf("no database selected, run USE first"))
	}
	db, err := d.Registry.Get(name)
	if err != nil {
		return nil, newError(resp.ErrInternal, err)
	}
	return db, nil
}

func (d *Dispatcher) handleAuth(sess *session.Session, args []string) resp.Reply {
	if len(args) != 2 {
		return resp.Err(resp.ErrParse, "AUTH requires user and pass")
	}
	u, ok := d.ACL.Authenticate(args[0], args[1])
	if !ok {
		return resp.Err(resp.ErrPermission, "")
	}
	sess.Authenticate(u)
	return resp.OK()
}

func (d *Dispatcher) handleUse(sess *session.Session, user *session.User, args []string) resp.Reply {
	if len(args) != 1 {
		return resp.Err(resp.ErrParse, "USE requires a database name")
	}
	if !user.AllowsDatabase(args[0]) {
		return resp.Err(resp.ErrPermission, "")
	}
	if _, err := d.Registry.Get(args[0]); err != nil {
		return resp.Err(resp.ErrInternal, err.Error())
	}
	if err := sess.Use(args[0]); err != nil {
		return resp.Err(resp.ErrTxState, err.Error())
	}
	return resp.OK()
}

func (d *Dispatcher) handleBegin(sess *session.Session) resp.Reply {
	if err := sess.Begin(); err != nil {
		return resp.Err(resp.ErrTxState, err.Error())
	}
	return resp.OK()
}

func (d *Dispatcher) handleRollback(sess *session.Session) resp.Reply {
	sess.Rollback()
	return resp.OK()
}

func (d *Dispatcher) handleCommit(sess *session.Session) resp.Reply {
	if sess.State() != session.StateAuthTx {
		return resp.Err(resp.ErrTxState, "not in a transaction")
	}
	db, err := d.dbFor(sess)
	if err != nil {
		buf := sess.Commit()
		_ = buf
		return toReply(err)
	}
	buf := sess.Commit()

	db.DBLock.Lock()
	defer db.DBLock.Unlock()

	var undos []func()
	rollback := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}
	var toLog [][]string
	for _, tuple := range buf {
		verb := strings.ToUpper(tuple.Verb)
		if ddlOrAdmin[verb] {
			rollback()
			return resp.Err(resp.ErrTxState, "schema/admin commands cannot be staged in a transaction")
		}
		reply, undo := d.execute(db, verb, tuple.Args)
		if reply.Kind == resp.KindError {
			rollback()
			return reply
		}
		if undo != nil {
			undos = append(undos, undo)
		}
		if writeVerbs[verb] {
			toLog = append(toLog, append([]string{verb}, tuple.Args...))
		}
	}
	for _, entry := range toLog {
		if err := db.AppendLog(entry); err != nil {
			rollback()
			return resp.Err(resp.ErrIO, err.Error())
		}
	}
	return resp.OK()
}

// execute routes one already-authorized, already-unstaged command to its
// handler. undo is non-nil only for commands that mutated flexible or
// structured state and therefore need to be reversible inside a COMMIT.
func (d *Dispatcher) execute(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	switch verb {
	case "GET", "SET", "SETEX", "TTL", "DEL", "INCR", "DECR":
		return d.execKV(db, verb, args)
	case "LPUSH", "RPUSH", "LPOP", "RPOP", "LRANGE":
		return d.execList(db, verb, args)
	case "SADD", "SMEMBERS":
		return d.execSet(db, verb, args)
	case "HSET", "HGET", "HGETALL":
		return d.execHash(db, verb, args)
	case "ZADD", "ZRANGE", "ZSCORE":
		return d.execZSet(db, verb, args)
	case "JSON.SET", "JSON.GET":
		return d.execJSON(db, verb, args)
	case "CREATE", "ALTER", "INSERT", "UPDATE", "DELETE", "SELECT", "SEARCH":
		return d.execSQL(db, verb, args)
	case "SAVE", "REWRITEAOF", "INFO", "ACL", "CLIENT":
		return d.execAdmin(db, verb, args), nil
	default:
		return resp.Err(resp.ErrParse, "unknown command "+verb), nil
	}
}
