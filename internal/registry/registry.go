// Package registry owns the process-wide directory of databases: each
// named database bundles a flexible keyspace store, a relational
// catalog, and the append-only log that durability writes commands
// through. Databases are created on demand the first time a session
// references their name.
package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/UnSetSoft/ToriDB/internal/durability"
	"github.com/UnSetSoft/ToriDB/internal/flex"
	"github.com/UnSetSoft/ToriDB/internal/relational"
)

// Database bundles one named database's flexible store, structured
// catalog, and durability log. The structured store's reader-writer lock
// lives one level down on the catalog/table; DBLock here is the
// database-wide write lock COMMIT and non-transactional writes hold for
// their whole apply phase.
type Database struct {
	Name    string
	Flex    *flex.Store
	Catalog *relational.Catalog
	Engine  *relational.Engine

	DBLock sync.Mutex

	logMu sync.Mutex
	Log   *durability.Log
}

func newDatabase(name string, log *durability.Log) *Database {
	cat := relational.NewCatalog()
	return &Database{
		Name:    name,
		Flex:    flex.New(),
		Catalog: cat,
		Engine:  relational.NewEngine(cat),
		Log:     log,
	}
}

// AppendLog writes a committed write's request tuple to the database's
// log, serialized against concurrent appends from other workers on the
// same database so the log stays a single coherent sequence even though
// many workers may apply writes to this database concurrently.
func (d *Database) AppendLog(args []string) error {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	if d.Log == nil {
		return nil
	}
	return d.Log.Append(durability.EncodeTuple(d.Name, args))
}

// Registry is the process-wide, guarded directory of databases.
type Registry struct {
	mu       sync.RWMutex
	dataDir  string
	fsyncN   int
	dbs      map[string]*Database
}

// New creates an empty Registry rooted at dataDir. fsyncEveryN is passed
// through to every database's log (see durability.OpenLog).
func New(dataDir string, fsyncEveryN int) *Registry {
	return &Registry{dataDir: dataDir, fsyncN: fsyncEveryN, dbs: make(map[string]*Database)}
}

func (r *Registry) logPath(name string) string {
	return filepath.Join(r.dataDir, name+".db")
}

// SnapshotPath returns the on-disk path of name's snapshot file.
func (r *Registry) SnapshotPath(name string) string {
	return filepath.Join(r.dataDir, name+".snap.json")
}

// LogPath returns the on-disk path of name's append-only log file.
func (r *Registry) LogPath(name string) string {
	return r.logPath(name)
}

// Get returns the database named name, creating it (and opening its log
// file) on first reference.
func (r *Registry) Get(name string) (*Database, error) {
	r.mu.RLock()
	db, ok := r.dbs[name]
	r.mu.RUnlock()
	if ok {
		return db, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.dbs[name]; ok {
		return db, nil
	}
	log, err := durability.OpenLog(r.logPath(name), r.fsyncN)
	if err != nil {
		return nil, fmt.Errorf("registry: open log for database %q: %w", name, err)
	}
	db = newDatabase(name, log)
	r.dbs[name] = db
	return db, nil
}

// Bootstrap loads name's on-disk state (snapshot, then log tail) into a
// freshly created Database and registers it, for use at process startup
// (or the first USE of a name that may have prior on-disk state).
// makeApply is called with the in-progress Database once it exists, and
// the ReplayFunc it returns is invoked once per surviving log record —
// the replay target must be this exact Database, not one looked up by
// name, since Bootstrap holds registry.mu for this call's whole duration
// and name is not yet in the directory for a by-name lookup to find. The
// caller supplies makeApply so this package never depends on the
// dispatcher's command-execution path. The snapshot's ACL payload is
// returned verbatim for the session layer to load.
func (r *Registry) Bootstrap(name string, makeApply func(*Database) durability.ReplayFunc) (*Database, json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.dbs[name]; ok {
		return db, nil, nil
	}

	db := newDatabase(name, nil)
	var acl json.RawMessage
	snap, ok, err := durability.LoadSnapshot(r.SnapshotPath(name))
	if err != nil {
		return nil, nil, fmt.Errorf("registry: load snapshot for database %q: %w", name, err)
	}
	if ok {
		if err := snap.Apply(db.Flex, db.Catalog); err != nil {
			return nil, nil, fmt.Errorf("registry: apply snapshot for database %q: %w", name, err)
		}
		acl = snap.ACL
	}

	if _, err := durability.ReplayLog(r.logPath(name), makeApply(db)); err != nil {
		return nil, nil, fmt.Errorf("registry: replay log for database %q: %w", name, err)
	}

	log, err := durability.OpenLog(r.logPath(name), r.fsyncN)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: open log for database %q: %w", name, err)
	}
	db.Log = log
	r.dbs[name] = db
	return db, acl, nil
}

// ReopenLog closes db's current log handle, if any, and opens a fresh one
// at its on-disk path, installing it under the same lock AppendLog takes.
// Rewrite truncates a log by renaming a new file over the old path; the
// live *durability.Log's *os.File still refers to the now-unlinked old
// inode, so every append after a rewrite would silently vanish unless the
// handle is swapped for one opened against the renamed-in file. Callers
// that rewrite a log (execSave, execRewriteAOF) must call this immediately
// after Rewrite succeeds, while still holding db.DBLock so no AppendLog
// can race the swap.
func (r *Registry) ReopenLog(db *Database) error {
	db.logMu.Lock()
	defer db.logMu.Unlock()
	if db.Log != nil {
		_ = db.Log.Close() // best effort: the old file is unlinked already
	}
	log, err := durability.OpenLog(r.logPath(db.Name), r.fsyncN)
	if err != nil {
		return fmt.Errorf("registry: reopen log for database %q: %w", db.Name, err)
	}
	db.Log = log
	return nil
}

// Names returns a snapshot of every database name created so far, for
// INFO and full-restart replay.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.dbs))
	for n := range r.dbs {
		out = append(out, n)
	}
	return out
}

// CloseAll flushes and closes every open database log, for graceful
// shutdown.
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for _, db := range r.dbs {
		if db.Log == nil {
			continue
		}
		if err := db.Log.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
