package durability

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/UnSetSoft/ToriDB/internal/flex"
	"github.com/UnSetSoft/ToriDB/internal/relational"
	"github.com/UnSetSoft/ToriDB/internal/value"
)

// SnapshotVersion is written into every snapshot's "version" field so a
// future format change can detect and migrate older files.
const SnapshotVersion = 1

// FlexEntry is one persisted keyspace entry: its value plus, if set, the
// absolute instant it expires at.
type FlexEntry struct {
	Value    value.Value `json:"value"`
	ExpireAt *time.Time  `json:"expire_at,omitempty"`
}

// TableSnapshot is one persisted table: its schema, live rows, and the
// definitions needed to rebuild its secondary indexes.
type TableSnapshot struct {
	Schema  []relational.Column  `json:"schema"`
	Rows    [][]value.Value      `json:"rows"`
	Indexes []relational.IndexDef `json:"indexes"`
}

// Snapshot is the full on-disk shape of SAVE: {version, flexible_data,
// structured_data, acl}.
type Snapshot struct {
	Version        int                      `json:"version"`
	FlexibleData   map[string]FlexEntry     `json:"flexible_data"`
	StructuredData map[string]TableSnapshot `json:"structured_data"`
	ACL            json.RawMessage          `json:"acl,omitempty"`
}

// BuildSnapshot captures the current live state of one database's
// flexible store and structured catalog. acl is passed through verbatim;
// this package has no opinion on its shape, only on where it lives in the
// snapshot.
func BuildSnapshot(fx *flex.Store, cat *relational.Catalog, acl json.RawMessage) Snapshot {
	snap := Snapshot{
		Version:        SnapshotVersion,
		FlexibleData:   make(map[string]FlexEntry),
		StructuredData: make(map[string]TableSnapshot),
		ACL:            acl,
	}
	for _, k := range fx.Keys() {
		v, ok := fx.Get(k)
		if !ok {
			continue
		}
		fe := FlexEntry{Value: v}
		if exp, live := fx.ExpireAt(k); live && !exp.IsZero() {
			fe.ExpireAt = &exp
		}
		snap.FlexibleData[k] = fe
	}
	for _, name := range cat.Tables() {
		t, ok := cat.Table(name)
		if !ok {
			continue
		}
		snap.StructuredData[name] = TableSnapshot{
			Schema:  t.Columns,
			Rows:    t.LiveRows(),
			Indexes: t.IndexDefs(),
		}
	}
	return snap
}

// SaveSnapshot writes snap as UTF-8 JSON to path, replacing any existing
// file.
func SaveSnapshot(path string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("durability: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("durability: write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads and parses the snapshot at path. A missing file
// reports ok=false rather than an error, since "no prior SAVE" is a
// normal startup state.
func LoadSnapshot(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("durability: read snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("durability: parse snapshot %s: %w", path, err)
	}
	return snap, true, nil
}

// Apply restores snap's flexible and structured data into fx/cat, which
// are expected to be freshly constructed and empty — Apply loads state,
// it does not merge with whatever is already there.
func (snap Snapshot) Apply(fx *flex.Store, cat *relational.Catalog) error {
	for key, fe := range snap.FlexibleData {
		var expireAt time.Time
		if fe.ExpireAt != nil {
			expireAt = *fe.ExpireAt
		}
		fx.Restore(key, fe.Value, expireAt)
	}
	eng := relational.NewEngine(cat)
	for name, ts := range snap.StructuredData {
		if _, err := cat.LoadTable(name, ts.Schema, ts.Rows); err != nil {
			return fmt.Errorf("durability: restore table %q: %w", name, err)
		}
		for _, def := range ts.Indexes {
			stmt := &relational.CreateIndexStmt{
				Name:     def.Name,
				Table:    name,
				Column:   def.Column,
				JSONPath: def.JSONPath,
				Kind:     def.Kind,
			}
			if err := eng.CreateIndex(stmt); err != nil {
				return fmt.Errorf("durability: rebuild index %q on %q: %w", def.Name, name, err)
			}
		}
	}
	return nil
}
