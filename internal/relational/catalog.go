// Package relational implements the structured store: named tables with a
// declared schema, primary-key and secondary indexes, a recursive-descent
// parser for the SQL-ish command grammar, and an executor providing filter
// evaluation, hash-join, group/aggregate, ordering, and pagination.
package relational

import (
	"fmt"
	"sync"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

// ColumnType is one of the eight declared column types a table column may
// carry.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeString
	TypeFloat
	TypeBool
	TypeDateTime
	TypeBlob
	TypeVector
	TypeJSON
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDateTime:
		return "datetime"
	case TypeBlob:
		return "blob"
	case TypeVector:
		return "vector"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

func (t ColumnType) toValueKind() value.ColumnKind {
	switch t {
	case TypeInt:
		return value.ColInt
	case TypeString:
		return value.ColString
	case TypeFloat:
		return value.ColFloat
	case TypeBool:
		return value.ColBool
	case TypeDateTime:
		return value.ColDateTime
	case TypeBlob:
		return value.ColBlob
	case TypeVector:
		return value.ColVector
	case TypeJSON:
		return value.ColJSON
	default:
		return value.ColString
	}
}

// ForeignKey names the (table, column) a column advisorially references.
type ForeignKey struct {
	Table  string
	Column string
}

// Column describes one declared column of a Table.
type Column struct {
	Name    string
	Type    ColumnType
	IsPK    bool
	FK      *ForeignKey
}

// Row is one tuple of a table, positional by the table's column order.
// A tombstoned row keeps its slot (and its values, for inspection) so that
// row indices referenced by secondary indexes remain valid forever.
type Row struct {
	Values    []value.Value
	Tombstone bool
}

// IndexKind selects the underlying structure backing an Index.
type IndexKind int

const (
	IndexBTree IndexKind = iota
	IndexHash
	IndexJSONPath
)

// Table owns its schema, its row vector, the PK index, and any number of
// named secondary indexes.
type Table struct {
	Name    string
	Columns []Column
	PKCol   int // index into Columns, or -1 if no PK

	mu      sync.RWMutex
	Rows    []Row
	PKIndex map[string]int // pkKey(value) -> row index
	Indexes map[string]*Index
}

// pkKey renders a PK Value as a comparable map key. Value itself cannot be
// a map key (it carries slice/map fields for the container variants), so
// PK lookups key on its kind-tagged string form instead.
func pkKey(v value.Value) string {
	return v.Kind.String() + ":" + value.AsString(v)
}

// ColumnIndex returns the position of name in the schema, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// LiveRowCount counts non-tombstoned rows.
func (t *Table) LiveRowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, r := range t.Rows {
		if !r.Tombstone {
			n++
		}
	}
	return n
}

// Catalog is the registry of tables for a single database's structured
// store, guarded by one reader-writer lock per spec's "each database guards
// its structured store with a reader-writer lock" rule.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// CreateTable registers a new table, validating at most one PK column.
func (c *Catalog) CreateTable(name string, cols []Column) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[name]; exists {
		return nil, fmt.Errorf("table %q already exists", name)
	}
	pk := -1
	for i, col := range cols {
		if col.IsPK {
			if pk != -1 {
				return nil, fmt.Errorf("table %q declares more than one primary key", name)
			}
			pk = i
		}
	}
	t := &Table{
		Name:    name,
		Columns: cols,
		PKCol:   pk,
		PKIndex: make(map[string]int),
		Indexes: make(map[string]*Index),
	}
	c.tables[name] = t
	return t, nil
}

// Table looks up a table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns a snapshot of all table names, for SAVE/INFO.
func (c *Catalog) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables))
	for n := range c.tables {
		out = append(out, n)
	}
	return out
}

// LiveRows returns a copy of every non-tombstoned row's values, in row
// order, for SAVE.
func (t *Table) LiveRows() [][]value.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([][]value.Value, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Tombstone {
			continue
		}
		out = append(out, r.Values)
	}
	return out
}

// LoadTable recreates a table from a persisted schema and row set,
// bypassing Engine.Insert's duplicate-key/undo bookkeeping since a fresh
// load has nothing to roll back and no prior rows to collide with.
func (c *Catalog) LoadTable(name string, cols []Column, rows [][]value.Value) (*Table, error) {
	t, err := c.CreateTable(name, cols)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, vals := range rows {
		idx := len(t.Rows)
		t.Rows = append(t.Rows, Row{Values: vals})
		if t.PKCol != -1 {
			t.PKIndex[pkKey(vals[t.PKCol])] = idx
		}
	}
	return t, nil
}

// AddColumn implements ALTER TABLE t ADD col:type — existing rows receive
// Null for the new column.
func (t *Table) AddColumn(col Column) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ColumnIndex(col.Name) != -1 {
		return fmt.Errorf("column %q already exists", col.Name)
	}
	t.Columns = append(t.Columns, col)
	for i := range t.Rows {
		t.Rows[i].Values = append(t.Rows[i].Values, value.Null)
	}
	return nil
}

// DropColumn implements ALTER TABLE t DROP col — rejects dropping the PK.
func (t *Table) DropColumn(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.ColumnIndex(name)
	if idx == -1 {
		return fmt.Errorf("column %q does not exist", name)
	}
	if idx == t.PKCol {
		return fmt.Errorf("cannot drop primary key column %q", name)
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for i := range t.Rows {
		t.Rows[i].Values = append(t.Rows[i].Values[:idx], t.Rows[i].Values[idx+1:]...)
	}
	if t.PKCol > idx {
		t.PKCol--
	}
	for _, ix := range t.Indexes {
		if ix.ColIndex > idx {
			ix.ColIndex--
		}
	}
	delete(t.Indexes, name)
	return nil
}
