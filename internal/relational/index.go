package relational

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/tidwall/btree"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

// btreeItem associates an orderable float key with the row index it came
// from, letting the same B-tree instance serve both equality probes and
// range scans.
type btreeItem struct {
	Key      float64
	RowIndex int
}

func btreeItemLess(a, b btreeItem) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.RowIndex < b.RowIndex
}

// Index is a secondary index on one column (or, for JsonPath, one JSON
// subtree path) of a table. BTree indexes serve both equality and range
// predicates; Hash and JsonPath serve equality only, via a Roaring Bitmap
// posting set per distinct value.
type Index struct {
	Name     string
	Table    string
	ColIndex int
	Kind     IndexKind
	Path     string // only meaningful for IndexJSONPath

	tree  *btree.BTreeG[btreeItem]
	hash  map[string]*roaring.Bitmap
}

// NewIndex creates an empty Index of the given kind over column colIndex.
func NewIndex(name, table string, colIndex int, kind IndexKind, path string) *Index {
	ix := &Index{Name: name, Table: table, ColIndex: colIndex, Kind: kind, Path: path}
	switch kind {
	case IndexBTree:
		ix.tree = btree.NewBTreeG[btreeItem](btreeItemLess)
	default:
		ix.hash = make(map[string]*roaring.Bitmap)
	}
	return ix
}

// hashKey renders v as the string key used by Hash/JsonPath posting sets.
func hashKey(v value.Value) string {
	return pkKey(v)
}

// Insert records that row rowIdx carries v for the indexed column/path.
func (ix *Index) Insert(v value.Value, rowIdx int) {
	if ix.Kind == IndexBTree {
		f, err := value.AsFloat64(v)
		if err != nil {
			return
		}
		ix.tree.Set(btreeItem{Key: f, RowIndex: rowIdx})
		return
	}
	k := hashKey(v)
	bm, ok := ix.hash[k]
	if !ok {
		bm = roaring.New()
		ix.hash[k] = bm
	}
	bm.Add(uint32(rowIdx))
}

// Remove deletes the (v, rowIdx) entry, the inverse of Insert, used on
// UPDATE (old value) and DELETE (tombstone).
func (ix *Index) Remove(v value.Value, rowIdx int) {
	if ix.Kind == IndexBTree {
		f, err := value.AsFloat64(v)
		if err != nil {
			return
		}
		ix.tree.Delete(btreeItem{Key: f, RowIndex: rowIdx})
		return
	}
	k := hashKey(v)
	if bm, ok := ix.hash[k]; ok {
		bm.Remove(uint32(rowIdx))
		if bm.IsEmpty() {
			delete(ix.hash, k)
		}
	}
}

// Equal returns the row indices matching v exactly.
func (ix *Index) Equal(v value.Value) []int {
	if ix.Kind == IndexBTree {
		f, err := value.AsFloat64(v)
		if err != nil {
			return nil
		}
		var out []int
		ix.tree.Ascend(btreeItem{Key: f}, func(item btreeItem) bool {
			if item.Key != f {
				return false
			}
			out = append(out, item.RowIndex)
			return true
		})
		return out
	}
	bm, ok := ix.hash[hashKey(v)]
	if !ok {
		return nil
	}
	return bitmapToInts(bm)
}

// Range returns row indices for a BTree index whose key satisfies the
// given comparison operator against v (one of <, <=, >, >=).
func (ix *Index) Range(op string, v value.Value) []int {
	if ix.Kind != IndexBTree {
		return nil
	}
	f, err := value.AsFloat64(v)
	if err != nil {
		return nil
	}
	var out []int
	switch op {
	case "<", "<=":
		ix.tree.Ascend(btreeItem{}, func(item btreeItem) bool {
			if item.Key > f || (op == "<" && item.Key == f) {
				return false
			}
			out = append(out, item.RowIndex)
			return true
		})
	case ">", ">=":
		ix.tree.Descend(btreeItem{Key: 1e308, RowIndex: 1 << 30}, func(item btreeItem) bool {
			if item.Key < f || (op == ">" && item.Key == f) {
				return false
			}
			out = append(out, item.RowIndex)
			return true
		})
	}
	return out
}

// Cardinality estimates index selectivity for the planner: number of
// distinct keys for Hash/JsonPath, or live item count for BTree (range
// queries can't be estimated cheaply from the key alone).
func (ix *Index) Cardinality() int {
	if ix.Kind == IndexBTree {
		return ix.tree.Len()
	}
	return len(ix.hash)
}

// IndexDef is an Index's definition without its backing structure,
// sufficient to recreate it with NewIndex/CreateIndex against a freshly
// loaded table. Used by snapshot save/restore.
type IndexDef struct {
	Name     string
	Column   string
	JSONPath string
	Kind     IndexKind
}

// IndexDefs returns the definitions of every secondary index on t, for
// SAVE.
func (t *Table) IndexDefs() []IndexDef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]IndexDef, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		out = append(out, IndexDef{
			Name:     ix.Name,
			Column:   t.Columns[ix.ColIndex].Name,
			JSONPath: ix.Path,
			Kind:     ix.Kind,
		})
	}
	return out
}

func bitmapToInts(bm *roaring.Bitmap) []int {
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
