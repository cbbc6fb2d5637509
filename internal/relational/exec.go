package relational

import (
	"fmt"
	"sort"
	"strings"

	"github.com/UnSetSoft/ToriDB/internal/value"
	"github.com/UnSetSoft/ToriDB/internal/vectorindex"
)

// UndoOp is the inverse of one staged write, captured before the write
// executes so a failed COMMIT (or an IO fault during log append) can roll
// the structured store back to its pre-transaction state.
type UndoOp func()

// Engine binds a Catalog to the executor operations (INSERT/UPDATE/DELETE/
// SELECT) that read and mutate it.
type Engine struct {
	Catalog *Catalog
}

// NewEngine wraps cat with the query executor.
func NewEngine(cat *Catalog) *Engine { return &Engine{Catalog: cat} }

// boundRow is one row from one table, exposed to expression evaluation
// under both its bare and table-qualified column names.
type boundRow struct {
	table *Table
	row   *Row
	idx   int
}

func (br boundRow) get(col string) (value.Value, bool) {
	i := br.table.ColumnIndex(col)
	if i == -1 {
		return value.Null, false
	}
	return br.row.Values[i], true
}

// rowCtx maps table name to the bound row currently in scope, used to
// resolve both bare and `table.col` references during evaluation.
type rowCtx map[string]boundRow

func evalRef(ref *ColRef, ctx rowCtx) (value.Value, error) {
	var br boundRow
	var ok bool
	if ref.Table != "" {
		br, ok = ctx[ref.Table]
	} else {
		for _, b := range ctx {
			if _, has := b.get(ref.Column); has {
				br, ok = b, true
				break
			}
		}
	}
	if !ok {
		return value.Null, fmt.Errorf("unknown column %q", ref.Column)
	}
	v, has := br.get(ref.Column)
	if !has {
		return value.Null, fmt.Errorf("unknown column %q", ref.Column)
	}
	if ref.JSONPath != "" {
		if v.Kind != value.KindJSON {
			return value.Null, &value.TypeMismatch{Op: "->", Got: v.Kind, Expected: "json"}
		}
		node, found := jsonNavigate(v.JSON, strings.Split(ref.JSONPath, "."))
		if !found {
			return value.Null, nil
		}
		return value.JSONValue(node), nil
	}
	return v, nil
}

func jsonNavigate(node any, segs []string) (any, bool) {
	cur := node
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// evalExpr evaluates e (a predicate, projection argument, or assignment
// value) against ctx.
func evalExpr(e Expr, ctx rowCtx) (value.Value, error) {
	switch n := e.(type) {
	case *ColRef:
		return evalRef(n, ctx)
	case *Literal:
		return n.Val, nil
	case *BinaryExpr:
		return evalBinary(n, ctx)
	case *InExpr:
		return evalIn(n, ctx)
	default:
		return value.Null, fmt.Errorf("cannot evaluate expression of type %T", e)
	}
}

func evalBinary(n *BinaryExpr, ctx rowCtx) (value.Value, error) {
	if n.Op == "AND" || n.Op == "OR" {
		l, err := evalExpr(n.Left, ctx)
		if err != nil {
			return value.Null, err
		}
		if n.Op == "AND" && !l.Bool {
			return value.Bool(false), nil
		}
		if n.Op == "OR" && l.Bool {
			return value.Bool(true), nil
		}
		r, err := evalExpr(n.Right, ctx)
		if err != nil {
			return value.Null, err
		}
		return value.Bool(r.Bool), nil
	}
	l, err := evalExpr(n.Left, ctx)
	if err != nil {
		return value.Null, err
	}
	r, err := evalExpr(n.Right, ctx)
	if err != nil {
		return value.Null, err
	}
	if n.Op == "LIKE" {
		return value.Bool(likeMatch(value.AsString(l), value.AsString(r))), nil
	}
	cmp, err := value.Compare(l, r)
	if err != nil {
		if n.Op == "=" {
			return value.Bool(false), nil
		}
		if n.Op == "!=" {
			return value.Bool(true), nil
		}
		return value.Null, err
	}
	switch n.Op {
	case "=":
		return value.Bool(cmp == 0), nil
	case "!=":
		return value.Bool(cmp != 0), nil
	case "<":
		return value.Bool(cmp < 0), nil
	case "<=":
		return value.Bool(cmp <= 0), nil
	case ">":
		return value.Bool(cmp > 0), nil
	case ">=":
		return value.Bool(cmp >= 0), nil
	default:
		return value.Null, fmt.Errorf("unknown operator %q", n.Op)
	}
}

func evalIn(n *InExpr, ctx rowCtx) (value.Value, error) {
	l, err := evalExpr(n.Left, ctx)
	if err != nil {
		return value.Null, err
	}
	for _, item := range n.List {
		r, err := evalExpr(item, ctx)
		if err != nil {
			return value.Null, err
		}
		if value.Equal(l, r) {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

// likeMatch implements SQL LIKE with % (any run) and _ (single code point),
// anchored at both ends.
func likeMatch(s, pattern string) bool {
	sr := []rune(s)
	pr := []rune(pattern)
	return likeRec(sr, pr)
}

func likeRec(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeRec(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeRec(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeRec(s[1:], p[1:])
	}
}

// CreateIndex builds an Index over an existing table from a parsed
// CreateIndexStmt and backfills it from every live row.
func (e *Engine) CreateIndex(stmt *CreateIndexStmt) error {
	t, ok := e.Catalog.Table(stmt.Table)
	if !ok {
		return fmt.Errorf("table %q does not exist", stmt.Table)
	}
	colIdx := t.ColumnIndex(stmt.Column)
	if colIdx == -1 {
		return fmt.Errorf("column %q does not exist on table %q", stmt.Column, stmt.Table)
	}
	kind := stmt.Kind
	if kind != IndexJSONPath && t.Columns[colIdx].Type != TypeJSON {
		// BTree only makes sense for orderable scalar types; everything
		// else not explicitly a JSON path index falls back to Hash.
		if isOrderable(t.Columns[colIdx].Type) {
			kind = IndexBTree
		}
	}
	ix := NewIndex(stmt.Name, stmt.Table, colIdx, kind, stmt.JSONPath)
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, r := range t.Rows {
		if r.Tombstone {
			continue
		}
		v := r.Values[colIdx]
		if ix.Kind == IndexJSONPath {
			if v.Kind != value.KindJSON {
				continue
			}
			node, found := jsonNavigate(v.JSON, strings.Split(stmt.JSONPath, "."))
			if !found {
				continue
			}
			v = value.JSONValue(node)
		}
		ix.Insert(v, i)
	}
	t.Indexes[stmt.Name] = ix
	return nil
}

func isOrderable(t ColumnType) bool {
	switch t {
	case TypeInt, TypeFloat, TypeDateTime, TypeBool:
		return true
	default:
		return false
	}
}

// Insert appends a new row, enforcing PK uniqueness and updating every
// index. It returns an UndoOp that removes the row again.
func (e *Engine) Insert(stmt *InsertStmt) (UndoOp, error) {
	t, ok := e.Catalog.Table(stmt.Table)
	if !ok {
		return nil, fmt.Errorf("table %q does not exist", stmt.Table)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(stmt.Values) != len(t.Columns) {
		return nil, fmt.Errorf("expected %d values for table %q, got %d", len(t.Columns), stmt.Table, len(stmt.Values))
	}
	vals := make([]value.Value, len(stmt.Values))
	for i, expr := range stmt.Values {
		lit, ok := expr.(*Literal)
		if !ok {
			return nil, fmt.Errorf("INSERT values must be literals")
		}
		coerced, err := value.Coerce(lit.Val, t.Columns[i].Type.toValueKind())
		if err != nil {
			return nil, err
		}
		if t.Columns[i].Type == TypeVector && coerced.Kind == value.KindVector {
			coerced = value.Vector(vectorindex.Normalize(coerced.Vector))
		}
		vals[i] = coerced
	}
	if t.PKCol != -1 {
		key := pkKey(vals[t.PKCol])
		if _, exists := t.PKIndex[key]; exists {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
	}
	rowIdx := len(t.Rows)
	t.Rows = append(t.Rows, Row{Values: vals})
	if t.PKCol != -1 {
		t.PKIndex[pkKey(vals[t.PKCol])] = rowIdx
	}
	for _, ix := range t.Indexes {
		insertIntoIndex(ix, t, vals, rowIdx)
	}
	undo := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.Rows[rowIdx].Tombstone = true
		if t.PKCol != -1 {
			delete(t.PKIndex, pkKey(vals[t.PKCol]))
		}
		for _, ix := range t.Indexes {
			removeFromIndex(ix, t, vals, rowIdx)
		}
	}
	return undo, nil
}

func insertIntoIndex(ix *Index, t *Table, vals []value.Value, rowIdx int) {
	v := vals[ix.ColIndex]
	if ix.Kind == IndexJSONPath {
		if v.Kind != value.KindJSON {
			return
		}
		node, found := jsonNavigate(v.JSON, strings.Split(ix.Path, "."))
		if !found {
			return
		}
		v = value.JSONValue(node)
	}
	ix.Insert(v, rowIdx)
}

func removeFromIndex(ix *Index, t *Table, vals []value.Value, rowIdx int) {
	v := vals[ix.ColIndex]
	if ix.Kind == IndexJSONPath {
		if v.Kind != value.KindJSON {
			return
		}
		node, found := jsonNavigate(v.JSON, strings.Split(ix.Path, "."))
		if !found {
			return
		}
		v = value.JSONValue(node)
	}
	ix.Remove(v, rowIdx)
}

// Update applies SET assignments to every live row matching Where,
// returning the number of rows affected and an UndoOp restoring prior
// values and index entries.
func (e *Engine) Update(stmt *UpdateStmt) (int, UndoOp, error) {
	t, ok := e.Catalog.Table(stmt.Table)
	if !ok {
		return 0, nil, fmt.Errorf("table %q does not exist", stmt.Table)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var undos []updateUndoEntry
	affected := 0
	for i := range t.Rows {
		if t.Rows[i].Tombstone {
			continue
		}
		ctx := rowCtx{t.Name: {table: t, row: &t.Rows[i], idx: i}}
		if stmt.Where != nil {
			m, err := evalExpr(stmt.Where, ctx)
			if err != nil {
				return affected, buildUpdateUndo(t, undos), err
			}
			if !m.Bool {
				continue
			}
		}
		old := append([]value.Value(nil), t.Rows[i].Values...)
		newVals := append([]value.Value(nil), t.Rows[i].Values...)
		for _, asn := range stmt.Sets {
			colIdx := t.ColumnIndex(asn.Column)
			if colIdx == -1 {
				return affected, buildUpdateUndo(t, undos), fmt.Errorf("unknown column %q", asn.Column)
			}
			v, err := evalExpr(asn.Value, ctx)
			if err != nil {
				return affected, buildUpdateUndo(t, undos), err
			}
			coerced, err := value.Coerce(v, t.Columns[colIdx].Type.toValueKind())
			if err != nil {
				return affected, buildUpdateUndo(t, undos), err
			}
			if colIdx == t.PKCol {
				newKey := pkKey(coerced)
				if existing, exists := t.PKIndex[newKey]; exists && existing != i {
					return affected, buildUpdateUndo(t, undos), fmt.Errorf("duplicate key %q", newKey)
				}
			}
			newVals[colIdx] = coerced
		}
		for _, ix := range t.Indexes {
			removeFromIndex(ix, t, old, i)
		}
		if t.PKCol != -1 {
			delete(t.PKIndex, pkKey(old[t.PKCol]))
		}
		t.Rows[i].Values = newVals
		if t.PKCol != -1 {
			t.PKIndex[pkKey(newVals[t.PKCol])] = i
		}
		for _, ix := range t.Indexes {
			insertIntoIndex(ix, t, newVals, i)
		}
		undos = append(undos, updateUndoEntry{idx: i, old: old})
		affected++
	}
	return affected, buildUpdateUndo(t, undos), nil
}

// updateUndoEntry captures a row's pre-update values so a failed COMMIT
// (or a later mid-statement error) can restore them in reverse order.
type updateUndoEntry struct {
	idx int
	old []value.Value
}

func buildUpdateUndo(t *Table, undos []updateUndoEntry) UndoOp {
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for j := len(undos) - 1; j >= 0; j-- {
			u := undos[j]
			cur := t.Rows[u.idx].Values
			for _, ix := range t.Indexes {
				removeFromIndex(ix, t, cur, u.idx)
			}
			if t.PKCol != -1 {
				delete(t.PKIndex, pkKey(cur[t.PKCol]))
			}
			t.Rows[u.idx].Values = u.old
			if t.PKCol != -1 {
				t.PKIndex[pkKey(u.old[t.PKCol])] = u.idx
			}
			for _, ix := range t.Indexes {
				insertIntoIndex(ix, t, u.old, u.idx)
			}
		}
	}
}

// Delete tombstones every live row matching Where, removing them from the
// PK index and every secondary index. Returns affected count and an undo.
func (e *Engine) Delete(stmt *DeleteStmt) (int, UndoOp, error) {
	t, ok := e.Catalog.Table(stmt.Table)
	if !ok {
		return 0, nil, fmt.Errorf("table %q does not exist", stmt.Table)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var affectedIdx []int
	for i := range t.Rows {
		if t.Rows[i].Tombstone {
			continue
		}
		ctx := rowCtx{t.Name: {table: t, row: &t.Rows[i], idx: i}}
		if stmt.Where != nil {
			m, err := evalExpr(stmt.Where, ctx)
			if err != nil {
				return 0, nil, err
			}
			if !m.Bool {
				continue
			}
		}
		affectedIdx = append(affectedIdx, i)
	}
	for _, i := range affectedIdx {
		t.Rows[i].Tombstone = true
		vals := t.Rows[i].Values
		if t.PKCol != -1 {
			delete(t.PKIndex, pkKey(vals[t.PKCol]))
		}
		for _, ix := range t.Indexes {
			removeFromIndex(ix, t, vals, i)
		}
	}
	idxs := affectedIdx
	undo := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for _, i := range idxs {
			t.Rows[i].Tombstone = false
			vals := t.Rows[i].Values
			if t.PKCol != -1 {
				t.PKIndex[pkKey(vals[t.PKCol])] = i
			}
			for _, ix := range t.Indexes {
				insertIntoIndex(ix, t, vals, i)
			}
		}
	}
	return len(affectedIdx), undo, nil
}

// Search executes a SEARCH statement: exact cosine KNN over stmt.Column,
// returning the full row for each of the k nearest neighbors alongside its
// similarity score, ordered by descending similarity.
func (e *Engine) Search(stmt *SearchStmt) ([]string, []ResultRow, []float64, error) {
	t, ok := e.Catalog.Table(stmt.Table)
	if !ok {
		return nil, nil, nil, fmt.Errorf("table %q does not exist", stmt.Table)
	}
	colIdx := t.ColumnIndex(stmt.Column)
	if colIdx == -1 {
		return nil, nil, nil, fmt.Errorf("column %q does not exist on table %q", stmt.Column, stmt.Table)
	}
	if t.Columns[colIdx].Type != TypeVector {
		return nil, nil, nil, fmt.Errorf("column %q is not a vector column", stmt.Column)
	}
	pivot := vectorindex.Normalize(stmt.Pivot)

	t.mu.RLock()
	rowCount := len(t.Rows)
	get := func(i int) (value.Value, bool) {
		if t.Rows[i].Tombstone {
			return value.Null, false
		}
		return t.Rows[i].Values[colIdx], true
	}
	results, err := vectorindex.Search(rowCount, pivot, stmt.K, get)
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	rows := make([]ResultRow, len(results))
	sims := make([]float64, len(results))
	for i, r := range results {
		rows[i] = ResultRow{Values: append([]value.Value(nil), t.Rows[r.RowIndex].Values...)}
		sims[i] = r.Similarity
	}
	t.mu.RUnlock()
	if err != nil {
		return nil, nil, nil, err
	}
	return cols, rows, sims, nil
}

// ResultRow is one output row of a SELECT: ordered column values matching
// the statement's projections.
type ResultRow struct {
	Values []value.Value
}

// Select executes a SELECT statement end to end: candidate row production
// (index-assisted or full scan), join, filter, group/aggregate, having,
// order, and pagination.
func (e *Engine) Select(stmt *SelectStmt) ([]string, []ResultRow, error) {
	t, ok := e.Catalog.Table(stmt.From)
	if !ok {
		return nil, nil, fmt.Errorf("table %q does not exist", stmt.From)
	}
	t.mu.RLock()
	rows := candidateRows(t, stmt.Where)
	contexts := make([]rowCtx, 0, len(rows))
	for _, ri := range rows {
		r := t.Rows[ri]
		if r.Tombstone {
			continue
		}
		contexts = append(contexts, rowCtx{t.Name: {table: t, row: &t.Rows[ri], idx: ri}})
	}
	t.mu.RUnlock()

	for _, jc := range stmt.Joins {
		jt, ok := e.Catalog.Table(jc.Table)
		if !ok {
			return nil, nil, fmt.Errorf("table %q does not exist", jc.Table)
		}
		var err error
		contexts, err = hashJoin(contexts, jt, jc)
		if err != nil {
			return nil, nil, err
		}
	}

	var filtered []rowCtx
	for _, ctx := range contexts {
		if stmt.Where != nil {
			m, err := evalExpr(stmt.Where, ctx)
			if err != nil {
				return nil, nil, err
			}
			if !m.Bool {
				continue
			}
		}
		filtered = append(filtered, ctx)
	}

	cols, out, err := project(stmt, t, filtered)
	if err != nil {
		return nil, nil, err
	}

	if len(stmt.OrderBy) > 0 {
		colIdx := make([]int, len(stmt.OrderBy))
		for i, term := range stmt.OrderBy {
			colIdx[i] = indexOf(cols, term.Col.Column)
		}
		sort.SliceStable(out, func(a, b int) bool {
			for i, term := range stmt.OrderBy {
				ci := colIdx[i]
				if ci == -1 {
					continue
				}
				cmp, err := value.Compare(out[a].Values[ci], out[b].Values[ci])
				if err != nil || cmp == 0 {
					continue
				}
				if term.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if stmt.Offset > 0 {
		if stmt.Offset >= len(out) {
			out = nil
		} else {
			out = out[stmt.Offset:]
		}
	}
	if stmt.HasLimit && stmt.Limit < len(out) {
		out = out[:stmt.Limit]
	}
	return cols, out, nil
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

// candidateRows uses the most selective usable index for Where, falling
// back to a full live-row scan.
func candidateRows(t *Table, where Expr) []int {
	if where != nil {
		cands := findIndexCandidates(t, where)
		if best := pickBestIndex(cands); best != nil {
			if best.op == "=" {
				return best.index.Equal(best.lit.Val)
			}
			return best.index.Range(best.op, best.lit.Val)
		}
	}
	out := make([]int, len(t.Rows))
	for i := range t.Rows {
		out[i] = i
	}
	return out
}

// hashJoin builds a hash table on jt keyed by jc.Right, then probes with
// each existing bound-row context's jc.Left, producing the cross product
// of matches (equi-join only, live rows only).
func hashJoin(left []rowCtx, jt *Table, jc JoinClause) ([]rowCtx, error) {
	jt.mu.RLock()
	defer jt.mu.RUnlock()
	buckets := make(map[string][]int)
	for i := range jt.Rows {
		if jt.Rows[i].Tombstone {
			continue
		}
		ctx := rowCtx{jt.Name: {table: jt, row: &jt.Rows[i], idx: i}}
		v, err := evalExpr(jc.Right, ctx)
		if err != nil {
			return nil, err
		}
		buckets[pkKey(v)] = append(buckets[pkKey(v)], i)
	}
	var out []rowCtx
	for _, lctx := range left {
		lv, err := evalExpr(jc.Left, lctx)
		if err != nil {
			return nil, err
		}
		for _, ri := range buckets[pkKey(lv)] {
			merged := rowCtx{}
			for k, v := range lctx {
				merged[k] = v
			}
			merged[jt.Name] = boundRow{table: jt, row: &jt.Rows[ri], idx: ri}
			out = append(out, merged)
		}
	}
	return out, nil
}

func project(stmt *SelectStmt, t *Table, rows []rowCtx) ([]string, []ResultRow, error) {
	if stmt.Star && len(stmt.GroupBy) == 0 {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name
		}
		out := make([]ResultRow, len(rows))
		for i, ctx := range rows {
			out[i] = ResultRow{Values: append([]value.Value(nil), ctx[t.Name].row.Values...)}
		}
		return cols, out, nil
	}

	if len(stmt.GroupBy) > 0 || hasAggregate(stmt.Projections) {
		return projectAggregate(stmt, rows)
	}

	cols := make([]string, len(stmt.Projections))
	for i, p := range stmt.Projections {
		cols[i] = projectionLabel(p)
	}
	out := make([]ResultRow, 0, len(rows))
	for _, ctx := range rows {
		vals := make([]value.Value, len(stmt.Projections))
		for i, p := range stmt.Projections {
			v, err := evalExpr(p.Expr, ctx)
			if err != nil {
				return nil, nil, err
			}
			vals[i] = v
		}
		out = append(out, ResultRow{Values: vals})
	}
	return cols, out, nil
}

func projectionLabel(p Projection) string {
	if p.Alias != "" {
		return p.Alias
	}
	switch n := p.Expr.(type) {
	case *ColRef:
		return n.Column
	case *AggCall:
		return n.Func
	default:
		return ""
	}
}

func hasAggregate(projs []Projection) bool {
	for _, p := range projs {
		if _, ok := p.Expr.(*AggCall); ok {
			return true
		}
	}
	return false
}

func projectAggregate(stmt *SelectStmt, rows []rowCtx) ([]string, []ResultRow, error) {
	groups := make(map[string][]rowCtx)
	var order []string
	for _, ctx := range rows {
		key, err := groupKey(stmt.GroupBy, ctx)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], ctx)
	}
	if len(stmt.GroupBy) == 0 && len(order) == 0 {
		order = []string{""}
		groups[""] = nil
	}

	cols := make([]string, 0, len(stmt.GroupBy)+len(stmt.Projections))
	for _, g := range stmt.GroupBy {
		cols = append(cols, g.Column)
	}
	for _, p := range stmt.Projections {
		cols = append(cols, projectionLabel(p))
	}

	var out []ResultRow
	for _, key := range order {
		group := groups[key]
		var vals []value.Value
		var sample rowCtx
		if len(group) > 0 {
			sample = group[0]
		}
		for _, g := range stmt.GroupBy {
			if sample != nil {
				v, err := evalRef(&g, sample)
				if err != nil {
					return nil, nil, err
				}
				vals = append(vals, v)
			} else {
				vals = append(vals, value.Null)
			}
		}
		for _, p := range stmt.Projections {
			agg, ok := p.Expr.(*AggCall)
			if !ok {
				if sample == nil {
					vals = append(vals, value.Null)
					continue
				}
				v, err := evalExpr(p.Expr, sample)
				if err != nil {
					return nil, nil, err
				}
				vals = append(vals, v)
				continue
			}
			v, err := evalAggregate(agg, group)
			if err != nil {
				return nil, nil, err
			}
			vals = append(vals, v)
		}
		if stmt.Having != nil && sample != nil {
			havingCtx := rowCtx{}
			for k, v := range sample {
				havingCtx[k] = v
			}
			m, err := evalExpr(stmt.Having, havingCtx)
			if err != nil {
				return nil, nil, err
			}
			if !m.Bool {
				continue
			}
		}
		out = append(out, ResultRow{Values: vals})
	}
	return cols, out, nil
}

func groupKey(cols []ColRef, ctx rowCtx) (string, error) {
	var sb strings.Builder
	for _, c := range cols {
		v, err := evalRef(&c, ctx)
		if err != nil {
			return "", err
		}
		sb.WriteString(pkKey(v))
		sb.WriteByte('\x00')
	}
	return sb.String(), nil
}

func evalAggregate(agg *AggCall, group []rowCtx) (value.Value, error) {
	switch agg.Func {
	case "COUNT":
		return value.Int64(int64(len(group))), nil
	case "SUM", "AVG", "MAX", "MIN":
		var sum float64
		var best float64
		n := 0
		for _, ctx := range group {
			v, err := evalExpr(agg.Arg, ctx)
			if err != nil {
				return value.Null, err
			}
			f, err := value.AsFloat64(v)
			if err != nil {
				return value.Null, err
			}
			if n == 0 {
				best = f
			} else if agg.Func == "MAX" && f > best {
				best = f
			} else if agg.Func == "MIN" && f < best {
				best = f
			}
			sum += f
			n++
		}
		switch agg.Func {
		case "SUM":
			return value.Float64(sum), nil
		case "AVG":
			if n == 0 {
				return value.Null, nil
			}
			return value.Float64(sum / float64(n)), nil
		default:
			return value.Float64(best), nil
		}
	default:
		return value.Null, fmt.Errorf("unknown aggregate function %q", agg.Func)
	}
}
