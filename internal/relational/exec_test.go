package relational

import (
	"testing"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

func mustParse(t *testing.T, src string) Statement {
	t.Helper()
	p := NewParser(src)
	stmt, err := p.ParseStatement()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return stmt
}

func setupUsersTable(t *testing.T) *Engine {
	t.Helper()
	cat := NewCatalog()
	eng := NewEngine(cat)
	stmt := mustParse(t, "CREATE TABLE u id:int:pk name:string age:int")
	ct := stmt.(*CreateTableStmt)
	if _, err := cat.CreateTable(ct.Table, ct.Columns); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, ins := range []string{
		"INSERT u 1 Alice 30",
		"INSERT u 2 Bob 25",
	} {
		stmt := mustParse(t, ins).(*InsertStmt)
		if _, err := eng.Insert(stmt); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return eng
}

func TestInsertDuplicateKeyRejected(t *testing.T) {
	eng := setupUsersTable(t)
	stmt := mustParse(t, "INSERT u 1 X 0").(*InsertStmt)
	if _, err := eng.Insert(stmt); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestSelectFilterScan(t *testing.T) {
	eng := setupUsersTable(t)
	sel := mustParse(t, "SELECT * FROM u WHERE age > 27").(*SelectStmt)
	cols, rows, err := eng.Select(sel)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	nameIdx := indexOf(cols, "name")
	if value.AsString(rows[0].Values[nameIdx]) != "Alice" {
		t.Fatalf("expected Alice, got %+v", rows[0])
	}
}

func TestUpdateAndDelete(t *testing.T) {
	eng := setupUsersTable(t)
	upd := mustParse(t, "UPDATE u SET age = 31 WHERE id = 1").(*UpdateStmt)
	n, _, err := eng.Update(upd)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 affected, got %d, %v", n, err)
	}
	del := mustParse(t, "DELETE FROM u WHERE id = 2").(*DeleteStmt)
	n, _, err = eng.Delete(del)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 deleted, got %d, %v", n, err)
	}
	sel := mustParse(t, "SELECT * FROM u").(*SelectStmt)
	_, rows, err := eng.Select(sel)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 live row after delete, got %d", len(rows))
	}
}

func TestUpdateRollbackOnDuplicateKey(t *testing.T) {
	eng := setupUsersTable(t)
	upd := mustParse(t, "UPDATE u SET id = 2 WHERE id = 1").(*UpdateStmt)
	_, _, err := eng.Update(upd)
	if err == nil {
		t.Fatalf("expected duplicate key error on PK collision")
	}
}

func TestIndexEqualityLookup(t *testing.T) {
	eng := setupUsersTable(t)
	ci := mustParse(t, "CREATE INDEX byname ON u(name)").(*CreateIndexStmt)
	if err := eng.CreateIndex(ci); err != nil {
		t.Fatalf("create index: %v", err)
	}
	sel := mustParse(t, "SELECT * FROM u WHERE name = 'Bob'").(*SelectStmt)
	_, rows, err := eng.Select(sel)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row via index, got %d", len(rows))
	}
}

func TestGroupByAggregate(t *testing.T) {
	cat := NewCatalog()
	eng := NewEngine(cat)
	ct := mustParse(t, "CREATE TABLE o id:int:pk cust:string amount:float").(*CreateTableStmt)
	if _, err := cat.CreateTable(ct.Table, ct.Columns); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, ins := range []string{
		"INSERT o 1 alice 10.0",
		"INSERT o 2 alice 5.0",
		"INSERT o 3 bob 7.0",
	} {
		stmt := mustParse(t, ins).(*InsertStmt)
		if _, err := eng.Insert(stmt); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	sel := mustParse(t, "SELECT cust, SUM(amount) FROM o GROUP BY cust").(*SelectStmt)
	_, rows, err := eng.Select(sel)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rows))
	}
}

func TestSearchOrdersByDescendingSimilarity(t *testing.T) {
	cat := NewCatalog()
	eng := NewEngine(cat)
	ct := mustParse(t, "CREATE TABLE p id:int:pk emb:vector").(*CreateTableStmt)
	if _, err := cat.CreateTable(ct.Table, ct.Columns); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, ins := range []string{
		"INSERT p 1 [1,0]",
		"INSERT p 2 [0.707,0.707]",
		"INSERT p 3 [0,1]",
	} {
		stmt := mustParse(t, ins).(*InsertStmt)
		if _, err := eng.Insert(stmt); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	search := mustParse(t, "SEARCH p emb [1,0] 3").(*SearchStmt)
	cols, rows, sims, err := eng.Search(search)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(cols))
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 results, got %d", len(rows))
	}
	idIdx := indexOf(cols, "id")
	var order []string
	for _, r := range rows {
		order = append(order, value.AsString(r.Values[idIdx]))
	}
	if order[0] != "1" || order[1] != "2" || order[2] != "3" {
		t.Fatalf("expected id order 1,2,3 by descending similarity, got %v", order)
	}
	if sims[0] <= sims[1] || sims[1] <= sims[2] {
		t.Fatalf("expected strictly descending similarities, got %v", sims)
	}
}

func TestSearchRespectsK(t *testing.T) {
	cat := NewCatalog()
	eng := NewEngine(cat)
	ct := mustParse(t, "CREATE TABLE p id:int:pk emb:vector").(*CreateTableStmt)
	if _, err := cat.CreateTable(ct.Table, ct.Columns); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, ins := range []string{"INSERT p 1 [1,0]", "INSERT p 2 [0,1]"} {
		stmt := mustParse(t, ins).(*InsertStmt)
		if _, err := eng.Insert(stmt); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	search := mustParse(t, "SEARCH p emb [1,0] 1").(*SearchStmt)
	_, rows, _, err := eng.Search(search)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected k=1 result, got %d", len(rows))
	}
}

func TestLikeMatch(t *testing.T) {
	cases := []struct {
		s, p string
		want bool
	}{
		{"alice", "al%", true},
		{"alice", "a_ice", true},
		{"alice", "bob%", false},
		{"alice", "alice", true},
	}
	for _, c := range cases {
		if got := likeMatch(c.s, c.p); got != c.want {
			t.Fatalf("likeMatch(%q,%q) = %v, want %v", c.s, c.p, got, c.want)
		}
	}
}
