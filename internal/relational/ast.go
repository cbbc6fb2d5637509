package relational

import "github.com/UnSetSoft/ToriDB/internal/value"

// Expr is the predicate/projection expression AST. Concrete node types
// implement it as a marker.
type Expr interface{}

// ColRef is a bare or qualified column reference, optionally followed by a
// JSON path extraction (`col->path`).
type ColRef struct {
	Table    string
	Column   string
	JSONPath string
}

// Literal is a parsed constant value.
type Literal struct {
	Val value.Value
}

// BinaryExpr is `left OP right`, OP one of =,!=,<,<=,>,>=,LIKE,IN,AND,OR.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// InExpr is `expr IN (list...)`.
type InExpr struct {
	Left Expr
	List []Expr
}

// AggCall is COUNT/SUM/AVG/MAX/MIN applied to a column or `*`.
type AggCall struct {
	Func string
	Arg  Expr // nil for COUNT(*)
	Star bool
}

// Projection is one SELECT output item.
type Projection struct {
	Expr  Expr
	Alias string
}

// JoinClause is one `JOIN table ON left = right` tail.
type JoinClause struct {
	Table string
	Left  Expr
	Right Expr
}

// OrderTerm is one ORDER BY column with direction.
type OrderTerm struct {
	Col  ColRef
	Desc bool
}

// Statement is any parsed command.
type Statement interface{}

type CreateTableStmt struct {
	Table   string
	Columns []Column
}

type CreateIndexStmt struct {
	Name     string
	Table    string
	Column   string
	JSONPath string
	Kind     IndexKind
}

type AlterAddStmt struct {
	Table  string
	Column Column
}

type AlterDropStmt struct {
	Table  string
	Column string
}

type InsertStmt struct {
	Table  string
	Values []Expr
}

type Assignment struct {
	Column string
	Value  Expr
}

type UpdateStmt struct {
	Table string
	Sets  []Assignment
	Where Expr
}

type DeleteStmt struct {
	Table string
	Where Expr
}

type SelectStmt struct {
	Projections []Projection
	Star        bool
	From        string
	Joins       []JoinClause
	Where       Expr
	GroupBy     []ColRef
	Having      Expr
	OrderBy     []OrderTerm
	Limit       int
	HasLimit    bool
	Offset      int
}

type SearchStmt struct {
	Table  string
	Column string
	Pivot  []float64
	K      int
}
