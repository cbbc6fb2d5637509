package relational

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

// Parser is a recursive-descent parser over the command grammar: CREATE
// TABLE/INDEX, ALTER TABLE, INSERT, UPDATE, DELETE, SELECT, and SEARCH.
type Parser struct {
	lx   *lexer
	cur  token
	peek token
}

// NewParser tokenizes s (which must not include the leading verb already
// consumed by the dispatcher) lazily as the parser advances.
func NewParser(s string) *Parser {
	p := &Parser{lx: newLexer(s)}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() { p.cur, p.peek = p.peek, p.lx.nextToken() }

func (p *Parser) errf(format string, a ...any) error {
	return fmt.Errorf("syntax error near pos %d: %s", p.cur.Pos, fmt.Sprintf(format, a...))
}

func (p *Parser) expectKeyword(kw string) error {
	if p.cur.Typ != tKeyword || p.cur.Val != kw {
		return p.errf("expected %s, got %q", kw, p.cur.Val)
	}
	p.next()
	return nil
}

func (p *Parser) expectSymbol(sym string) error {
	if p.cur.Typ != tSymbol || p.cur.Val != sym {
		return p.errf("expected %q, got %q", sym, p.cur.Val)
	}
	p.next()
	return nil
}

func (p *Parser) isKeyword(kw string) bool { return p.cur.Typ == tKeyword && p.cur.Val == kw }
func (p *Parser) isSymbol(sym string) bool { return p.cur.Typ == tSymbol && p.cur.Val == sym }

// ParseStatement dispatches on the leading keyword.
func (p *Parser) ParseStatement() (Statement, error) {
	switch {
	case p.isKeyword("CREATE"):
		return p.parseCreate()
	case p.isKeyword("ALTER"):
		return p.parseAlter()
	case p.isKeyword("INSERT"):
		return p.parseInsert()
	case p.isKeyword("UPDATE"):
		return p.parseUpdate()
	case p.isKeyword("DELETE"):
		return p.parseDelete()
	case p.isKeyword("SELECT"):
		return p.parseSelect()
	case p.isKeyword("SEARCH"):
		return p.parseSearch()
	default:
		return nil, p.errf("unrecognized statement starting at %q", p.cur.Val)
	}
}

// parseSearch parses `SEARCH table column [f,f,...] k`: a positional vector
// KNN query, not predicate-based like SELECT.
func (p *Parser) parseSearch() (Statement, error) {
	p.next() // SEARCH
	table := p.cur.Val
	p.next()
	col := p.cur.Val
	p.next()
	pivotExpr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	lit, ok := pivotExpr.(*Literal)
	if !ok || lit.Val.Kind != value.KindVector {
		return nil, p.errf("SEARCH expects a vector literal pivot")
	}
	k, err := strconv.Atoi(p.cur.Val)
	if err != nil {
		return nil, p.errf("SEARCH expects an integer k, got %q", p.cur.Val)
	}
	p.next()
	return &SearchStmt{Table: table, Column: col, Pivot: lit.Val.Vector, K: k}, nil
}

func (p *Parser) parseCreate() (Statement, error) {
	p.next() // CREATE
	switch {
	case p.isKeyword("TABLE"):
		p.next()
		name := p.cur.Val
		p.next()
		cols, err := p.parseColumnDefs()
		if err != nil {
			return nil, err
		}
		return &CreateTableStmt{Table: name, Columns: cols}, nil
	case p.isKeyword("INDEX"):
		p.next()
		idxName := p.cur.Val
		p.next()
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		table := p.cur.Val
		p.next()
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		col := p.cur.Val
		p.next()
		path := ""
		kind := IndexHash
		if p.isSymbol("->") {
			p.next()
			path = p.cur.Val
			p.next()
			kind = IndexJSONPath
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return &CreateIndexStmt{Name: idxName, Table: table, Column: col, JSONPath: path, Kind: kind}, nil
	default:
		return nil, p.errf("expected TABLE or INDEX after CREATE")
	}
}

func (p *Parser) parseAlter() (Statement, error) {
	p.next() // ALTER
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table := p.cur.Val
	p.next()
	switch {
	case p.isKeyword("ADD"):
		p.next()
		raw := strings.Fields(p.lx.s[p.cur.Pos:])
		if len(raw) == 0 {
			return nil, p.errf("expected a column definition after ADD")
		}
		col, err := parseSingleColumnDef(raw[0])
		if err != nil {
			return nil, err
		}
		p.cur, p.peek = token{Typ: tEOF}, token{Typ: tEOF}
		return &AlterAddStmt{Table: table, Column: col}, nil
	case p.isKeyword("DROP"):
		p.next()
		name := p.cur.Val
		p.next()
		return &AlterDropStmt{Table: table, Column: name}, nil
	default:
		return nil, p.errf("expected ADD or DROP after ALTER TABLE")
	}
}

// parseColumnDefs parses the trailing `col1:type[:pk][:fk(t.c)] …` list.
// This sub-grammar is colon-separated and space-delimited rather than
// token-punctuated like predicates/literals, so it is parsed directly off
// the remaining raw source (from the current token's position onward)
// instead of through the symbol-level lexer.
func (p *Parser) parseColumnDefs() ([]Column, error) {
	raw := p.lx.s[p.cur.Pos:]
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, p.errf("expected at least one column definition")
	}
	var cols []Column
	for _, spec := range fields {
		col, err := parseSingleColumnDef(spec)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	p.cur, p.peek = token{Typ: tEOF}, token{Typ: tEOF}
	return cols, nil
}

func parseSingleColumnDef(spec string) (Column, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 {
		return Column{}, fmt.Errorf("malformed column definition %q", spec)
	}
	col := Column{Name: parts[0]}
	typ, err := parseColumnType(parts[1])
	if err != nil {
		return Column{}, err
	}
	col.Type = typ
	for _, mod := range parts[2:] {
		switch {
		case mod == "pk":
			col.IsPK = true
		case strings.HasPrefix(mod, "fk(") && strings.HasSuffix(mod, ")"):
			inner := strings.TrimSuffix(strings.TrimPrefix(mod, "fk("), ")")
			tc := strings.SplitN(inner, ".", 2)
			if len(tc) == 2 {
				col.FK = &ForeignKey{Table: tc[0], Column: tc[1]}
			}
		}
	}
	return col, nil
}

func parseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(s) {
	case "int":
		return TypeInt, nil
	case "string":
		return TypeString, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "datetime":
		return TypeDateTime, nil
	case "blob":
		return TypeBlob, nil
	case "vector":
		return TypeVector, nil
	case "json":
		return TypeJSON, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", s)
	}
}

func (p *Parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	table := p.cur.Val
	p.next()
	var vals []Expr
	for p.cur.Typ != tEOF {
		e, err := p.parseInsertLiteral()
		if err != nil {
			return nil, err
		}
		vals = append(vals, e)
	}
	return &InsertStmt{Table: table, Values: vals}, nil
}

// parseInsertLiteral parses one positional INSERT value. Unlike predicate
// primaries, a bare identifier here is a literal string (INSERT has no
// column references), matching the "strings are unquoted" coercion rule.
func (p *Parser) parseInsertLiteral() (Expr, error) {
	if p.cur.Typ == tIdent {
		lit := value.Str(p.cur.Val)
		p.next()
		return &Literal{Val: lit}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	table := p.cur.Val
	p.next()
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	var sets []Assignment
	for {
		col := p.cur.Val
		p.next()
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		v, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		sets = append(sets, Assignment{Column: col, Value: v})
		if p.isSymbol(",") {
			p.next()
			continue
		}
		break
	}
	var where Expr
	if p.isKeyword("WHERE") {
		p.next()
		var err error
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &UpdateStmt{Table: table, Sets: sets, Where: where}, nil
}

func (p *Parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table := p.cur.Val
	p.next()
	var where Expr
	if p.isKeyword("WHERE") {
		p.next()
		var err error
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &DeleteStmt{Table: table, Where: where}, nil
}

func (p *Parser) parseSelect() (Statement, error) {
	p.next() // SELECT
	sel := &SelectStmt{}
	if p.isSymbol("*") {
		sel.Star = true
		p.next()
	} else {
		for {
			proj, err := p.parseProjection()
			if err != nil {
				return nil, err
			}
			sel.Projections = append(sel.Projections, proj)
			if p.isSymbol(",") {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	sel.From = p.cur.Val
	p.next()
	for p.isKeyword("JOIN") {
		p.next()
		jc := JoinClause{Table: p.cur.Val}
		p.next()
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		left, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		jc.Left, jc.Right = left, right
		sel.Joins = append(sel.Joins, jc)
	}
	if p.isKeyword("WHERE") {
		p.next()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = w
	}
	if p.isKeyword("GROUP") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			sel.GroupBy = append(sel.GroupBy, ColRef{Column: p.cur.Val})
			p.next()
			if p.isSymbol(",") {
				p.next()
				continue
			}
			break
		}
	}
	if p.isKeyword("HAVING") {
		p.next()
		h, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Having = h
	}
	if p.isKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			term := OrderTerm{Col: ColRef{Column: p.cur.Val}}
			p.next()
			if p.isKeyword("DESC") {
				term.Desc = true
				p.next()
			} else if p.isKeyword("ASC") {
				p.next()
			}
			sel.OrderBy = append(sel.OrderBy, term)
			if p.isSymbol(",") {
				p.next()
				continue
			}
			break
		}
	}
	if p.isKeyword("LIMIT") {
		p.next()
		n, err := strconv.Atoi(p.cur.Val)
		if err != nil {
			return nil, p.errf("invalid LIMIT value %q", p.cur.Val)
		}
		sel.Limit, sel.HasLimit = n, true
		p.next()
	}
	if p.isKeyword("OFFSET") {
		p.next()
		n, err := strconv.Atoi(p.cur.Val)
		if err != nil {
			return nil, p.errf("invalid OFFSET value %q", p.cur.Val)
		}
		sel.Offset = n
		p.next()
	}
	return sel, nil
}

func (p *Parser) parseProjection() (Projection, error) {
	if p.cur.Typ == tIdent && p.peek.Typ == tSymbol && p.peek.Val == "(" {
		fn := strings.ToUpper(p.cur.Val)
		p.next()
		p.next() // (
		if p.isSymbol("*") {
			p.next()
			if err := p.expectSymbol(")"); err != nil {
				return Projection{}, err
			}
			return Projection{Expr: &AggCall{Func: fn, Star: true}}, nil
		}
		arg, err := p.parsePrimary()
		if err != nil {
			return Projection{}, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return Projection{}, err
		}
		return Projection{Expr: &AggCall{Func: fn, Arg: arg}}, nil
	}
	e, err := p.parsePrimary()
	if err != nil {
		return Projection{}, err
	}
	return Projection{Expr: e}, nil
}

// --- expression precedence climbing: OR > AND > comparison > primary ---

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.next()
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseCmp() (Expr, error) {
	if p.isSymbol("(") {
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch {
	case p.isSymbol("=") || p.isSymbol("!=") || p.isSymbol("<") || p.isSymbol("<=") || p.isSymbol(">") || p.isSymbol(">="):
		op := p.cur.Val
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	case p.isKeyword("LIKE"):
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: "LIKE", Left: left, Right: right}, nil
	case p.isKeyword("IN"):
		p.next()
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var list []Expr
		for {
			e, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			list = append(list, e)
			if p.isSymbol(",") {
				p.next()
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return &InExpr{Left: left, List: list}, nil
	default:
		return left, nil
	}
}

// parsePrimary parses a column reference (with optional `table.col` or
// `col->path`), a literal, or a parenthesized sub-expression.
func (p *Parser) parsePrimary() (Expr, error) {
	switch p.cur.Typ {
	case tIdent:
		ref := ColRef{Column: p.cur.Val}
		p.next()
		if p.isSymbol(".") {
			p.next()
			ref.Table = ref.Column
			ref.Column = p.cur.Val
			p.next()
		}
		if p.isSymbol("->") {
			p.next()
			ref.JSONPath = p.cur.Val
			p.next()
		}
		return &ref, nil
	case tNumber:
		lit := value.ParseLiteral(p.cur.Val)
		p.next()
		return &Literal{Val: lit}, nil
	case tString:
		lit := value.Str(p.cur.Val)
		p.next()
		return &Literal{Val: lit}, nil
	case tKeyword:
		switch p.cur.Val {
		case "TRUE", "FALSE":
			b := p.cur.Val == "TRUE"
			p.next()
			return &Literal{Val: value.Bool(b)}, nil
		case "NULL":
			p.next()
			return &Literal{Val: value.Null}, nil
		}
		return nil, p.errf("unexpected keyword %q in expression", p.cur.Val)
	case tSymbol:
		if p.cur.Val == "[" {
			return p.parseVectorLiteral()
		}
		if p.cur.Val == "{" {
			return p.parseJSONLiteral()
		}
		return nil, p.errf("unexpected symbol %q in expression", p.cur.Val)
	default:
		return nil, p.errf("unexpected end of input in expression")
	}
}

func (p *Parser) parseVectorLiteral() (Expr, error) {
	var sb strings.Builder
	depth := 0
	for {
		sb.WriteString(p.cur.Val)
		if p.cur.Val == "[" {
			depth++
		}
		p.next()
		if depth == 1 && p.isSymbol("]") {
			sb.WriteString("]")
			p.next()
			break
		}
		if p.isSymbol(",") {
			sb.WriteString(",")
			p.next()
		}
	}
	lit := value.ParseLiteral(sb.String())
	return &Literal{Val: lit}, nil
}

func (p *Parser) parseJSONLiteral() (Expr, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok := p.cur.Val
		if p.cur.Typ == tString {
			tok = `"` + strings.ReplaceAll(tok, `"`, `\"`) + `"`
		}
		sb.WriteString(tok)
		if p.cur.Typ == tSymbol && p.cur.Val == "{" {
			depth++
		}
		if p.cur.Typ == tSymbol && p.cur.Val == "}" {
			depth--
		}
		p.next()
		if depth == 0 {
			break
		}
		if p.isSymbol(":") || p.isSymbol(",") {
			sb.WriteString(p.cur.Val)
			p.next()
		}
	}
	lit := value.ParseLiteral(sb.String())
	return &Literal{Val: lit}, nil
}
