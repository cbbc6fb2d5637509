package dispatcher

import (
	"strconv"
	"strings"

	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/relational"
	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/value"
)

// rejoin reconstructs a parseable command string from a verb and its split
// wire arguments. Each wire argument arrived as one RESP bulk string and is
// therefore one grammar token; any argument containing whitespace is quoted
// so it survives re-tokenization as a single string literal rather than
// splitting back into several bare words.
func rejoin(verb string, args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = sqlToken(a)
	}
	return verb + " " + strings.Join(parts, " ")
}

func sqlToken(tok string) string {
	if tok == "" {
		return "''"
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		var b strings.Builder
		b.WriteByte('\'')
		for _, r := range tok {
			if r == '\'' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('\'')
		return b.String()
	}
	return tok
}

func (d *Dispatcher) execSQL(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	stmt, err := relational.NewParser(rejoin(verb, args)).ParseStatement()
	if err != nil {
		return resp.Err(resp.ErrParse, err.Error()), nil
	}
	switch s := stmt.(type) {
	case *relational.CreateTableStmt:
		if _, err := db.Catalog.CreateTable(s.Table, s.Columns); err != nil {
			return resp.Err(resp.ErrSchemaViolation, err.Error()), nil
		}
		return resp.OK(), nil

	case *relational.CreateIndexStmt:
		if err := db.Engine.CreateIndex(s); err != nil {
			return resp.Err(resp.ErrSchemaViolation, err.Error()), nil
		}
		return resp.OK(), nil

	case *relational.AlterAddStmt:
		t, ok := db.Catalog.Table(s.Table)
		if !ok {
			return resp.Err(resp.ErrNotFound, "table does not exist"), nil
		}
		if err := t.AddColumn(s.Column); err != nil {
			return resp.Err(resp.ErrSchemaViolation, err.Error()), nil
		}
		return resp.OK(), nil

	case *relational.AlterDropStmt:
		t, ok := db.Catalog.Table(s.Table)
		if !ok {
			return resp.Err(resp.ErrNotFound, "table does not exist"), nil
		}
		if err := t.DropColumn(s.Column); err != nil {
			return resp.Err(resp.ErrSchemaViolation, err.Error()), nil
		}
		return resp.OK(), nil

	case *relational.InsertStmt:
		undo, err := db.Engine.Insert(s)
		if err != nil {
			return resp.Err(classifySQLErr(err), err.Error()), nil
		}
		return resp.Int(1), func() { undo() }

	case *relational.UpdateStmt:
		n, undo, err := db.Engine.Update(s)
		if err != nil {
			var uf func()
			if undo != nil {
				uf = func() { undo() }
			}
			return resp.Err(classifySQLErr(err), err.Error()), uf
		}
		return resp.Int(int64(n)), func() {
			if undo != nil {
				undo()
			}
		}

	case *relational.DeleteStmt:
		n, undo, err := db.Engine.Delete(s)
		if err != nil {
			return resp.Err(classifySQLErr(err), err.Error()), nil
		}
		return resp.Int(int64(n)), func() {
			if undo != nil {
				undo()
			}
		}

	case *relational.SelectStmt:
		cols, rows, err := db.Engine.Select(s)
		if err != nil {
			return resp.Err(classifySQLErr(err), err.Error()), nil
		}
		return renderRows(cols, rows), nil

	case *relational.SearchStmt:
		_, rows, sims, err := db.Engine.Search(s)
		if err != nil {
			return resp.Err(classifySQLErr(err), err.Error()), nil
		}
		items := make([]resp.Reply, len(rows))
		for i, r := range rows {
			inner := make([]resp.Reply, 0, len(r.Values)+1)
			for _, v := range r.Values {
				inner = append(inner, resp.BulkString(value.AsString(v)))
			}
			inner = append(inner, resp.BulkString(strconv.FormatFloat(sims[i], 'g', -1, 64)))
			items[i] = resp.Array(inner)
		}
		return resp.Array(items), nil

	default:
		return resp.Err(resp.ErrParse, "unsupported statement"), nil
	}
}

func renderRows(cols []string, rows []relational.ResultRow) resp.Reply {
	_ = cols
	items := make([]resp.Reply, len(rows))
	for i, r := range rows {
		inner := make([]resp.Reply, len(r.Values))
		for j, v := range r.Values {
			inner[j] = resp.BulkString(value.AsString(v))
		}
		items[i] = resp.Array(inner)
	}
	return resp.Array(items)
}

// classifySQLErr maps a relational engine error to its wire category. The
// engine returns plain errors rather than typed ones, so this matches on
// the message text it's known to produce.
func classifySQLErr(err error) resp.ErrKind {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key"):
		return resp.ErrDuplicateKey
	case strings.Contains(msg, "does not exist") || strings.Contains(msg, "unknown column"):
		return resp.ErrNotFound
	case strings.Contains(msg, "wrongtype"):
		return resp.ErrTypeMismatch
	default:
		return resp.ErrSchemaViolation
	}
}
