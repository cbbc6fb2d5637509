package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseLiteral parses a bare token from the SQL-ish grammar or from a RESP
// bulk-string argument into a Value: numeric literals parse as Int64/Float64,
// true/false map to Bool, [f,f,...] is a Vector, {...} parses as Json, and
// everything else (including quoted strings, which are unquoted) is a String.
func ParseLiteral(tok string) Value {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "":
		return Null
	case strings.EqualFold(tok, "null"):
		return Null
	case strings.EqualFold(tok, "true"):
		return Bool(true)
	case strings.EqualFold(tok, "false"):
		return Bool(false)
	case strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]"):
		if vec, err := parseVectorLiteral(tok); err == nil {
			return Vector(vec)
		}
		return Str(tok)
	case strings.HasPrefix(tok, "{"):
		var v any
		if json.Unmarshal([]byte(tok), &v) == nil {
			return JSONValue(v)
		}
		return Str(tok)
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Int64(n)
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return Float64(f)
	}
	if unq, ok := unquote(tok); ok {
		return Str(unq)
	}
	return Str(tok)
}

func unquote(tok string) (string, bool) {
	if len(tok) < 2 {
		return tok, false
	}
	q := tok[0]
	if (q == '\'' || q == '"') && tok[len(tok)-1] == q {
		body := tok[1 : len(tok)-1]
		body = strings.ReplaceAll(body, `\`+string(q), string(q))
		return body, true
	}
	return tok, false
}

func parseVectorLiteral(tok string) ([]float64, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(tok, "["), "]")
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return []float64{}, nil
	}
	parts := strings.Split(inner, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ColumnKind mirrors the relational package's column type enum. It is kept
// as a separate, narrower type here (rather than imported) to avoid a
// value<->relational import cycle: value.Coerce needs to know the target
// kind, and relational.Column needs value.Value.
type ColumnKind int

const (
	ColInt ColumnKind = iota
	ColString
	ColFloat
	ColBool
	ColDateTime
	ColBlob
	ColVector
	ColJSON
)

func (c ColumnKind) String() string {
	switch c {
	case ColInt:
		return "int"
	case ColString:
		return "string"
	case ColFloat:
		return "float"
	case ColBool:
		return "bool"
	case ColDateTime:
		return "datetime"
	case ColBlob:
		return "blob"
	case ColVector:
		return "vector"
	case ColJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Coerce converts v to the target column kind, applying the same promotion
// rules as AsInt64/AsFloat64 where numeric, and parsing strings lazily for
// the non-numeric kinds.
func Coerce(v Value, kind ColumnKind) (Value, error) {
	if v.IsNull() {
		return Null, nil
	}
	switch kind {
	case ColInt:
		n, err := AsInt64(v)
		if err != nil {
			return Null, err
		}
		return Int64(n), nil
	case ColFloat:
		f, err := AsFloat64(v)
		if err != nil {
			return Null, err
		}
		return Float64(f), nil
	case ColBool:
		if v.Kind == KindBool {
			return v, nil
		}
		if v.Kind == KindString {
			b, err := strconv.ParseBool(v.Str)
			if err != nil {
				return Null, &TypeMismatch{Op: "Coerce", Got: v.Kind, Expected: "bool"}
			}
			return Bool(b), nil
		}
		return Null, &TypeMismatch{Op: "Coerce", Got: v.Kind, Expected: "bool"}
	case ColString, ColBlob:
		return Str(AsString(v)), nil
	case ColDateTime:
		if v.Kind == KindDateTime {
			return v, nil
		}
		n, err := AsInt64(v)
		if err != nil {
			return Null, &TypeMismatch{Op: "Coerce", Got: v.Kind, Expected: "datetime"}
		}
		return DateTime(n), nil
	case ColVector:
		if v.Kind == KindVector {
			return v, nil
		}
		if v.Kind == KindString {
			vec, err := parseVectorLiteral(v.Str)
			if err != nil {
				return Null, &TypeMismatch{Op: "Coerce", Got: v.Kind, Expected: "vector"}
			}
			return Vector(vec), nil
		}
		return Null, &TypeMismatch{Op: "Coerce", Got: v.Kind, Expected: "vector"}
	case ColJSON:
		if v.Kind == KindJSON {
			return v, nil
		}
		var parsed any
		if err := json.Unmarshal([]byte(AsString(v)), &parsed); err != nil {
			return JSONValue(AsString(v)), nil
		}
		return JSONValue(parsed), nil
	default:
		return v, nil
	}
}
