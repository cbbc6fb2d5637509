// Package value implements the tagged value union shared by the keyspace
// store, the relational store, and the vector column.
//
// What: a small closed set of variants (Null, Bool, Int64, Float64, String,
// Blob, DateTime, Vector, Json, List, Set, SortedSet, Hash) with pairwise
// comparison and coercion rules. How: a Go struct carrying a Kind tag plus
// one populated field per variant, with operations dispatching on Kind via
// type switch/enum rather than an interface hierarchy — cheap to compare,
// cheap to copy the tag, and easy to serialize. Why: the engine needs one
// concrete type it can pass through the keyspace, the relational rows, and
// the wire encoder without an allocation-heavy interface per value.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
	KindBlob
	KindDateTime
	KindVector
	KindJSON
	KindList
	KindSet
	KindSortedSet
	KindHash
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int"
	case KindFloat64:
		return "float"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	case KindDateTime:
		return "datetime"
	case KindVector:
		return "vector"
	case KindJSON:
		return "json"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindSortedSet:
		return "zset"
	case KindHash:
		return "hash"
	default:
		return "unknown"
	}
}

// ZMember is one member/score pair of a SortedSet, kept in score-then-member
// order by the owning Value.
type ZMember struct {
	Member string
	Score  float64
}

// Value is the tagged union. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	Bool     bool
	Int64    int64
	Float64  float64
	Str      string // used by KindString and KindBlob (Blob keeps raw bytes as string)
	DateTime int64  // epoch milliseconds
	Vector   []float64
	JSON     any // tree of nil/bool/float64/string/[]any/map[string]any

	List []Value
	// Set stores deduplicated string members.
	Set map[string]struct{}
	// SortedSet stores members ordered by score then member.
	SortedSet map[string]float64
	// Hash stores field -> value (string), insertion order irrelevant.
	Hash map[string]string
}

// Null is the shared Null value.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func Int64(i int64) Value     { return Value{Kind: KindInt64, Int64: i} }
func Float64(f float64) Value { return Value{Kind: KindFloat64, Float64: f} }
func Str(s string) Value      { return Value{Kind: KindString, Str: s} }
func Blob(b []byte) Value     { return Value{Kind: KindBlob, Str: string(b)} }
func DateTime(ms int64) Value { return Value{Kind: KindDateTime, DateTime: ms} }
func Vector(v []float64) Value {
	cp := make([]float64, len(v))
	copy(cp, v)
	return Value{Kind: KindVector, Vector: cp}
}
func JSONValue(v any) Value { return Value{Kind: KindJSON, JSON: v} }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// TypeMismatch is returned whenever two variants cannot be compared or an
// operation is attempted against the wrong variant.
type TypeMismatch struct {
	Op       string
	Got      Kind
	Expected string
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("wrongtype: %s expected %s, got %s", e.Op, e.Expected, e.Got)
}

// AsInt64 coerces a Value to int64, following the incr/decr coercion rule:
// Int64 passes through, Float64 truncates, numeric strings parse, missing
// (Null) defaults to 0. Anything else is a TypeMismatch.
func AsInt64(v Value) (int64, error) {
	switch v.Kind {
	case KindNull:
		return 0, nil
	case KindInt64:
		return v.Int64, nil
	case KindFloat64:
		return int64(v.Float64), nil
	case KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, &TypeMismatch{Op: "AsInt64", Got: v.Kind, Expected: "int"}
		}
		return n, nil
	default:
		return 0, &TypeMismatch{Op: "AsInt64", Got: v.Kind, Expected: "int"}
	}
}

// AsFloat64 coerces a Value to float64 for numeric comparisons/aggregation.
func AsFloat64(v Value) (float64, error) {
	switch v.Kind {
	case KindNull:
		return 0, nil
	case KindInt64:
		return float64(v.Int64), nil
	case KindFloat64:
		return v.Float64, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, &TypeMismatch{Op: "AsFloat64", Got: v.Kind, Expected: "float"}
		}
		return f, nil
	default:
		return 0, &TypeMismatch{Op: "AsFloat64", Got: v.Kind, Expected: "float"}
	}
}

// AsString renders a Value's scalar textual form; used for wire encoding
// and for members of Set/SortedSet/Hash which are always strings.
func AsString(v Value) string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt64:
		return strconv.FormatInt(v.Int64, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.Float64, 'g', -1, 64)
	case KindString, KindBlob:
		return v.Str
	case KindDateTime:
		return strconv.FormatInt(v.DateTime, 10)
	case KindJSON:
		b, _ := json.Marshal(v.JSON)
		return string(b)
	default:
		return ""
	}
}

// Compare orders two values of the same or numerically-compatible variant.
// Returns -1, 0, 1. Cross-variant comparisons that aren't numeric promotion
// return a TypeMismatch.
func Compare(a, b Value) (int, error) {
	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		af, _ := AsFloat64(a)
		bf, _ := AsFloat64(b)
		return cmpFloat(af, bf), nil
	}
	if a.Kind != b.Kind {
		return 0, &TypeMismatch{Op: "Compare", Got: b.Kind, Expected: a.Kind.String()}
	}
	switch a.Kind {
	case KindNull:
		return 0, nil
	case KindBool:
		if a.Bool == b.Bool {
			return 0, nil
		}
		if !a.Bool {
			return -1, nil
		}
		return 1, nil
	case KindString, KindBlob:
		return strings.Compare(a.Str, b.Str), nil
	case KindDateTime:
		return cmpFloat(float64(a.DateTime), float64(b.DateTime)), nil
	default:
		return 0, &TypeMismatch{Op: "Compare", Got: a.Kind, Expected: "orderable"}
	}
}

func isNumeric(k Kind) bool { return k == KindInt64 || k == KindFloat64 }

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports value equality for IN/= predicate evaluation. Unlike
// Compare it never errors: incomparable variants are simply unequal.
func Equal(a, b Value) bool {
	n, err := Compare(a, b)
	if err != nil {
		return false
	}
	return n == 0
}

// SortedMembers returns a SortedSet's members ordered by score ascending,
// ties broken by member name, matching the ZRANGE/index ordering rule.
func (v Value) SortedMembers() []ZMember {
	out := make([]ZMember, 0, len(v.SortedSet))
	for m, s := range v.SortedSet {
		out = append(out, ZMember{Member: m, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}
