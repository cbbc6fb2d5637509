package value

import (
	"encoding/json"
	"fmt"
)

// wireValue is the on-disk shape of a Value: a kind tag plus whichever
// field that kind populates. Used for snapshot persistence and nowhere
// else in the hot path (the keyspace and relational stores keep Values
// in memory as the struct itself).
type wireValue struct {
	Kind      string             `json:"kind"`
	Bool      bool               `json:"bool,omitempty"`
	Int64     int64              `json:"int,omitempty"`
	Float64   float64            `json:"float,omitempty"`
	Str       string             `json:"str,omitempty"`
	DateTime  int64              `json:"datetime,omitempty"`
	Vector    []float64          `json:"vector,omitempty"`
	JSON      any                `json:"json,omitempty"`
	List      []Value            `json:"list,omitempty"`
	Set       []string           `json:"set,omitempty"`
	SortedSet map[string]float64 `json:"zset,omitempty"`
	Hash      map[string]string  `json:"hash,omitempty"`
}

func kindFromString(s string) (Kind, error) {
	switch s {
	case "null":
		return KindNull, nil
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt64, nil
	case "float":
		return KindFloat64, nil
	case "string":
		return KindString, nil
	case "blob":
		return KindBlob, nil
	case "datetime":
		return KindDateTime, nil
	case "vector":
		return KindVector, nil
	case "json":
		return KindJSON, nil
	case "list":
		return KindList, nil
	case "set":
		return KindSet, nil
	case "zset":
		return KindSortedSet, nil
	case "hash":
		return KindHash, nil
	default:
		return KindNull, fmt.Errorf("value: unknown kind %q", s)
	}
}

// MarshalJSON renders v as a tagged object so snapshots round-trip every
// variant, including the ones encoding/json has no native representation
// for (Set, SortedSet, Vector).
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{
		Kind:      v.Kind.String(),
		Bool:      v.Bool,
		Int64:     v.Int64,
		Float64:   v.Float64,
		Str:       v.Str,
		DateTime:  v.DateTime,
		Vector:    v.Vector,
		JSON:      v.JSON,
		List:      v.List,
		SortedSet: v.SortedSet,
		Hash:      v.Hash,
	}
	if v.Set != nil {
		w.Set = make([]string, 0, len(v.Set))
		for m := range v.Set {
			w.Set = append(w.Set, m)
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the tagged object produced by MarshalJSON back
// into the matching Value variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := kindFromString(w.Kind)
	if err != nil {
		return err
	}
	*v = Value{
		Kind:      kind,
		Bool:      w.Bool,
		Int64:     w.Int64,
		Float64:   w.Float64,
		Str:       w.Str,
		DateTime:  w.DateTime,
		Vector:    w.Vector,
		JSON:      w.JSON,
		List:      w.List,
		SortedSet: w.SortedSet,
		Hash:      w.Hash,
	}
	if w.Set != nil {
		v.Set = make(map[string]struct{}, len(w.Set))
		for _, m := range w.Set {
			v.Set[m] = struct{}{}
		}
	}
	return nil
}
