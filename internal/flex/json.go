package flex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

// splitPath normalizes the two accepted path syntaxes, `$.a.b` and
// `a->b->c`, into a plain list of path segments. An empty or "$" path
// addresses the document root.
func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" || path == "$" {
		return nil
	}
	if strings.HasPrefix(path, "$.") {
		return strings.Split(path[2:], ".")
	}
	if strings.HasPrefix(path, "$") {
		path = path[1:]
	}
	if strings.Contains(path, "->") {
		return strings.Split(path, "->")
	}
	return strings.Split(path, ".")
}

// JSONGet returns the JSON subtree at path within the document at key, or
// the whole document when path is empty/absent.
func (s *Store) JSONGet(key, path string) (string, bool, error) {
	var out string
	var found bool
	var rerr error
	s.read(key, func(cur value.Value, ok bool) {
		if !ok {
			return
		}
		if cur.Kind != value.KindJSON {
			rerr = &value.TypeMismatch{Op: "json", Got: cur.Kind, Expected: "json"}
			return
		}
		node, ok := navigate(cur.JSON, splitPath(path))
		if !ok {
			return
		}
		b, err := json.Marshal(node)
		if err != nil {
			rerr = err
			return
		}
		out = string(b)
		found = true
	})
	return out, found, rerr
}

// JSONSet parses literal as JSON and assigns it at path within the
// document at key, creating missing intermediate objects along the way.
// An empty path replaces the whole document.
func (s *Store) JSONSet(key, path, literal string) error {
	literal = strings.TrimSpace(literal)
	if unq, ok := unquoteJSONString(literal); ok {
		literal = unq
	}
	var parsed any
	if err := json.Unmarshal([]byte(literal), &parsed); err != nil {
		return fmt.Errorf("invalid json literal: %w", err)
	}
	segs := splitPath(path)
	return s.mutate(key, func(cur value.Value) (value.Value, error) {
		var root any
		if cur.Kind == value.KindJSON {
			root = cur.JSON
		}
		if len(segs) == 0 {
			root = parsed
		} else {
			var err error
			root, err = assign(root, segs, parsed)
			if err != nil {
				return cur, err
			}
		}
		return value.JSONValue(root), nil
	})
}

// unquoteJSONString accepts the wire-grammar convenience of a JSON.SET
// value that is itself wrapped in an outer pair of double quotes (a
// quoted JSON string literal) and unwraps it before parsing.
func unquoteJSONString(tok string) (string, bool) {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(tok), &s); err == nil {
			return s, true
		}
	}
	return tok, false
}

func navigate(node any, segs []string) (any, bool) {
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

func assign(root any, segs []string, val any) (any, error) {
	if len(segs) == 0 {
		return val, nil
	}
	m, ok := root.(map[string]any)
	if !ok {
		if root != nil {
			return nil, fmt.Errorf("cannot descend into non-object json node")
		}
		m = make(map[string]any)
	}
	if len(segs) == 1 {
		m[segs[0]] = val
		return m, nil
	}
	child, err := assign(m[segs[0]], segs[1:], val)
	if err != nil {
		return nil, err
	}
	m[segs[0]] = child
	return m, nil
}
