package flex

import "github.com/UnSetSoft/ToriDB/internal/value"

func asHash(cur value.Value) (map[string]string, error) {
	switch cur.Kind {
	case value.KindNull:
		return nil, nil
	case value.KindHash:
		return cur.Hash, nil
	default:
		return nil, &value.TypeMismatch{Op: "hash", Got: cur.Kind, Expected: "hash"}
	}
}

// HSet sets field to val within the hash at key, reporting whether field
// was newly created (as opposed to overwritten).
func (s *Store) HSet(key, field, val string) (bool, error) {
	created := false
	err := s.mutate(key, func(cur value.Value) (value.Value, error) {
		h, err := asHash(cur)
		if err != nil {
			return cur, err
		}
		if h == nil {
			h = make(map[string]string)
		}
		if _, exists := h[field]; !exists {
			created = true
		}
		h[field] = val
		return value.Value{Kind: value.KindHash, Hash: h}, nil
	})
	return created, err
}

// HGet returns the value of field in the hash at key.
func (s *Store) HGet(key, field string) (string, bool, error) {
	var out string
	var found bool
	var rerr error
	s.read(key, func(cur value.Value, ok bool) {
		if !ok {
			return
		}
		h, err := asHash(cur)
		if err != nil {
			rerr = err
			return
		}
		out, found = h[field]
	})
	return out, found, rerr
}

// HGetAll returns every field/value pair in the hash at key.
func (s *Store) HGetAll(key string) (map[string]string, error) {
	var out map[string]string
	var rerr error
	s.read(key, func(cur value.Value, ok bool) {
		if !ok {
			return
		}
		h, err := asHash(cur)
		if err != nil {
			rerr = err
			return
		}
		out = make(map[string]string, len(h))
		for k, v := range h {
			out[k] = v
		}
	})
	return out, rerr
}
