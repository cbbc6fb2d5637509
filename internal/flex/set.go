package flex

import "github.com/UnSetSoft/ToriDB/internal/value"

func asSet(cur value.Value) (map[string]struct{}, error) {
	switch cur.Kind {
	case value.KindNull:
		return nil, nil
	case value.KindSet:
		return cur.Set, nil
	default:
		return nil, &value.TypeMismatch{Op: "set", Got: cur.Kind, Expected: "set"}
	}
}

// SAdd adds members to the set at key, returning the number of members
// actually added (excluding duplicates already present).
func (s *Store) SAdd(key string, members ...string) (int, error) {
	added := 0
	err := s.mutate(key, func(cur value.Value) (value.Value, error) {
		set, err := asSet(cur)
		if err != nil {
			return cur, err
		}
		if set == nil {
			set = make(map[string]struct{}, len(members))
		}
		for _, m := range members {
			if _, exists := set[m]; !exists {
				set[m] = struct{}{}
				added++
			}
		}
		return value.Value{Kind: value.KindSet, Set: set}, nil
	})
	return added, err
}

// SMembers returns all members of the set at key, or nil if missing.
func (s *Store) SMembers(key string) ([]string, error) {
	var out []string
	var rerr error
	s.read(key, func(cur value.Value, ok bool) {
		if !ok {
			return
		}
		set, err := asSet(cur)
		if err != nil {
			rerr = err
			return
		}
		out = make([]string, 0, len(set))
		for m := range set {
			out = append(out, m)
		}
	})
	return out, rerr
}
