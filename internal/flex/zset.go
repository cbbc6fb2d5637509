package flex

import "github.com/UnSetSoft/ToriDB/internal/value"

func asZSet(cur value.Value) (map[string]float64, error) {
	switch cur.Kind {
	case value.KindNull:
		return nil, nil
	case value.KindSortedSet:
		return cur.SortedSet, nil
	default:
		return nil, &value.TypeMismatch{Op: "zset", Got: cur.Kind, Expected: "zset"}
	}
}

// ZAdd sets member's score within the sorted set at key.
func (s *Store) ZAdd(key, member string, score float64) error {
	return s.mutate(key, func(cur value.Value) (value.Value, error) {
		z, err := asZSet(cur)
		if err != nil {
			return cur, err
		}
		if z == nil {
			z = make(map[string]float64)
		}
		z[member] = score
		return value.Value{Kind: value.KindSortedSet, SortedSet: z}, nil
	})
}

// ZRange returns the inclusive [start,stop] slice of members ordered by
// score ascending (ties by member), supporting negative tail-relative
// indices the same way LRange does.
func (s *Store) ZRange(key string, start, stop int) ([]value.ZMember, error) {
	var out []value.ZMember
	var rerr error
	s.read(key, func(cur value.Value, ok bool) {
		if !ok {
			return
		}
		if cur.Kind != value.KindSortedSet {
			rerr = &value.TypeMismatch{Op: "zset", Got: cur.Kind, Expected: "zset"}
			return
		}
		members := cur.SortedMembers()
		n := len(members)
		lo := normalizeIndex(start, n)
		hi := normalizeIndex(stop, n)
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		if lo > hi || n == 0 {
			return
		}
		out = append(out, members[lo:hi+1]...)
	})
	return out, rerr
}

// ZScore returns member's score in the sorted set at key.
func (s *Store) ZScore(key, member string) (float64, bool, error) {
	var score float64
	var found bool
	var rerr error
	s.read(key, func(cur value.Value, ok bool) {
		if !ok {
			return
		}
		z, err := asZSet(cur)
		if err != nil {
			rerr = err
			return
		}
		score, found = z[member]
	})
	return score, found, rerr
}
