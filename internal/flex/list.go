package flex

import "github.com/UnSetSoft/ToriDB/internal/value"

func asList(cur value.Value) ([]value.Value, error) {
	switch cur.Kind {
	case value.KindNull:
		return nil, nil
	case value.KindList:
		return cur.List, nil
	default:
		return nil, &value.TypeMismatch{Op: "list", Got: cur.Kind, Expected: "list"}
	}
}

// LPush prepends members (in argument order, so the last argument ends up
// closest to the head) and returns the resulting length.
func (s *Store) LPush(key string, members ...value.Value) (int, error) {
	var length int
	err := s.mutate(key, func(cur value.Value) (value.Value, error) {
		l, err := asList(cur)
		if err != nil {
			return cur, err
		}
		for _, m := range members {
			l = append([]value.Value{m}, l...)
		}
		length = len(l)
		return value.Value{Kind: value.KindList, List: l}, nil
	})
	return length, err
}

// RPush appends members and returns the resulting length.
func (s *Store) RPush(key string, members ...value.Value) (int, error) {
	var length int
	err := s.mutate(key, func(cur value.Value) (value.Value, error) {
		l, err := asList(cur)
		if err != nil {
			return cur, err
		}
		l = append(l, members...)
		length = len(l)
		return value.Value{Kind: value.KindList, List: l}, nil
	})
	return length, err
}

// LPop removes and returns up to count elements from the head.
func (s *Store) LPop(key string, count int) ([]value.Value, error) {
	var popped []value.Value
	err := s.mutate(key, func(cur value.Value) (value.Value, error) {
		l, err := asList(cur)
		if err != nil {
			return cur, err
		}
		if count > len(l) {
			count = len(l)
		}
		popped = append(popped, l[:count]...)
		l = l[count:]
		return value.Value{Kind: value.KindList, List: l}, nil
	})
	return popped, err
}

// RPop removes and returns up to count elements from the tail, in
// tail-to-head order (most recently tail-pushed first).
func (s *Store) RPop(key string, count int) ([]value.Value, error) {
	var popped []value.Value
	err := s.mutate(key, func(cur value.Value) (value.Value, error) {
		l, err := asList(cur)
		if err != nil {
			return cur, err
		}
		if count > len(l) {
			count = len(l)
		}
		n := len(l)
		for i := 0; i < count; i++ {
			popped = append(popped, l[n-1-i])
		}
		l = l[:n-count]
		return value.Value{Kind: value.KindList, List: l}, nil
	})
	return popped, err
}

// LRange returns the inclusive [start,stop] slice of the list, supporting
// negative indices counted from the tail (-1 is the last element).
func (s *Store) LRange(key string, start, stop int) ([]value.Value, error) {
	var out []value.Value
	var rerr error
	s.read(key, func(cur value.Value, ok bool) {
		if !ok {
			return
		}
		l, err := asList(cur)
		if err != nil {
			rerr = err
			return
		}
		n := len(l)
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
		out = append(out, l[lo:hi+1]...)
	})
	return out, rerr
}

func normalizeIndex(i, n int) int {
	if i < 0 {
		i = n + i
	}
	return i
}
