// Package flex implements the flexible keyspace store: a sharded concurrent
// map from string key to (value.Value, optional expiry), plus the KV,
// list, set, hash, sorted-set, and JSON-path mutators layered on top.
//
// The store is sharded into a fixed number of independent sub-maps keyed by
// a hash of the key, each guarded by its own RWMutex. Readers of distinct
// shards proceed fully in parallel; writers only block other writers (or
// readers) of the same shard.
package flex

import (
	"hash/fnv"
	"runtime"
	"sync"
	"time"

	"github.com/UnSetSoft/ToriDB/internal/value"
)

const minShards = 16

type entry struct {
	val    value.Value
	expire time.Time // zero means no expiry
}

type shard struct {
	mu   sync.RWMutex
	data map[string]*entry
}

// Store is the sharded flexible keyspace for a single database.
type Store struct {
	shards []*shard
	mask   uint64
}

// New creates a Store. Shard count is rounded up to a power of two derived
// from runtime.NumCPU(), so shard contention scales with available
// parallelism rather than a fixed guess.
func New() *Store {
	n := runtime.NumCPU() * 4
	if n < minShards {
		n = minShards
	}
	shards := 1
	for shards < n {
		shards <<= 1
	}
	s := &Store{shards: make([]*shard, shards), mask: uint64(shards - 1)}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[string]*entry)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum64()&s.mask]
}

// withExpiry locks for write and evicts key if it has expired, reporting
// whether it was present (and live) before eviction was considered.
func (sh *shard) expireLocked(key string) {
	if e, ok := sh.data[key]; ok && !e.expire.IsZero() && !e.expire.After(time.Now()) {
		delete(sh.data, key)
	}
}

// Get returns the current value for key. ok is false for a missing or
// expired key (expired keys are evicted lazily on this read).
func (s *Store) Get(key string) (value.Value, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.data[key]
	if ok && !e.expire.IsZero() && !e.expire.After(time.Now()) {
		ok = false
	}
	if !ok {
		sh.mu.RUnlock()
		return value.Null, false
	}
	v := e.val
	sh.mu.RUnlock()
	return v, true
}

// Set stores v under key with no expiry, replacing any prior value/expiry.
func (s *Store) Set(key string, v value.Value) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.data[key] = &entry{val: v}
	sh.mu.Unlock()
}

// SetEx stores v under key with an expiry ttlSeconds from now.
func (s *Store) SetEx(key string, v value.Value, ttlSeconds int64) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.data[key] = &entry{val: v, expire: time.Now().Add(time.Duration(ttlSeconds) * time.Second)}
	sh.mu.Unlock()
}

// Del removes key, reporting whether it existed (and was live).
func (s *Store) Del(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.expireLocked(key)
	_, ok := sh.data[key]
	delete(sh.data, key)
	return ok
}

// TTL returns remaining seconds until expiry (>=0), -1 if key has no
// expiry, or -2 if key is missing or already expired.
func (s *Store) TTL(key string) int64 {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.expireLocked(key)
	e, ok := sh.data[key]
	if !ok {
		return -2
	}
	if e.expire.IsZero() {
		return -1
	}
	remain := time.Until(e.expire)
	if remain < 0 {
		return -2
	}
	return int64(remain.Seconds())
}

// Incr adds delta to the Int64 value stored at key (default 0 if missing),
// storing and returning the new value. Fails with a *value.TypeMismatch if
// the current value is not Int64-coercible.
func (s *Store) Incr(key string, delta int64) (int64, error) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.expireLocked(key)
	var cur value.Value = value.Int64(0)
	if e, ok := sh.data[key]; ok {
		cur = e.val
	}
	n, err := value.AsInt64(cur)
	if err != nil {
		return 0, err
	}
	n += delta
	if e, ok := sh.data[key]; ok {
		e.val = value.Int64(n)
	} else {
		sh.data[key] = &entry{val: value.Int64(n)}
	}
	return n, nil
}

// Sweep evicts every expired key across all shards and returns the count
// removed. Intended to be driven by the scheduler's periodic tick.
func (s *Store) Sweep() int {
	now := time.Now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.data {
			if !e.expire.IsZero() && !e.expire.After(now) {
				delete(sh.data, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Keys returns a snapshot of all live (non-expired) keys, used by SAVE and
// REWRITEAOF. Expired keys are skipped but not evicted by this call.
func (s *Store) Keys() []string {
	now := time.Now()
	var out []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, e := range sh.data {
			if e.expire.IsZero() || e.expire.After(now) {
				out = append(out, k)
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// ExpireAt returns the absolute expiry time for key (zero if it has no
// expiry) and whether key is currently present. Used by SAVE to persist
// exact expiry instants rather than a relative TTL that would drift by
// however long the snapshot takes to write.
func (s *Store) ExpireAt(key string) (time.Time, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.data[key]
	if !ok {
		return time.Time{}, false
	}
	if !e.expire.IsZero() && !e.expire.After(time.Now()) {
		return time.Time{}, false
	}
	return e.expire, true
}

// Restore installs v under key with an absolute expiry instant (zero for
// no expiry), used by snapshot load and log replay to repopulate the
// store without going through the relative-TTL Set/SetEx API.
func (s *Store) Restore(key string, v value.Value, expireAt time.Time) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.data[key] = &entry{val: v, expire: expireAt}
	sh.mu.Unlock()
}

// mutate runs fn against the entry at key under the shard's write lock,
// creating a fresh Null entry first if key is absent or expired. It is the
// shared plumbing for the List/Set/Hash/SortedSet/JSON mutators below.
func (s *Store) mutate(key string, fn func(cur value.Value) (value.Value, error)) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.expireLocked(key)
	var cur value.Value = value.Null
	if e, ok := sh.data[key]; ok {
		cur = e.val
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if e, ok := sh.data[key]; ok {
		e.val = next
	} else {
		sh.data[key] = &entry{val: next}
	}
	return nil
}

// read runs fn against the current entry at key under the shard's read
// lock, passing value.Null (ok=false) if key is absent or expired.
func (s *Store) read(key string, fn func(cur value.Value, ok bool)) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.data[key]
	if ok && !e.expire.IsZero() && !e.expire.After(time.Now()) {
		ok = false
	}
	if ok {
		fn(e.val, true)
	} else {
		fn(value.Null, false)
	}
	sh.mu.RUnlock()
}
