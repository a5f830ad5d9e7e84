// Package refcache implements a concurrent keyed cache whose entries are
// pinned against eviction by outstanding handles.
//
// Entries are immutable once inserted, carry a monotonically increasing
// sequence number assigned at insertion, and are reclaimed cooperatively: a
// handle never removes an entry, only the Cache.DropUnused and
// Cache.DropUnusedButLast methods do, and only for entries with no live
// handles. Keys may optionally expose a "supports" relation for range-like
// lookups, see EntryFor.
package refcache

import (
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/slices"
)

// evicting marks a use-count record claimed by eviction. An entry's count
// moves to evicting only from zero, so a live handle can never observe it.
const evicting = math.MinInt32

type entry[V any] struct {
	value V
	seq   uint64
	uses  *atomic.Int32
}

// acquire pins the entry, failing if it has been claimed by eviction.
func (x *entry[V]) acquire() bool {
	for {
		v := x.uses.Load()
		if v < 0 {
			return false
		}
		if x.uses.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

// Cache is a concurrent, reference-counted cache from K to V. Instances must
// be initialized using the New factory, and must not be copied.
//
// All methods except ShrinkToFit are safe for concurrent use.
type Cache[K comparable, V any] struct {
	// entries maps K -> *entry[V], the live entries.
	entries sync.Map
	// counts maps K -> *atomic.Int32, the authoritative set of known keys.
	// A key's record survives eviction of its entry; the table only shrinks
	// via ShrinkToFit.
	counts sync.Map
	// mu serializes the insert slow path and eviction candidacy; lookups and
	// the insert fast path are lock-free.
	mu       sync.Mutex
	size     atomic.Int64
	capacity atomic.Int64
	nextSeq  atomic.Uint64
}

// New initializes an empty Cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{}
}

// Emplace inserts value under key, returning a handle to the entry. If key is
// already present, the existing entry is returned unchanged and value is
// discarded. The returned handle is always valid.
func (x *Cache[K, V]) Emplace(key K, value V) Handle[K, V] {
	if v, ok := x.entries.Load(key); ok {
		if e := v.(*entry[V]); e.acquire() {
			return Handle[K, V]{key: key, entry: e, valid: true}
		}
		// Claimed by a concurrent eviction; insert anew below.
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if v, ok := x.entries.Load(key); ok {
		// Evictions hold mu, so the entry cannot be claimed from under us.
		e := v.(*entry[V])
		e.acquire()
		return Handle[K, V]{key: key, entry: e, valid: true}
	}

	uses := new(atomic.Int32)
	e := &entry[V]{value: value, seq: x.nextSeq.Add(1) - 1, uses: uses}
	if _, known := x.counts.Load(key); !known {
		x.capacity.Add(1)
	}
	x.counts.Store(key, uses)
	x.entries.Store(key, e)
	x.size.Add(1)
	uses.Add(1)
	return Handle[K, V]{key: key, entry: e, valid: true}
}

// At returns a handle to the entry for key, or an invalid handle if key is
// absent (or its entry is being evicted concurrently).
func (x *Cache[K, V]) At(key K) Handle[K, V] {
	if v, ok := x.entries.Load(key); ok {
		if e := v.(*entry[V]); e.acquire() {
			return Handle[K, V]{key: key, entry: e, valid: true}
		}
	}
	return Handle[K, V]{}
}

// DropUnused removes every entry with no live handles. Entries pinned by a
// handle are retained; an entry acquired concurrently with its candidacy
// check is likewise retained.
func (x *Cache[K, V]) DropUnused() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries.Range(func(k, v any) bool {
		x.dropLocked(k, v.(*entry[V]))
		return true
	})
}

// DropUnusedButLast removes entries with no live handles, retaining the n
// most recently inserted of them (by sequence number). A panic will occur if
// n is negative.
func (x *Cache[K, V]) DropUnusedButLast(n int) {
	if n < 0 {
		panic(`refcache: drop unused but last: negative count`)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	type candidate struct {
		key   K
		entry *entry[V]
	}
	var candidates []candidate
	x.entries.Range(func(k, v any) bool {
		if e := v.(*entry[V]); e.uses.Load() == 0 {
			candidates = append(candidates, candidate{key: k.(K), entry: e})
		}
		return true
	})

	slices.SortFunc(candidates, func(a, b candidate) int {
		// descending sequence order: most recently inserted first
		switch {
		case a.entry.seq > b.entry.seq:
			return -1
		case a.entry.seq < b.entry.seq:
			return 1
		default:
			return 0
		}
	})

	if n >= len(candidates) {
		return
	}
	for _, c := range candidates[n:] {
		x.dropLocked(c.key, c.entry)
	}
}

// dropLocked erases the entry if its use count is still zero, claiming it via
// compare-and-swap so a concurrent handle acquisition wins or loses cleanly.
// The key's count record is retained in the side table.
func (x *Cache[K, V]) dropLocked(key any, e *entry[V]) {
	if e.uses.CompareAndSwap(0, evicting) {
		x.entries.Delete(key)
		x.size.Add(-1)
	}
}

// Size returns the number of live entries.
func (x *Cache[K, V]) Size() int {
	return int(x.size.Load())
}

// Empty returns true if there are no live entries.
func (x *Cache[K, V]) Empty() bool {
	return x.size.Load() == 0
}

// Capacity returns the number of known keys, which may exceed Size, as keys
// of evicted entries are retained until ShrinkToFit.
func (x *Cache[K, V]) Capacity() int {
	return int(x.capacity.Load())
}

// ShrinkToFit drops unused entries, then rebuilds the key table from the
// survivors, so that Capacity equals Size.
//
// WARNING: Unlike the other methods, ShrinkToFit requires that no other
// operation on the cache is in progress.
func (x *Cache[K, V]) ShrinkToFit() {
	x.DropUnused()
	x.counts.Range(func(k, _ any) bool {
		x.counts.Delete(k)
		return true
	})
	x.capacity.Store(0)
	x.entries.Range(func(k, v any) bool {
		x.counts.Store(k, v.(*entry[V]).uses)
		x.capacity.Add(1)
		return true
	})
}
