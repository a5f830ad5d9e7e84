package refcache

// SupportsKey constrains cache keys that expose a "supports" relation: a
// predicate indicating that the key covers a given probe value, e.g. an
// interval key covering the points within it.
type SupportsKey[P any] interface {
	comparable
	Supports(probe P) bool
}

// EntryFor returns a handle to the entry whose key supports probe, or an
// invalid handle if no key does. At most one key may support any given probe;
// a panic will occur if more than one matches, which is an invariant
// violation on the caller's part.
//
// All known keys are scanned, including keys whose entries have been evicted
// (a matching evicted key yields an invalid handle). Prefer EntryForHint when
// a previous handle is available.
func EntryFor[P any, K SupportsKey[P], V any](c *Cache[K, V], probe P) Handle[K, V] {
	var match K
	var found int
	c.counts.Range(func(k, _ any) bool {
		if k.(K).Supports(probe) {
			match = k.(K)
			found++
		}
		return found < 2
	})
	switch found {
	case 0:
		return Handle[K, V]{}
	case 1:
		return c.At(match)
	default:
		panic(`refcache: entry for: more than one key match`)
	}
}

// EntryForHint behaves as EntryFor, but first checks hint: if hint is valid
// and its key supports probe, hint is returned unchanged, skipping the scan.
// This is the cheap common case for callers iterating over probe values that
// mostly hit the same entry.
func EntryForHint[P any, K SupportsKey[P], V any](c *Cache[K, V], hint Handle[K, V], probe P) Handle[K, V] {
	if hint.Valid() && hint.Key().Supports(probe) {
		return hint
	}
	return EntryFor(c, probe)
}
