package refcache

// Handle is a reference pinning one cache entry: while any valid handle to an
// entry exists, the entry will not be evicted. The zero value is an invalid
// handle.
//
// Handles are small values, but plain assignment aliases the same pin rather
// than taking a new one; use [Handle.Copy] to create an independent handle,
// and [Handle.Invalidate] to release exactly the handles so created. Two
// handles compare equal with == iff they refer to the same entry (or are both
// invalid).
type Handle[K comparable, V any] struct {
	key   K
	entry *entry[V]
	valid bool
}

// Valid returns true if the handle refers to an entry.
func (x Handle[K, V]) Valid() bool {
	return x.valid
}

// Value returns the cached value. A panic will occur if the handle is
// invalid.
func (x Handle[K, V]) Value() V {
	if !x.valid {
		panic(`refcache: invalid cache handle dereference`)
	}
	return x.entry.value
}

// Key returns the entry's key. A panic will occur if the handle is invalid.
func (x Handle[K, V]) Key() K {
	if !x.valid {
		panic(`refcache: invalid cache handle key access`)
	}
	return x.key
}

// SequenceNumber returns the entry's insertion sequence number. A panic will
// occur if the handle is invalid.
func (x Handle[K, V]) SequenceNumber() uint64 {
	if !x.valid {
		panic(`refcache: invalid cache handle sequence number access`)
	}
	return x.entry.seq
}

// Copy returns a new handle pinning the same entry. Copying an invalid handle
// returns an invalid handle.
func (x Handle[K, V]) Copy() Handle[K, V] {
	if x.valid {
		x.entry.uses.Add(1)
	}
	return x
}

// Invalidate releases the handle's pin on its entry, leaving the handle
// invalid. Invalidating an invalid handle is a no-op.
func (x *Handle[K, V]) Invalidate() {
	if x.valid {
		x.entry.uses.Add(-1)
	}
	*x = Handle[K, V]{}
}
