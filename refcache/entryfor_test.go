package refcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intervalOfValidity is a half-open interval key covering the values within
// it, e.g. a run of records valid between two event numbers.
type intervalOfValidity struct {
	begin, end uint
}

func (x intervalOfValidity) Supports(value uint) bool {
	return x.begin <= value && value < x.end
}

func TestEntryFor(t *testing.T) {
	cache := New[intervalOfValidity, string]()
	const run1 = `Run 1`
	const run2 = `Run 2`

	h := cache.Emplace(intervalOfValidity{1, 10}, run1)
	assert.Equal(t, run1, h.Value())
	h.Invalidate()
	h = cache.Emplace(intervalOfValidity{10, 20}, run2)
	assert.Equal(t, run2, h.Value())
	h.Invalidate()

	assert.False(t, EntryFor(cache, uint(0)).Valid())

	h = EntryFor(cache, uint(1))
	require.True(t, h.Valid())
	assert.Equal(t, run1, h.Value())
	assert.Equal(t, intervalOfValidity{1, 10}, h.Key())
	assert.True(t, h == EntryForHint(cache, h, uint(1)))
	h.Invalidate()

	h = EntryFor(cache, uint(10))
	require.True(t, h.Valid())
	assert.Equal(t, run2, h.Value())
	h.Invalidate()

	assert.False(t, EntryFor(cache, uint(20)).Valid())

	cache.DropUnusedButLast(1)
	assert.Equal(t, 1, cache.Size())
	h = EntryFor(cache, uint(10))
	assert.True(t, h.Valid())
	h.Invalidate()

	assert.Equal(t, 2, cache.Capacity())
	cache.ShrinkToFit()
	assert.Equal(t, 0, cache.Capacity())
	assert.True(t, cache.Empty())
}

func TestEntryFor_hint(t *testing.T) {
	cache := New[intervalOfValidity, string]()
	const run1 = `Run 1`
	const run2 = `Run 2`
	tmp1 := cache.Emplace(intervalOfValidity{0, 10}, run1)
	tmp1.Invalidate()
	tmp2 := cache.Emplace(intervalOfValidity{10, 20}, run2)
	tmp2.Invalidate()

	var run1Count, run2Count int
	var cached Handle[intervalOfValidity, string]

	for i := uint(0); i != 20; i++ {
		h := EntryForHint(cache, cached, i)
		if !h.Valid() {
			continue
		}
		if cached != h {
			cached.Invalidate()
			cached = h
		}
		if i < 10 {
			run1Count++
		} else {
			run2Count++
		}
	}

	assert.Equal(t, 10, run1Count)
	assert.Equal(t, 10, run2Count)

	cache.ShrinkToFit()
	assert.Equal(t, 1, cache.Size())
	assert.Equal(t, run2, cached.Value())

	cached.Invalidate()
	cache.ShrinkToFit()
	assert.Equal(t, cache.Size(), cache.Capacity())
	assert.Equal(t, 0, cache.Size())
}

func TestEntryFor_evictedKeyYieldsInvalidHandle(t *testing.T) {
	cache := New[intervalOfValidity, string]()
	tmp3 := cache.Emplace(intervalOfValidity{0, 10}, `Run 1`)
	tmp3.Invalidate()
	cache.DropUnused()
	// the key is still known, but its entry is gone
	assert.False(t, EntryFor(cache, uint(5)).Valid())
	cache.ShrinkToFit()
	assert.False(t, EntryFor(cache, uint(5)).Valid())
}

func TestEntryFor_multipleMatches(t *testing.T) {
	cache := New[intervalOfValidity, string]()
	tmp4 := cache.Emplace(intervalOfValidity{0, 10}, `Run 1`)
	tmp4.Invalidate()
	tmp5 := cache.Emplace(intervalOfValidity{5, 15}, `Run 2`)
	tmp5.Invalidate()
	assert.PanicsWithValue(t, `refcache: entry for: more than one key match`, func() {
		EntryFor(cache, uint(7))
	})
	// non-overlapping probes remain fine
	assert.True(t, EntryFor(cache, uint(12)).Valid())
}

func TestEntryFor_hintMismatchFallsBack(t *testing.T) {
	cache := New[intervalOfValidity, string]()
	tmp6 := cache.Emplace(intervalOfValidity{0, 10}, `Run 1`)
	tmp6.Invalidate()
	tmp7 := cache.Emplace(intervalOfValidity{10, 20}, `Run 2`)
	tmp7.Invalidate()

	hint := EntryFor(cache, uint(5))
	require.True(t, hint.Valid())

	h := EntryForHint(cache, hint, uint(15))
	require.True(t, h.Valid())
	assert.Equal(t, `Run 2`, h.Value())
	assert.False(t, h == hint)

	// an invalid hint always falls back to the scan
	h2 := EntryForHint(cache, Handle[intervalOfValidity, string]{}, uint(5))
	assert.True(t, h2 == hint)
}
