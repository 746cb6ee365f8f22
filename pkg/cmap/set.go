package cmap

import (
	"fmt"

	"github.com/calvinalkan/cmaps/pkg/hmap"
)

// member is the owned item a set stores per element.
type member[K comparable] struct {
	key K
}

// Set is a concurrent unordered set with full set algebra.
//
// All methods are safe for concurrent use. Binary operations snapshot both
// operands at a single linearization epoch; an element inserted or removed
// after that epoch is left out of the snapshot.
//
// A Set must be obtained via [NewSet] or [NewSetOptions]; the zero value
// is not usable.
type Set[K comparable] struct {
	_ [0]func() // prevent external construction

	hasher Hasher[K]
	opts   Options
	tab    hmap.Table[member[K]]
}

// NewSet creates a set with default options.
func NewSet[K comparable](h Hasher[K]) *Set[K] {
	return NewSetOptions(h, Options{})
}

// NewSetOptions creates a set. Panics if the hasher is the zero value.
func NewSetOptions[K comparable](h Hasher[K], opts Options) *Set[K] {
	checkHasher(h)
	fillOptions(&opts)

	return &Set[K]{
		hasher: h,
		opts:   opts,
		tab:    newTable[member[K]](opts),
	}
}

// SetFree installs a handler invoked once per logically removed element,
// at reclamation time. Must be called before the set is shared.
func (s *Set[K]) SetFree(fn func(K)) {
	s.tab.SetFree(func(m *member[K]) { fn(m.key) })
}

// Contains reports whether k is an element of the set.
func (s *Set[K]) Contains(k K) bool {
	_, ok := s.tab.Get(s.hasher.Hash(k))

	return ok
}

// Put inserts k, a no-op when already present (membership and insertion
// epoch are untouched).
func (s *Set[K]) Put(k K) {
	s.tab.Add(s.hasher.Hash(k), &member[K]{key: k})
}

// Add inserts k and reports whether the set changed.
func (s *Set[K]) Add(k K) bool {
	return s.tab.Add(s.hasher.Hash(k), &member[K]{key: k})
}

// Remove deletes k. Reports whether k was present.
func (s *Set[K]) Remove(k K) bool {
	_, ok := s.tab.Remove(s.hasher.Hash(k))

	return ok
}

// Len returns the published element count; eventually consistent under
// concurrent mutation.
func (s *Set[K]) Len() uint64 {
	return s.tab.Len()
}

// Items returns a consistent snapshot of the elements. With sorted set,
// elements come back in insertion order.
func (s *Set[K]) Items(sorted bool) []K {
	view := s.tab.View(sorted)

	out := make([]K, len(view))
	for i, e := range view {
		out[i] = e.Item.key
	}

	return out
}

// Close logically removes every element, running free handlers through the
// deferred-reclamation path. Requires quiescence.
func (s *Set[K]) Close() {
	s.tab.Drain()
}

// check guards binary operations against mixed key kinds. Mixing is a
// programming error, not a runtime condition, so it is fatal.
func (s *Set[K]) check(o *Set[K]) {
	if s.hasher.Kind != o.hasher.Kind {
		panic(fmt.Sprintf("cmap: set operands use different key kinds: %s vs %s",
			s.hasher.Kind, o.hasher.Kind))
	}
}

// Eq reports whether both sets hold exactly the same elements.
func (s *Set[K]) Eq(o *Set[K]) bool {
	s.check(o)

	return hmap.Eq(s.tab, o.tab)
}

// IsSuperset reports whether s contains every element of o. With proper
// set, s must additionally be strictly larger.
func (s *Set[K]) IsSuperset(o *Set[K], proper bool) bool {
	s.check(o)

	return hmap.Superset(s.tab, o.tab, proper)
}

// IsSubset reports whether every element of s is contained in o.
func (s *Set[K]) IsSubset(o *Set[K], proper bool) bool {
	s.check(o)

	return hmap.Subset(s.tab, o.tab, proper)
}

// IsDisjoint reports whether s and o share no element.
func (s *Set[K]) IsDisjoint(o *Set[K]) bool {
	s.check(o)

	return hmap.Disjoint(s.tab, o.tab)
}

// Union returns a new set holding every element of s and o. Global
// insertion order across both operands is preserved in the result.
func (s *Set[K]) Union(o *Set[K]) *Set[K] {
	s.check(o)

	return s.rebuild(hmap.Union(s.tab, o.tab))
}

// Intersection returns a new set holding the elements present in both s
// and o. Insertion order is not preserved.
func (s *Set[K]) Intersection(o *Set[K]) *Set[K] {
	s.check(o)

	return s.rebuild(hmap.Intersection(s.tab, o.tab))
}

// Difference returns a new set holding the elements of s absent from o,
// preserving their insertion order.
func (s *Set[K]) Difference(o *Set[K]) *Set[K] {
	s.check(o)

	return s.rebuild(hmap.Difference(s.tab, o.tab))
}

// SymmetricDifference returns a new set holding the elements present in
// exactly one of s and o. Insertion order is not preserved.
func (s *Set[K]) SymmetricDifference(o *Set[K]) *Set[K] {
	s.check(o)

	return s.rebuild(hmap.SymmetricDifference(s.tab, o.tab))
}

// rebuild materializes an algebra result as a fresh set with the
// receiver's configuration. Entries are inserted in slice order, so an
// epoch-ordered result keeps its ordering in the new set; member values
// are shared with the operands (members are immutable).
func (s *Set[K]) rebuild(entries []hmap.ViewEntry[member[K]]) *Set[K] {
	out := NewSetOptions(s.hasher, s.opts)

	for _, e := range entries {
		out.tab.Put(e.HV, e.Item)
	}

	return out
}
