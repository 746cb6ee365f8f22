package cmap

import (
	"github.com/calvinalkan/cmaps/pkg/hmap"
	"github.com/calvinalkan/cmaps/pkg/smr"
)

// defaultDomain backs containers constructed without an explicit domain.
// Sharing one domain is what makes insertion epochs - and therefore set
// algebra and sorted views - comparable across containers.
var defaultDomain = smr.NewDomain()

// DefaultDomain returns the process-wide reclamation domain used by
// containers constructed with a zero [Options.Domain].
func DefaultDomain() *smr.Domain {
	return defaultDomain
}

// Options configures container construction. The zero value is a valid
// default: shared domain, minimum capacity, lock-free engine.
type Options struct {
	// Domain is the reclamation context the container lives in. Containers
	// that participate in set algebra together must share one. nil selects
	// the package-wide default domain.
	Domain *smr.Domain

	// Capacity is the initial bucket-array capacity, rounded up to a power
	// of two. Zero selects the engine minimum.
	Capacity uint64

	// WaitFree selects the wait-free engine: writers additionally complete
	// stalled peers' operations, bounding every writer's delay by the
	// number of writers in flight.
	WaitFree bool
}

// entry is the owned item a dictionary stores per key. Entries are
// immutable; updates allocate fresh ones.
type entry[K comparable, V any] struct {
	key K
	val V
}

// Map is a concurrent unordered dictionary.
//
// All methods are safe for concurrent use. A Map must be obtained via
// [NewMap] or [NewMapOptions]; the zero value is not usable.
type Map[K comparable, V any] struct {
	_ [0]func() // prevent external construction

	hasher Hasher[K]
	opts   Options
	tab    hmap.Table[entry[K, V]]
}

// NewMap creates a dictionary with default options.
func NewMap[K comparable, V any](h Hasher[K]) *Map[K, V] {
	return NewMapOptions[K, V](h, Options{})
}

// NewMapOptions creates a dictionary. Panics if the hasher is the zero
// value (a configuration error).
func NewMapOptions[K comparable, V any](h Hasher[K], opts Options) *Map[K, V] {
	checkHasher(h)
	fillOptions(&opts)

	return &Map[K, V]{
		hasher: h,
		opts:   opts,
		tab:    newTable[entry[K, V]](opts),
	}
}

func checkHasher[K any](h Hasher[K]) {
	if h.Kind == 0 || h.Hash == nil {
		panic("cmap: zero hasher; construct with Ints, Strings, Object, ...")
	}
}

func fillOptions(opts *Options) {
	if opts.Domain == nil {
		opts.Domain = defaultDomain
	}

	if opts.Capacity == 0 {
		opts.Capacity = hmap.MinStoreSize
	}
}

func newTable[T any](opts Options) hmap.Table[T] {
	if opts.WaitFree {
		return hmap.NewWFMapSize[T](opts.Domain, opts.Capacity)
	}

	return hmap.NewMapSize[T](opts.Domain, opts.Capacity)
}

// SetFree installs a handler invoked once per logically removed or
// replaced entry, at reclamation time (when no concurrent reader can still
// observe the entry). Must be called before the map is shared.
func (m *Map[K, V]) SetFree(fn func(K, V)) {
	m.tab.SetFree(func(e *entry[K, V]) { fn(e.key, e.val) })
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	e, ok := m.tab.Get(m.hasher.Hash(k))
	if !ok {
		var zero V

		return zero, false
	}

	return e.val, true
}

// Put stores v under k, inserting or overwriting.
func (m *Map[K, V]) Put(k K, v V) {
	m.tab.Put(m.hasher.Hash(k), &entry[K, V]{key: k, val: v})
}

// Replace stores v under k only if k is present. Reports whether the
// replace happened.
func (m *Map[K, V]) Replace(k K, v V) bool {
	_, ok := m.tab.Replace(m.hasher.Hash(k), &entry[K, V]{key: k, val: v})

	return ok
}

// Add stores v under k only if k is absent. Reports whether the add
// happened; a false return leaves the present value untouched.
func (m *Map[K, V]) Add(k K, v V) bool {
	return m.tab.Add(m.hasher.Hash(k), &entry[K, V]{key: k, val: v})
}

// Remove deletes k. Reports whether k was present.
func (m *Map[K, V]) Remove(k K) bool {
	_, ok := m.tab.Remove(m.hasher.Hash(k))

	return ok
}

// Len returns the published item count; eventually consistent under
// concurrent mutation.
func (m *Map[K, V]) Len() uint64 {
	return m.tab.Len()
}

// Item is one key/value pair of a snapshot.
type Item[K comparable, V any] struct {
	Key   K
	Value V
}

// Items returns a consistent snapshot of the map's pairs. With sorted set,
// pairs come back in insertion order (first insertion of each key).
func (m *Map[K, V]) Items(sorted bool) []Item[K, V] {
	view := m.tab.View(sorted)

	out := make([]Item[K, V], len(view))
	for i, e := range view {
		out[i] = Item[K, V]{Key: e.Item.key, Value: e.Item.val}
	}

	return out
}

// Keys returns a consistent snapshot of the keys, optionally in insertion
// order.
func (m *Map[K, V]) Keys(sorted bool) []K {
	view := m.tab.View(sorted)

	out := make([]K, len(view))
	for i, e := range view {
		out[i] = e.Item.key
	}

	return out
}

// Values returns a consistent snapshot of the values, optionally in
// insertion order of their keys.
func (m *Map[K, V]) Values(sorted bool) []V {
	view := m.tab.View(sorted)

	out := make([]V, len(view))
	for i, e := range view {
		out[i] = e.Item.val
	}

	return out
}

// Close logically removes every entry, running free handlers through the
// usual deferred-reclamation path.
//
// Close requires quiescence: no operation on the map may be in flight.
// The map must not be used afterwards.
func (m *Map[K, V]) Close() {
	m.tab.Drain()
}
