package hmap

import (
	"math/bits"
	"sync/atomic"

	"github.com/calvinalkan/cmaps/pkg/smr"
)

// opKind identifies a logical write for the shared mutate path and the
// wait-free help protocol.
type opKind uint8

const (
	opPut opKind = iota + 1
	opReplace
	opAdd
	opRemove
)

// Map is the lock-free hash table engine.
//
// All operations are safe for concurrent use. Items are opaque pointers;
// the engine never dereferences them. A Map must be obtained via [NewMap]
// or [NewMapSize]; the zero value is not usable.
type Map[T any] struct {
	_ [0]func() // prevent external construction

	dom   *smr.Domain
	cur   atomic.Pointer[store[T]]
	count atomic.Int64

	// free is the container-level cleanup handler, invoked once per
	// logically retired record at reclamation time. Set before the map is
	// shared; see SetFree.
	free func(*T)

	// wf enables the wait-free write path; nil for the lock-free engine.
	wf *wfState[T]
}

// NewMap creates a lock-free map in dom with the minimum capacity.
// A nil dom gets a private domain.
func NewMap[T any](dom *smr.Domain) *Map[T] {
	return NewMapSize[T](dom, MinStoreSize)
}

// NewMapSize creates a lock-free map with at least the given initial
// capacity, rounded up to a power of two.
func NewMapSize[T any](dom *smr.Domain, capacity uint64) *Map[T] {
	if dom == nil {
		dom = smr.NewDomain()
	}

	m := &Map[T]{dom: dom}
	m.initStore(capacity)

	return m
}

func (m *Map[T]) initStore(capacity uint64) {
	s := newStore[T](roundPow2(capacity))
	m.dom.Commit(&s.meta)
	m.cur.Store(s)
}

// roundPow2 rounds n up to the next power of two.
func roundPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len64(n-1)
}

// Domain returns the reclamation domain the map lives in.
func (m *Map[T]) Domain() *smr.Domain {
	return m.dom
}

// SetFree installs the cleanup handler invoked once per logically retired
// record, at reclamation time (not at logical retirement). Must be called
// before the map is shared between goroutines.
func (m *Map[T]) SetFree(fn func(*T)) {
	m.free = fn
}

// Len returns the published item count. The counter is eventually
// consistent with respect to concurrent mutators, not linearizable.
func (m *Map[T]) Len() uint64 {
	n := m.count.Load()
	if n < 0 {
		return 0
	}

	return uint64(n)
}

// Get returns the item stored under hv.
//
// Get linearizes at its atomic record load. Records frozen for migration
// keep serving their items until the store is replaced.
func (m *Map[T]) Get(hv HashValue) (*T, bool) {
	res := m.dom.Enter()
	defer res.Exit()

	b, found := m.cur.Load().find(hv)
	if !found {
		return nil, false
	}

	r := b.rec.Load()
	if !r.live() {
		return nil, false
	}

	return r.item, true
}

// Put stores item under hv, inserting or overwriting. Returns the replaced
// item and whether one was present.
func (m *Map[T]) Put(hv HashValue, item *T) (*T, bool) {
	return m.mutate(opPut, hv, item)
}

// Replace stores item under hv only if a live item is already present.
// Returns the replaced item and whether the replace happened.
func (m *Map[T]) Replace(hv HashValue, item *T) (*T, bool) {
	return m.mutate(opReplace, hv, item)
}

// Add stores item under hv only if no live item is present. Reports whether
// the add happened; a false return leaves the present item untouched.
func (m *Map[T]) Add(hv HashValue, item *T) bool {
	_, ok := m.mutate(opAdd, hv, item)

	return ok
}

// Remove deletes the item stored under hv. Returns the removed item and
// whether one was present.
func (m *Map[T]) Remove(hv HashValue) (*T, bool) {
	return m.mutate(opRemove, hv, nil)
}

// mutate runs one logical write inside a reservation, retrying through
// contention and migration until it linearizes.
func (m *Map[T]) mutate(kind opKind, hv HashValue, item *T) (*T, bool) {
	if hv.IsEmpty() {
		panic("hmap: empty hash value")
	}

	res := m.dom.Enter()
	defer res.Exit()

	if m.wf != nil {
		return m.mutateWaitFree(kind, hv, item)
	}

	s := m.cur.Load()

	for {
		b, st := m.bucketFor(s, kind, hv)
		if st == bucketMigrate {
			s = m.migrate(s)

			continue
		}

		if b == nil {
			// Replace/remove against an absent key.
			return nil, false
		}

		r := b.rec.Load()
		if r.moving() {
			s = m.migrate(s)

			continue
		}

		if done, old, ok := precondition(kind, r); done {
			return old, ok
		}

		nr := m.newRecord(kind, r, item, nil)
		if b.rec.CompareAndSwap(r, nr) {
			m.finish(kind, r)

			return settle(kind, r)
		}
		// Lost the record CAS to a concurrent writer; reload and retry on
		// the same bucket.
	}
}

// bucketStatus classifies bucketFor outcomes.
type bucketStatus int

const (
	bucketOK bucketStatus = iota
	bucketMigrate
)

// bucketFor resolves the bucket an operation targets. Inserting kinds claim
// an empty bucket; lookup-only kinds stop at the first EMPTY probe.
func (m *Map[T]) bucketFor(s *store[T], kind opKind, hv HashValue) (*bucket[T], bucketStatus) {
	if kind == opReplace || kind == opRemove {
		b, found := s.find(hv)
		if !found {
			return nil, bucketOK
		}

		return b, bucketOK
	}

	b, st := s.acquire(hv)
	if st == acquireMigrate {
		return nil, bucketMigrate
	}

	return b, bucketOK
}

// precondition resolves operations whose outcome is decided by the current
// record without a CAS: add against a live key, replace/remove against a
// dead one.
func precondition[T any](kind opKind, r *record[T]) (done bool, old *T, ok bool) {
	switch kind {
	case opAdd:
		if r.live() {
			return true, nil, false
		}
	case opReplace, opRemove:
		if !r.live() {
			return true, nil, false
		}
	case opPut:
	}

	return false, nil, false
}

// newRecord builds the CAS candidate for a write. Insertions draw a fresh
// insertion epoch from the domain clock; updates preserve the epoch of the
// record they replace. Removals produce a tombstone.
func (m *Map[T]) newRecord(kind opKind, r *record[T], item *T, h *helpRecord[T]) *record[T] {
	if kind == opRemove {
		nr := &record[T]{help: h}
		if h != nil {
			nr.info = infoUsed
		}

		return nr
	}

	epoch := uint64(0)
	if r.live() {
		epoch = r.info.epoch()
	} else {
		epoch = m.dom.Advance()
	}

	meta := &smr.Meta{}
	m.dom.Commit(meta)

	nr := &record[T]{item: item, info: withEpoch(epoch), meta: meta, help: h}
	if h != nil {
		nr.info |= infoUsed
	}

	return nr
}

// settle derives an operation's return pair from the record it replaced.
// Put reports whether an old item was found; the conditional kinds report
// success, carrying the replaced item where there was one.
func settle[T any](kind opKind, old *record[T]) (*T, bool) {
	if old.live() {
		return old.item, true
	}

	if kind == opPut {
		return nil, false
	}

	return nil, true
}

// finish settles the bookkeeping after a successful record CAS: item count
// transitions and retirement of the replaced record.
func (m *Map[T]) finish(kind opKind, old *record[T]) {
	oldLive := old.live()

	switch {
	case kind == opRemove && oldLive:
		m.count.Add(-1)
	case kind != opRemove && !oldLive:
		m.count.Add(1)
	}

	if oldLive && old.meta != nil {
		m.retireRecord(old)
	}
}

// retireRecord hands a replaced record to the domain. The free handler, if
// any, runs at reclamation, when no reader can still hold the item.
func (m *Map[T]) retireRecord(old *record[T]) {
	var release func()

	if m.free != nil && old.item != nil {
		item := old.item
		fn := m.free
		release = func() { fn(item) }
	}

	m.dom.Retire(old.meta, release)
}

// Drain logically removes every live record, running free handlers through
// the usual retirement path, and forces a reclamation scan.
//
// Drain requires quiescence: no operation may be in flight. It is the
// engine half of a container's delete().
func (m *Map[T]) Drain() {
	s := m.cur.Load()

	for i := range s.buckets {
		b := &s.buckets[i]

		r := b.rec.Load()
		if !r.live() {
			continue
		}

		b.rec.Store(&record[T]{})
		m.count.Add(-1)

		if r.meta != nil {
			m.retireRecord(r)
		}
	}

	m.dom.Reclaim()
}
