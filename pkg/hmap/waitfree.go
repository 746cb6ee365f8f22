package hmap

import (
	"runtime"
	"sync/atomic"

	"github.com/calvinalkan/cmaps/pkg/smr"
)

// Help registry sizing.
const (
	// helpSlots bounds the number of simultaneously pending writes; one
	// slot per writer in flight.
	helpSlots = 128

	// helpScan is how many registry slots a writer inspects for stalled
	// peers between attempts on its own operation.
	helpScan = 4

	// burstFailures is the number of consecutive record-CAS failures a
	// writer tolerates before releasing its execution lease so another
	// writer can take the operation over.
	burstFailures = 2
)

// WFMap is the wait-free hash table engine.
//
// Reads, views and set algebra behave exactly like [Map]. Writers publish
// their intent in a help registry before contending, and any writer that
// observes a stalled peer completes the peer's operation before retrying
// its own, so the total work pending at any moment is bounded by the number
// of writers in flight.
type WFMap[T any] struct {
	Map[T]
}

var _ Table[int] = (*WFMap[int])(nil)

// NewWFMap creates a wait-free map in dom with the minimum capacity.
// A nil dom gets a private domain.
func NewWFMap[T any](dom *smr.Domain) *WFMap[T] {
	return NewWFMapSize[T](dom, MinStoreSize)
}

// NewWFMapSize creates a wait-free map with at least the given initial
// capacity, rounded up to a power of two.
func NewWFMapSize[T any](dom *smr.Domain, capacity uint64) *WFMap[T] {
	if dom == nil {
		dom = smr.NewDomain()
	}

	w := &WFMap[T]{}
	w.dom = dom
	w.wf = &wfState[T]{}
	w.initStore(capacity)

	return w
}

// wfState is the help registry attached to a wait-free map.
type wfState[T any] struct {
	slots [helpSlots]atomic.Pointer[helpRecord[T]]
}

// helpRecord is a writer's published intention: enough state for any other
// writer to finish the operation and report its outcome.
type helpRecord[T any] struct {
	kind opKind
	hv   HashValue
	item *T

	// owner is the execution lease. Exactly one writer works a pending
	// operation at a time; the lease is dropped after a bounded burst of
	// failed attempts so a stalled owner's operation can be adopted.
	owner atomic.Bool

	// result is the outcome slot; written once, by the executor that
	// linearizes the operation.
	result atomic.Pointer[helpResult[T]]
}

type helpResult[T any] struct {
	old   *T
	found bool
}

// complete publishes the outcome. The executor holds the lease, so the
// store is uncontended; the CAS guards the write-once contract anyway.
func (h *helpRecord[T]) complete(old *T, found bool) {
	h.result.CompareAndSwap(nil, &helpResult[T]{old: old, found: found})
}

// publish claims a registry slot for h. Pending operations are bounded by
// writers in flight, so a full registry means every slot owner is mid-write
// and a slot frees as soon as one finishes.
func (w *wfState[T]) publish(h *helpRecord[T]) int {
	for {
		for i := range w.slots {
			if w.slots[i].Load() != nil {
				continue
			}

			if w.slots[i].CompareAndSwap(nil, h) {
				return i
			}
		}

		runtime.Gosched()
	}
}

func (w *wfState[T]) clear(i int, h *helpRecord[T]) {
	w.slots[i].CompareAndSwap(h, nil)
}

// mutateWaitFree is the wait-free write path: publish, then alternate
// bounded bursts on the own operation with help rounds for stalled peers
// until the outcome appears.
func (m *Map[T]) mutateWaitFree(kind opKind, hv HashValue, item *T) (*T, bool) {
	h := &helpRecord[T]{kind: kind, hv: hv, item: item}

	idx := m.wf.publish(h)
	defer m.wf.clear(idx, h)

	for round := 0; ; round++ {
		if res := h.result.Load(); res != nil {
			return res.old, res.found
		}

		if h.owner.CompareAndSwap(false, true) {
			m.execHelp(h)
			h.owner.Store(false)
		}

		if res := h.result.Load(); res != nil {
			return res.old, res.found
		}

		m.helpOthers(idx, round)
		runtime.Gosched()
	}
}

// helpOthers scans a window of the registry and works any pending
// operation whose lease is free.
func (m *Map[T]) helpOthers(own, round int) {
	for n := range helpScan {
		i := (own + round + n + 1) % helpSlots

		h := m.wf.slots[i].Load()
		if h == nil || h.result.Load() != nil {
			continue
		}

		if h.owner.CompareAndSwap(false, true) {
			m.execHelp(h)
			h.owner.Store(false)
		}
	}
}

// execHelp runs a bounded burst of attempts on h while holding its lease.
// It returns either because the outcome was published or because
// burstFailures consecutive record CASes lost, in which case the lease is
// dropped and some writer (possibly another one) tries again.
//
// Installed candidates carry the help pointer and the USED flag, so every
// executor can recognize an already-applied operation by inspecting the
// bucket instead of re-applying it.
func (m *Map[T]) execHelp(h *helpRecord[T]) {
	failures := 0
	s := m.cur.Load()

	for failures < burstFailures {
		if h.result.Load() != nil {
			return
		}

		b, st := m.bucketFor(s, h.kind, h.hv)
		if st == bucketMigrate {
			s = m.migrate(s)

			continue
		}

		if b == nil {
			h.complete(nil, false)

			return
		}

		r := b.rec.Load()

		if r != nil && r.help == h {
			// Already applied on h's behalf; the applying executor
			// publishes the result.
			return
		}

		if r.moving() {
			s = m.migrate(s)

			continue
		}

		if done, old, ok := precondition(h.kind, r); done {
			h.complete(old, ok)

			return
		}

		nr := m.newRecord(h.kind, r, h.item, h)
		if b.rec.CompareAndSwap(r, nr) {
			m.finish(h.kind, r)

			old, found := settle(h.kind, r)
			h.complete(old, found)

			return
		}

		failures++
	}
}
