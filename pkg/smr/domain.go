package smr

import (
	"sync"
	"sync/atomic"
)

// DefaultSlots is the default size of the reservation registry.
//
// Each concurrently held [Reservation] occupies one slot. 512 comfortably
// covers GOMAXPROCS-bounded workloads; callers with more simultaneous
// operations in flight should use [NewDomainSlots].
const DefaultSlots = 512

// reclaimThreshold is the retired-list length that triggers a reclamation
// scan on the next Retire.
const reclaimThreshold = 64

// slotFree marks an unoccupied registry slot. The global clock starts at 1,
// so no live reservation ever publishes 0.
const slotFree = 0

// slot is one entry in the reservation registry. Padded to a cache line so
// that reservations on different slots do not false-share.
type slot struct {
	epoch atomic.Uint64
	_     [56]byte
}

// retiredAlloc is an allocation waiting on the retired list until no
// reservation can still observe it.
type retiredAlloc struct {
	meta    *Meta
	release func()
}

// Domain is an epoch-reclamation context.
//
// The zero value is not usable; construct with [NewDomain] or
// [NewDomainSlots]. A Domain must not be copied after first use.
type Domain struct {
	_ [0]func() // prevent external construction and copying

	// clock is the global epoch counter. It starts at 1 and only moves
	// forward: commits, retirements and linearized reservations advance it.
	clock atomic.Uint64

	// slots is the reservation registry. A slot holding slotFree is
	// unoccupied; any other value is the epoch published by the
	// reservation that owns it.
	slots []slot

	// retiredMu guards retired. Retirement is off the read path, so a
	// mutex-protected list is sufficient; reclamation swaps the list out
	// under the lock and releases entries outside it.
	retiredMu sync.Mutex
	retired   []retiredAlloc
}

// NewDomain creates a Domain with [DefaultSlots] registry slots.
func NewDomain() *Domain {
	return NewDomainSlots(DefaultSlots)
}

// NewDomainSlots creates a Domain whose reservation registry has n slots.
// n bounds the number of simultaneously held reservations; exceeding it at
// runtime panics. Panics if n < 1.
func NewDomainSlots(n int) *Domain {
	if n < 1 {
		panic("smr: domain needs at least one registry slot")
	}

	d := &Domain{slots: make([]slot, n)}
	d.clock.Store(1)

	return d
}

// Clock returns the current value of the global epoch counter.
func (d *Domain) Clock() uint64 {
	return d.clock.Load()
}

// Advance moves the global clock forward and returns the new epoch.
//
// Containers use this to stamp insertion epochs that are comparable across
// every container sharing the domain.
func (d *Domain) Advance() uint64 {
	return d.clock.Add(1)
}

// Enter opens a basic reservation at the current epoch.
//
// Reservations nest: each Enter returns an independent handle and must be
// paired with its own [Reservation.Exit]. Panics if the registry is
// exhausted (a fatal configuration error).
func (d *Domain) Enter() *Reservation {
	s := d.claimSlot()

	// Publish the observed epoch, then re-validate: if the clock moved
	// between the load and the store, a reclaimer may already have scanned
	// past this slot, so publish again until the clock holds still.
	for {
		e := d.clock.Load()
		s.epoch.Store(e)

		if d.clock.Load() == e {
			return &Reservation{dom: d, slot: s, epoch: e}
		}
	}
}

// EnterLinearized opens a reservation that also advances the global clock
// and pins the new epoch as the operation's linearization point.
//
// All writes committed after the returned reservation was created carry a
// write epoch greater than [Reservation.Epoch], so snapshot readers can
// exclude them deterministically.
func (d *Domain) EnterLinearized() *Reservation {
	s := d.claimSlot()

	e := d.clock.Add(1)
	s.epoch.Store(e)

	return &Reservation{dom: d, slot: s, epoch: e}
}

// claimSlot finds a free registry slot and claims it with the current
// epoch. Panics when every slot is occupied.
func (d *Domain) claimSlot() *slot {
	for i := range d.slots {
		s := &d.slots[i]

		if s.epoch.Load() != slotFree {
			continue
		}

		// Claim with the current epoch rather than a sentinel so the slot
		// is never observable in a state that under-protects: the final
		// epoch published by Enter/EnterLinearized is >= this value.
		if s.epoch.CompareAndSwap(slotFree, d.clock.Load()) {
			return s
		}
	}

	panic("smr: reservation registry exhausted; raise NewDomainSlots size")
}

// Commit stamps meta with a fresh write epoch, advancing the global clock.
//
// Must be called exactly once, before the allocation carrying meta is
// published to other goroutines.
func (d *Domain) Commit(m *Meta) {
	m.writeEpoch = d.clock.Add(1)
}

// Retire queues an allocation for deferred release.
//
// release, if non-nil, runs once when no reservation can still observe the
// allocation - on whatever goroutine performs the reclamation scan, so it
// must be safe to call from any goroutine. The allocation must already be
// unlinked from shared state.
func (d *Domain) Retire(m *Meta, release func()) {
	m.retireEpoch.Store(d.clock.Add(1))

	d.retiredMu.Lock()
	d.retired = append(d.retired, retiredAlloc{meta: m, release: release})
	scan := len(d.retired) >= reclaimThreshold
	d.retiredMu.Unlock()

	if scan {
		d.Reclaim()
	}
}

// RetireUnused releases an allocation that was committed but never
// published. No reservation can hold it, so release runs immediately.
func (d *Domain) RetireUnused(m *Meta, release func()) {
	m.retireEpoch.Store(d.clock.Load())

	if release != nil {
		release()
	}
}

// Reclaim releases every retired allocation no reservation can still
// observe and returns how many were released.
//
// Containers call this implicitly via Retire; tests and shutdown paths may
// call it directly.
func (d *Domain) Reclaim() int {
	min := d.minReserved()

	d.retiredMu.Lock()

	var (
		keep  []retiredAlloc
		ready []retiredAlloc
	)

	for _, ra := range d.retired {
		if ra.meta.retireEpoch.Load() < min {
			ready = append(ready, ra)
		} else {
			keep = append(keep, ra)
		}
	}

	d.retired = keep
	d.retiredMu.Unlock()

	// Release callbacks run outside the lock: a handler is allowed to
	// retire further allocations (e.g. a container free handler tearing
	// down a nested structure).
	for _, ra := range ready {
		if ra.release != nil {
			ra.release()
		}
	}

	return len(ready)
}

// Pending returns the number of allocations on the retired list.
func (d *Domain) Pending() int {
	d.retiredMu.Lock()
	defer d.retiredMu.Unlock()

	return len(d.retired)
}

// minReserved returns the minimum epoch published by any held reservation.
// With no reservations held every retired allocation is releasable, so the
// scan floor is the maximum epoch.
func (d *Domain) minReserved() uint64 {
	min := ^uint64(0)

	for i := range d.slots {
		e := d.slots[i].epoch.Load()
		if e != slotFree && e < min {
			min = e
		}
	}

	return min
}

// Reservation is a held slot in a Domain's registry.
//
// A Reservation is obtained from [Domain.Enter] or
// [Domain.EnterLinearized]; the zero value is not usable.
type Reservation struct {
	dom   *Domain
	slot  *slot
	epoch uint64
}

// Epoch returns the epoch this reservation protects. For linearized
// reservations this is the operation's linearization epoch.
func (r *Reservation) Epoch() uint64 {
	return r.epoch
}

// Domain returns the domain the reservation belongs to.
func (r *Reservation) Domain() *Domain {
	return r.dom
}

// Exit releases the reservation's registry slot.
//
// Exit must be called exactly once per reservation. After Exit the
// reservation must not be used again.
func (r *Reservation) Exit() {
	r.slot.epoch.Store(slotFree)
}
