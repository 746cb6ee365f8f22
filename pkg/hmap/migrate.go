package hmap

import (
	"time"
)

// politenessSleep is the pause a late-arriving migration helper takes after
// noticing a successor store already exists, re-checking the published
// store between pauses. A pure throughput knob; correctness never depends
// on it and the scheduler may round it up freely.
const politenessSleep = 200 * time.Nanosecond

// migrate moves every live record of s into a freshly sized successor and
// publishes it, cooperating with any number of concurrent helpers, then
// returns the store the caller should retry in.
//
// Every phase is convergent: flag updates are monotone and the install
// CASes are idempotent once a destination record exists, so helper
// interleaving cannot lose or duplicate a record.
func (m *Map[T]) migrate(s *store[T]) *store[T] {
	if cur := m.cur.Load(); cur != s {
		return cur
	}

	// Someone is already migrating; give them a moment to publish before
	// piling on.
	if s.next.Load() != nil {
		for range 2 {
			time.Sleep(politenessSleep)

			if cur := m.cur.Load(); cur != s {
				return cur
			}
		}
	}

	live := m.freeze(s)
	next := m.installSuccessor(s, live)
	m.copyRecords(s, next)

	// Publish: account the migrated records in bulk, then swing the map.
	// Only the first helper's CAS succeeds for either word.
	var migrated uint64

	for i := range next.buckets {
		if next.buckets[i].rec.Load().live() {
			migrated++
		}
	}

	next.used.CompareAndSwap(0, migrated)

	if m.cur.CompareAndSwap(s, next) {
		m.dom.Retire(&s.meta, nil)
	}

	return m.cur.Load()
}

// freeze stamps MOVING on every bucket of s (and MOVED on buckets with
// nothing to copy), then counts the live set, which is stable once no
// logical write can succeed in s anymore.
func (m *Map[T]) freeze(s *store[T]) uint64 {
	for i := range s.buckets {
		b := &s.buckets[i]

		for {
			r := b.rec.Load()
			if r.moving() {
				break
			}

			var nr *record[T]

			if r == nil {
				nr = &record[T]{info: infoMoving | infoMoved}
			} else {
				cp := *r
				cp.info |= infoMoving

				if !cp.live() {
					cp.info |= infoMoved
				}

				nr = &cp
			}

			if b.rec.CompareAndSwap(r, nr) {
				break
			}
		}
	}

	var live uint64

	for i := range s.buckets {
		r := s.buckets[i].rec.Load()
		if r.live() && !r.moved() {
			live++
		}
	}

	return live
}

// installSuccessor resolves s.next, racing a proposal against other helpers
// when none exists yet. The loser's proposal was never published and is
// retired unused.
func (m *Map[T]) installSuccessor(s *store[T], live uint64) *store[T] {
	next := s.next.Load()
	if next != nil {
		return next
	}

	proposal := newStore[T](newSize(s.lastSlot+1, live))
	m.dom.Commit(&proposal.meta)

	if s.next.CompareAndSwap(nil, proposal) {
		return proposal
	}

	m.dom.RetireUnused(&proposal.meta, nil)

	return s.next.Load()
}

// copyRecords moves every frozen live record into next. Helpers racing on
// the same record converge: the destination hv claim and record install are
// first-winner CASes, and setting MOVED afterwards is monotone.
func (m *Map[T]) copyRecords(s, next *store[T]) {
	for i := range s.buckets {
		b := &s.buckets[i]

		r := b.rec.Load()
		if r == nil || r.moved() {
			continue
		}

		hv := *b.hv.Load()

		// Insertion epoch, item, smr meta and any help marker travel
		// unchanged; only the migration flags are left behind.
		cand := &record[T]{
			item: r.item,
			info: withEpoch(r.info.epoch()) | (r.info & infoUsed),
			meta: r.meta,
			help: r.help,
		}

		next.acquireForMigration(hv).rec.CompareAndSwap(nil, cand)

		for {
			cr := b.rec.Load()
			if cr.moved() {
				break
			}

			cp := *cr
			cp.info |= infoMoved

			if b.rec.CompareAndSwap(cr, &cp) {
				break
			}
		}
	}
}
