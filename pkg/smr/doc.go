// Package smr provides epoch-based safe memory reclamation for lock-free
// data structures.
//
// A [Domain] is an explicit, construct-once context shared by any number of
// containers. Operations on a container run inside a [Reservation]: while a
// reservation is held, no allocation retired at or after the reservation's
// epoch is released, so readers may keep dereferencing records whose storage
// has been logically retired by concurrent writers.
//
// # Basic Usage
//
//	dom := smr.NewDomain()
//
//	res := dom.Enter()
//	// ... read shared structures ...
//	res.Exit()
//
// Writers publish new allocations with [Domain.Commit] and hand replaced
// ones to [Domain.Retire]. The release callback passed at retire time runs
// when the allocation is actually reclaimed, not when it is logically
// retired; this is what makes it safe for a container-level free handler to
// destroy caller-owned items.
//
// # Linearized operations
//
// [Domain.EnterLinearized] additionally advances the global clock and pins
// the new epoch on the reservation. Snapshot-style readers use that epoch to
// decide which allocations belong to the snapshot: an allocation is visible
// at epoch E iff it was committed at or before E and not retired at or
// before E (see [Meta.VisibleAt]).
//
// # Concurrency
//
// All Domain and Reservation methods are safe for concurrent use. A
// Reservation must only be exited once, by the goroutine flow that entered
// it. The reservation registry has a fixed number of slots; exhausting it is
// a configuration error and panics.
package smr
