// Package hmap implements the lock-free hash table engine underneath the
// typed containers in package cmap.
//
// The engine stores opaque item pointers keyed by 128-bit [HashValue]s in an
// open-addressed bucket array (a store). Stores are never resized in place:
// when one fills up, every thread that notices cooperates in migrating the
// live records into a freshly sized successor, then operations retry there.
// All published state advances by compare-and-swap; no operation takes a
// lock or blocks on another thread.
//
// Two engines share the same surface:
//
//   - [Map] is lock-free: every operation completes in a bounded number of
//     steps unless some other thread keeps making progress against it.
//   - [WFMap] is wait-free: writers additionally publish their intent in a
//     help registry, and any writer that observes a stalled peer completes
//     the peer's operation before retrying its own.
//
// Reads, snapshot views and the view set algebra are identical across both.
//
// Memory reclamation is delegated to a [smr.Domain]: records are committed
// before publication and retired after replacement, which both keeps
// replaced items alive for concurrent readers and gives snapshot views the
// write/retire epochs they linearize against.
//
// Consumers normally want package cmap, which adds key typing and hashing
// on top of this engine.
package hmap
