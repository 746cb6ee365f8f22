// Package cmap provides lock-free, linearizable typed containers: an
// unordered dictionary ([Map]) and an unordered set with full set algebra
// ([Set]).
//
// Both containers are thin typed façades over the engine in package hmap:
// they normalize keys into 128-bit hash values and adapt items, while the
// engine handles open addressing, cooperative migration and epoch-based
// memory reclamation. Every operation is safe for concurrent use and
// lock-free; constructing a container with Options.WaitFree selects the
// wait-free engine instead.
//
// # Key hashing
//
//	m := cmap.NewMap[int, string](cmap.Ints[int]())
//	m.Put(1, "a")
//	v, ok := m.Get(1)
//
// Scalar key families mirror the classic item types: [Ints], [Floats],
// [Strings], [Pointers]. Keys held inside objects use the adapter
// constructors: [Object] hashes bytes produced by a field accessor,
// [CachedObject] additionally memoizes the hash in a [HashCache] embedded
// in the object, and [Custom] accepts any hash function.
//
// Keys are equated by their 128-bit hash. Two distinct keys hashing
// identically alias the same slot; with the built-in hashers this is a
// 2^-128 event and deliberately out of scope.
//
// # Set algebra
//
// Binary set operations ([Set.Eq], [Set.Union], ...) take both operands'
// snapshots at a single linearization epoch: elements inserted after that
// epoch are excluded, and elements removed after it are excluded as well
// rather than kept as they were at the epoch. Operands must share a
// key kind and reclamation domain; mismatches are programming errors and
// panic.
//
// # Lifetime
//
// A container needs no teardown under the Go runtime; [Map.Close] exists
// to run free handlers deterministically and requires quiescence (no
// operation in flight).
package cmap
