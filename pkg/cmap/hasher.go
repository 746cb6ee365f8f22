package cmap

import (
	"math"
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/calvinalkan/cmaps/pkg/hmap"
)

// Kind tags the key family a hasher belongs to. Binary set operations
// require both operands to share a Kind; mixing kinds is fatal.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindReal
	KindString
	KindPointer
	KindObject
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindPointer:
		return "pointer"
	case KindObject:
		return "object"
	case KindCustom:
		return "custom"
	default:
		return "invalid"
	}
}

// Hasher derives the 128-bit hash value for keys of type K.
//
// Construct with [Ints], [Floats], [Strings], [Pointers], [Object],
// [CachedObject] or [Custom]; the zero value is not usable and panics on
// first use.
type Hasher[K any] struct {
	Kind Kind
	Hash func(K) hmap.HashValue
}

// Integer covers the key types hashed by scalar value.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Float covers the real-number key types.
type Float interface {
	~float32 | ~float64
}

// Ints returns the hasher for integer keys.
func Ints[K Integer]() Hasher[K] {
	return Hasher[K]{Kind: KindInt, Hash: func(k K) hmap.HashValue {
		return hashUint64(uint64(k))
	}}
}

// Floats returns the hasher for real-number keys.
//
// Values are normalized before hashing: negative zero hashes like zero and
// an integral float hashes like the matching integer key, so 1.0 and 1
// land on the same hash across a real-keyed and an int-keyed view of the
// same data.
func Floats[K Float]() Hasher[K] {
	return Hasher[K]{Kind: KindReal, Hash: func(k K) hmap.HashValue {
		f := float64(k)
		if f == 0 {
			f = 0 // collapses -0.0
		}

		if f == math.Trunc(f) && math.Abs(f) < 1<<62 {
			return hashUint64(uint64(int64(f)))
		}

		return hashUint64(math.Float64bits(f))
	}}
}

// Strings returns the hasher for string keys.
func Strings[K ~string]() Hasher[K] {
	return Hasher[K]{Kind: KindString, Hash: func(k K) hmap.HashValue {
		return fnv1a128([]byte(k))
	}}
}

// Pointers returns the hasher for pointer-identity keys: two keys are the
// same key iff they point at the same object.
func Pointers[P any]() Hasher[*P] {
	return Hasher[*P]{Kind: KindPointer, Hash: func(k *P) hmap.HashValue {
		return hashUint64(uint64(uintptr(unsafe.Pointer(k))))
	}}
}

// Object returns a hasher for keys whose hash input lives in a field of
// the (pointed-to) key object. field projects the key to the bytes that
// identify it.
func Object[K any](field func(K) []byte) Hasher[K] {
	return Hasher[K]{Kind: KindObject, Hash: func(k K) hmap.HashValue {
		return fnv1a128(field(k))
	}}
}

// CachedObject is [Object] plus per-object memoization: cache projects the
// key to a [HashCache] slot (typically a field of the object) that stores
// the hash after first computation.
func CachedObject[K any](field func(K) []byte, cache func(K) *HashCache) Hasher[K] {
	return Hasher[K]{Kind: KindObject, Hash: func(k K) hmap.HashValue {
		c := cache(k)

		if hv, ok := c.load(); ok {
			return hv
		}

		hv := fnv1a128(field(k))
		c.store(hv)

		return hv
	}}
}

// Custom returns a hasher wrapping a caller-supplied hash function. The
// reserved empty encoding is remapped like the built-in hashers.
func Custom[K any](fn func(K) hmap.HashValue) Hasher[K] {
	return Hasher[K]{Kind: KindCustom, Hash: func(k K) hmap.HashValue {
		return remapEmpty(fn(k))
	}}
}

// HashCache memoizes a key object's hash value. The zero value is empty
// and ready for use; embed one in the key object and hand an accessor to
// [CachedObject].
type HashCache struct {
	state  atomic.Uint32
	hi, lo uint64
}

const (
	cacheEmpty uint32 = iota
	cacheWriting
	cacheReady
)

func (c *HashCache) load() (hmap.HashValue, bool) {
	if c.state.Load() != cacheReady {
		return hmap.HashValue{}, false
	}

	return hmap.HashValue{Hi: c.hi, Lo: c.lo}, true
}

// store fills the cache once. A racer that loses the claim just skips
// caching; the hash it computed is still correct.
func (c *HashCache) store(hv hmap.HashValue) {
	if !c.state.CompareAndSwap(cacheEmpty, cacheWriting) {
		return
	}

	c.hi = hv.Hi
	c.lo = hv.Lo
	c.state.Store(cacheReady)
}

// 128-bit FNV-1a. Same construction as the 64-bit variant, widened: the
// offset basis and prime are the standard 128-bit FNV parameters and the
// modular multiply keeps the low 128 bits.
const (
	fnvOffsetHi = 0x6c62272e07bb0142
	fnvOffsetLo = 0x62b821756295c58d

	fnvPrimeHi = 1 << 24 // prime = 2^88 + 2^8 + 0x3b
	fnvPrimeLo = 0x13b
)

func fnv1a128(b []byte) hmap.HashValue {
	hi, lo := uint64(fnvOffsetHi), uint64(fnvOffsetLo)

	for _, c := range b {
		lo ^= uint64(c)

		carry, low := bits.Mul64(lo, fnvPrimeLo)
		hi = carry + lo*fnvPrimeHi + hi*fnvPrimeLo
		lo = low
	}

	return remapEmpty(hmap.HashValue{Hi: hi, Lo: lo})
}

func hashUint64(v uint64) hmap.HashValue {
	var buf [8]byte

	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}

	return fnv1a128(buf[:])
}

// remapEmpty keeps the engine's reserved EMPTY encoding out of the key
// space.
func remapEmpty(hv hmap.HashValue) hmap.HashValue {
	if hv.IsEmpty() {
		return hmap.HashValue{Lo: 1}
	}

	return hv
}
