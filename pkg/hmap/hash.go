package hmap

// HashValue is an opaque 128-bit hash. The engine never inspects it beyond
// equality, ordering and the reserved empty encoding.
type HashValue struct {
	Hi uint64
	Lo uint64
}

// EmptyHashValue is the reserved "no hash" encoding. Containers must never
// hash a key to it; package cmap's hashers remap it when it occurs.
var EmptyHashValue = HashValue{}

// IsEmpty reports whether hv is the reserved empty encoding.
func (hv HashValue) IsEmpty() bool {
	return hv.Hi == 0 && hv.Lo == 0
}

// Equal reports whether hv and other are the same hash.
func (hv HashValue) Equal(other HashValue) bool {
	return hv == other
}

// Greater reports whether hv orders strictly after other. The ordering is
// total: high word first, then low word.
func (hv HashValue) Greater(other HashValue) bool {
	if hv.Hi != other.Hi {
		return hv.Hi > other.Hi
	}

	return hv.Lo > other.Lo
}

// compareHV returns -1, 0 or 1 ordering a against b, for use with the
// sorted merges in the view set algebra.
func compareHV(a, b HashValue) int {
	switch {
	case a == b:
		return 0
	case a.Greater(b):
		return 1
	default:
		return -1
	}
}
