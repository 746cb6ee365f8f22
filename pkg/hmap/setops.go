package hmap

// View set algebra.
//
// Every binary operation opens one linearized reservation and takes both
// operands' views at its epoch, so the result corresponds to an atomic
// snapshot of the pair. Both operands must live in the same smr domain;
// mixing domains is a configuration error and panics.

// pairViews snapshots both operands at one linearization epoch.
func pairViews[T any](a, b Table[T]) ([]ViewEntry[T], []ViewEntry[T]) {
	if a.Domain() != b.Domain() {
		panic("hmap: set algebra operands must share one smr domain")
	}

	res := a.Domain().EnterLinearized()
	defer res.Exit()

	return a.viewAt(res, false), b.viewAt(res, false)
}

// Eq reports whether a and b hold exactly the same hash values.
func Eq[T any](a, b Table[T]) bool {
	va, vb := pairViews(a, b)
	if len(va) != len(vb) {
		return false
	}

	sortByHV(va)
	sortByHV(vb)

	for i := range va {
		if va[i].HV != vb[i].HV {
			return false
		}
	}

	return true
}

// Superset reports whether a contains every hash value of b. With proper
// set, a must additionally be strictly larger than b.
func Superset[T any](a, b Table[T], proper bool) bool {
	va, vb := pairViews(a, b)

	if len(va) < len(vb) {
		return false
	}

	if proper && len(va) == len(vb) {
		return false
	}

	sortByHV(va)
	sortByHV(vb)

	i := 0

	for _, e := range vb {
		for i < len(va) && e.HV.Greater(va[i].HV) {
			i++
		}

		if i == len(va) || va[i].HV != e.HV {
			return false
		}

		i++
	}

	return true
}

// Subset reports whether every hash value of a is contained in b.
func Subset[T any](a, b Table[T], proper bool) bool {
	return Superset(b, a, proper)
}

// Disjoint reports whether a and b share no hash value.
func Disjoint[T any](a, b Table[T]) bool {
	va, vb := pairViews(a, b)

	sortByHV(va)
	sortByHV(vb)

	i, j := 0, 0

	for i < len(va) && j < len(vb) {
		switch compareHV(va[i].HV, vb[j].HV) {
		case 0:
			return false
		case -1:
			i++
		default:
			j++
		}
	}

	return true
}

// Union returns the entries of a and b merged by insertion epoch, first
// occurrence winning on duplicates. The result preserves global insertion
// order across both operands.
func Union[T any](a, b Table[T]) []ViewEntry[T] {
	va, vb := pairViews(a, b)

	sortByEpoch(va)
	sortByEpoch(vb)

	out := make([]ViewEntry[T], 0, len(va)+len(vb))
	seen := make(map[HashValue]struct{}, len(va)+len(vb))

	i, j := 0, 0

	for i < len(va) || j < len(vb) {
		var e ViewEntry[T]

		if j == len(vb) || (i < len(va) && va[i].SortEpoch <= vb[j].SortEpoch) {
			e = va[i]
			i++
		} else {
			e = vb[j]
			j++
		}

		if _, dup := seen[e.HV]; dup {
			continue
		}

		seen[e.HV] = struct{}{}
		out = append(out, e)
	}

	return out
}

// Intersection returns the entries of a whose hash value also occurs in b,
// in hash order. Insertion order is not preserved.
func Intersection[T any](a, b Table[T]) []ViewEntry[T] {
	va, vb := pairViews(a, b)

	sortByHV(va)
	sortByHV(vb)

	var out []ViewEntry[T]

	i, j := 0, 0

	for i < len(va) && j < len(vb) {
		switch compareHV(va[i].HV, vb[j].HV) {
		case 0:
			out = append(out, va[i])
			i++
			j++
		case -1:
			i++
		default:
			j++
		}
	}

	return out
}

// Difference returns the entries of a whose hash value does not occur in
// b, in insertion-epoch order.
func Difference[T any](a, b Table[T]) []ViewEntry[T] {
	va, vb := pairViews(a, b)

	inB := make(map[HashValue]struct{}, len(vb))
	for _, e := range vb {
		inB[e.HV] = struct{}{}
	}

	sortByEpoch(va)

	var out []ViewEntry[T]

	for _, e := range va {
		if _, drop := inB[e.HV]; drop {
			continue
		}

		out = append(out, e)
	}

	return out
}

// SymmetricDifference returns the entries occurring in exactly one of a
// and b, in hash order. Insertion order is not preserved.
func SymmetricDifference[T any](a, b Table[T]) []ViewEntry[T] {
	va, vb := pairViews(a, b)

	sortByHV(va)
	sortByHV(vb)

	var out []ViewEntry[T]

	i, j := 0, 0

	for i < len(va) || j < len(vb) {
		switch {
		case j == len(vb):
			out = append(out, va[i])
			i++
		case i == len(va):
			out = append(out, vb[j])
			j++
		default:
			switch compareHV(va[i].HV, vb[j].HV) {
			case 0:
				i++
				j++
			case -1:
				out = append(out, va[i])
				i++
			default:
				out = append(out, vb[j])
				j++
			}
		}
	}

	return out
}
