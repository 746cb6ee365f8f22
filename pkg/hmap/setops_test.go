package hmap

import (
	"testing"

	"github.com/calvinalkan/cmaps/pkg/smr"
)

// fill builds a map over dom holding the given keys, inserted in order.
func fill(dom *smr.Domain, keys ...uint64) *Map[string] {
	m := NewMap[string](dom)
	for _, k := range keys {
		m.Put(hv(k), strp("x"))
	}

	return m
}

func keysOf(v []ViewEntry[string]) []uint64 {
	out := make([]uint64, len(v))
	for i, e := range v {
		out[i] = e.HV.Hi - 1
	}

	return out
}

func equalKeys(a []uint64, b ...uint64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func Test_Eq_Ignores_Insertion_Order(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()
	a := fill(dom, 1, 2, 3)
	b := fill(dom, 3, 2, 1)

	if !Eq[string](a, b) {
		t.Fatal("sets with the same keys must be equal")
	}
}

func Test_Eq_Detects_Differing_Sets(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	if Eq[string](fill(dom, 1, 2), fill(dom, 1, 3)) {
		t.Fatal("sets with different keys must not be equal")
	}

	if Eq[string](fill(dom, 1, 2), fill(dom, 1, 2, 3)) {
		t.Fatal("sets of different size must not be equal")
	}
}

func Test_Superset_Of_Equal_Sets_Is_Improper_Only(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()
	a := fill(dom, 1, 2, 3)
	b := fill(dom, 3, 2, 1)

	if !Superset[string](a, b, false) {
		t.Fatal("equal sets are supersets of each other")
	}

	if Superset[string](a, b, true) {
		t.Fatal("equal sets are not proper supersets")
	}
}

func Test_Superset_Detects_Missing_Element(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	if Superset[string](fill(dom, 1, 2, 3), fill(dom, 2, 4), false) {
		t.Fatal("4 is missing from the would-be superset")
	}

	if !Superset[string](fill(dom, 1, 2, 3), fill(dom, 2, 3), true) {
		t.Fatal("strictly larger containing set is a proper superset")
	}
}

func Test_Subset_Mirrors_Superset(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()
	small := fill(dom, 2, 3)
	big := fill(dom, 1, 2, 3)

	if !Subset[string](small, big, true) {
		t.Fatal("strictly contained set is a proper subset")
	}

	if Subset[string](big, small, false) {
		t.Fatal("containing set is not a subset of the contained one")
	}
}

func Test_Disjoint_Detects_Shared_And_Unshared_Keys(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	if !Disjoint[string](fill(dom, 1, 2), fill(dom, 3, 4)) {
		t.Fatal("sets without common keys are disjoint")
	}

	if Disjoint[string](fill(dom, 1, 2), fill(dom, 2, 3)) {
		t.Fatal("sets sharing key 2 are not disjoint")
	}
}

func Test_Union_Preserves_Global_Insertion_Order(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	a := fill(dom, 1, 2, 3)
	b := fill(dom, 3, 4, 5) // globally later inserts

	got := keysOf(Union[string](a, b))
	if !equalKeys(got, 1, 2, 3, 4, 5) {
		t.Fatalf("union order = %v, want [1 2 3 4 5]", got)
	}
}

func Test_Intersection_Emits_Exactly_The_Shared_Keys(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	got := keysOf(Intersection[string](fill(dom, 1, 2, 3, 4), fill(dom, 2, 4, 6)))
	if len(got) != 2 {
		t.Fatalf("intersection size = %d, want 2", len(got))
	}

	seen := map[uint64]bool{}
	for _, k := range got {
		seen[k] = true
	}

	if !seen[2] || !seen[4] {
		t.Fatalf("intersection = %v, want {2 4}", got)
	}
}

func Test_Difference_Preserves_Survivor_Order(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	got := keysOf(Difference[string](fill(dom, 5, 1, 3, 2), fill(dom, 3, 9)))
	if !equalKeys(got, 5, 1, 2) {
		t.Fatalf("difference order = %v, want [5 1 2]", got)
	}
}

func Test_SymmetricDifference_Emits_Unshared_Keys_Of_Both(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	got := keysOf(SymmetricDifference[string](fill(dom, 1, 2, 3), fill(dom, 2, 3, 4)))

	seen := map[uint64]bool{}
	for _, k := range got {
		seen[k] = true
	}

	if len(got) != 2 || !seen[1] || !seen[4] {
		t.Fatalf("symmetric difference = %v, want {1 4}", got)
	}
}

func Test_SetOps_Panic_On_Mixed_Domains(t *testing.T) {
	t.Parallel()

	a := fill(smr.NewDomain(), 1)
	b := fill(smr.NewDomain(), 1)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on mixed smr domains")
		}
	}()

	Eq[string](a, b)
}

func Test_Union_With_Empty_Operand_Returns_Other(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomain()

	got := keysOf(Union[string](fill(dom, 7, 8), fill(dom)))
	if !equalKeys(got, 7, 8) {
		t.Fatalf("union with empty = %v, want [7 8]", got)
	}
}
