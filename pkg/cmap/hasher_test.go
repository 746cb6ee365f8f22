package cmap_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/cmaps/pkg/cmap"
	"github.com/calvinalkan/cmaps/pkg/hmap"
)

func Test_Scalar_Hashers_Are_Deterministic_And_NonEmpty(t *testing.T) {
	t.Parallel()

	ints := cmap.Ints[int]()
	strs := cmap.Strings[string]()

	for i := range 1000 {
		hv := ints.Hash(i)

		require.False(t, hv.IsEmpty(), "int %d hashed to the reserved empty encoding", i)
		assert.Equal(t, hv, ints.Hash(i), "int hashing must be deterministic")
	}

	for i := range 1000 {
		s := fmt.Sprintf("key-%d", i)
		hv := strs.Hash(s)

		require.False(t, hv.IsEmpty(), "string %q hashed to the reserved empty encoding", s)
		assert.Equal(t, hv, strs.Hash(s), "string hashing must be deterministic")
	}
}

func Test_Distinct_Keys_Hash_Distinctly(t *testing.T) {
	t.Parallel()

	strs := cmap.Strings[string]()
	seen := map[hmap.HashValue]string{}

	for i := range 10_000 {
		s := fmt.Sprintf("key-%d", i)
		hv := strs.Hash(s)

		if prev, dup := seen[hv]; dup {
			t.Fatalf("hash collision between %q and %q", prev, s)
		}

		seen[hv] = s
	}
}

func Test_Float_Hasher_Normalizes_Integral_And_Negative_Zero(t *testing.T) {
	t.Parallel()

	floats := cmap.Floats[float64]()
	ints := cmap.Ints[int64]()

	assert.Equal(t, ints.Hash(1), floats.Hash(1.0),
		"1.0 must hash like the integer 1")
	assert.Equal(t, floats.Hash(0.0), floats.Hash(negZero()),
		"-0.0 must hash like 0.0")
	assert.NotEqual(t, floats.Hash(1.5), floats.Hash(1.0),
		"distinct reals must hash apart")
}

// negZero defeats constant folding of -0.0.
func negZero() float64 {
	z := 0.0

	return -z
}

func Test_Pointer_Hasher_Uses_Identity(t *testing.T) {
	t.Parallel()

	type obj struct{ v int }

	ptrs := cmap.Pointers[obj]()

	a := &obj{v: 1}
	b := &obj{v: 1}

	assert.Equal(t, ptrs.Hash(a), ptrs.Hash(a), "same pointer, same hash")
	assert.NotEqual(t, ptrs.Hash(a), ptrs.Hash(b), "equal contents, distinct identity")
}

func Test_Object_Hasher_Reads_Key_Field(t *testing.T) {
	t.Parallel()

	type user struct {
		ID   string
		Name string
	}

	h := cmap.Object(func(u *user) []byte { return []byte(u.ID) })

	a := &user{ID: "u1", Name: "first"}
	b := &user{ID: "u1", Name: "second"}
	c := &user{ID: "u2"}

	assert.Equal(t, h.Hash(a), h.Hash(b), "same ID field, same hash")
	assert.NotEqual(t, h.Hash(a), h.Hash(c), "different ID field, different hash")
}

func Test_CachedObject_Hasher_Computes_Field_Hash_Once(t *testing.T) {
	t.Parallel()

	type user struct {
		ID    string
		cache cmap.HashCache
	}

	var fieldReads int

	h := cmap.CachedObject(
		func(u *user) []byte {
			fieldReads++

			return []byte(u.ID)
		},
		func(u *user) *cmap.HashCache { return &u.cache },
	)

	u := &user{ID: "u1"}

	first := h.Hash(u)

	require.Equal(t, 1, fieldReads)

	assert.Equal(t, first, h.Hash(u))
	assert.Equal(t, 1, fieldReads, "second hash must come from the cache")
}

func Test_Custom_Hasher_Remaps_Reserved_Empty(t *testing.T) {
	t.Parallel()

	h := cmap.Custom(func(int) hmap.HashValue { return hmap.HashValue{} })

	hv := h.Hash(7)

	require.False(t, hv.IsEmpty(), "custom hashes must never surface the empty encoding")
}

func Test_Map_With_Object_Keys_Roundtrips(t *testing.T) {
	t.Parallel()

	type user struct {
		ID   string
		Name string
	}

	m := cmap.NewMap[*user, int](cmap.Object(func(u *user) []byte { return []byte(u.ID) }))

	alice := &user{ID: "u1", Name: "alice"}

	m.Put(alice, 30)

	// A different object with the same key field resolves to the same entry.
	got, ok := m.Get(&user{ID: "u1"})

	require.True(t, ok)
	assert.Equal(t, 30, got)
}
