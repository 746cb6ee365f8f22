package cmap_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/calvinalkan/cmaps/pkg/cmap"
	"github.com/calvinalkan/cmaps/pkg/smr"
)

func Test_Put_Then_Get_Roundtrips(t *testing.T) {
	t.Parallel()

	m := cmap.NewMap[int, string](cmap.Ints[int]())

	m.Put(1, "a")

	got, ok := m.Get(1)
	if !ok || got != "a" {
		t.Fatalf("Get = (%q, %v), want (a, true)", got, ok)
	}
}

func Test_Items_Sorted_Returns_Insertion_Order_With_Updates_In_Place(t *testing.T) {
	t.Parallel()

	// put(1,"a"); put(2,"b"); put(1,"c") -> [(1,"c"), (2,"b")], len 2.
	m := cmap.NewMap[int, string](cmap.Ints[int]())

	m.Put(1, "a")
	m.Put(2, "b")
	m.Put(1, "c")

	items := m.Items(true)
	if len(items) != 2 {
		t.Fatalf("items length = %d, want 2", len(items))
	}

	if items[0].Key != 1 || items[0].Value != "c" {
		t.Fatalf("items[0] = %+v, want (1, c)", items[0])
	}

	if items[1].Key != 2 || items[1].Value != "b" {
		t.Fatalf("items[1] = %+v, want (2, b)", items[1])
	}

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
}

func Test_Add_Then_Add_Fails_And_Keeps_First_Value(t *testing.T) {
	t.Parallel()

	m := cmap.NewMap[int, string](cmap.Ints[int]())

	if !m.Add(1, "a") {
		t.Fatal("first add must succeed")
	}

	if m.Add(1, "b") {
		t.Fatal("second add must fail")
	}

	got, _ := m.Get(1)
	if got != "a" {
		t.Fatalf("Get = %q, want a", got)
	}
}

func Test_Put_Remove_Get_Reports_NotFound(t *testing.T) {
	t.Parallel()

	m := cmap.NewMap[int, string](cmap.Ints[int]())

	m.Put(1, "a")

	if !m.Remove(1) {
		t.Fatal("remove of live key must succeed")
	}

	if _, ok := m.Get(1); ok {
		t.Fatal("removed key must not be found")
	}
}

func Test_Replace_Only_Touches_Live_Keys(t *testing.T) {
	t.Parallel()

	m := cmap.NewMap[string, int](cmap.Strings[string]())

	if m.Replace("missing", 1) {
		t.Fatal("replace of absent key must fail")
	}

	m.Put("k", 1)

	if !m.Replace("k", 2) {
		t.Fatal("replace of live key must succeed")
	}

	got, _ := m.Get("k")
	if got != 2 {
		t.Fatalf("Get = %d, want 2", got)
	}
}

func Test_Keys_And_Values_Follow_Items(t *testing.T) {
	t.Parallel()

	m := cmap.NewMap[int, string](cmap.Ints[int]())

	m.Put(3, "c")
	m.Put(1, "a")
	m.Put(2, "b")

	keys := m.Keys(true)
	vals := m.Values(true)

	wantKeys := []int{3, 1, 2}
	wantVals := []string{"c", "a", "b"}

	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Fatalf("keys = %v, want %v", keys, wantKeys)
		}

		if vals[i] != wantVals[i] {
			t.Fatalf("values = %v, want %v", vals, wantVals)
		}
	}
}

func Test_WaitFree_Map_Behaves_Like_LockFree(t *testing.T) {
	t.Parallel()

	m := cmap.NewMapOptions[int, string](cmap.Ints[int](), cmap.Options{WaitFree: true})

	m.Put(1, "a")
	m.Put(1, "b")

	got, ok := m.Get(1)
	if !ok || got != "b" {
		t.Fatalf("Get = (%q, %v), want (b, true)", got, ok)
	}

	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
}

func Test_SetFree_Handler_Sees_Key_And_Value(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomainSlots(64)
	m := cmap.NewMapOptions[int, string](cmap.Ints[int](), cmap.Options{Domain: dom})

	type freedPair struct {
		k int
		v string
	}

	var (
		mu    sync.Mutex
		freed []freedPair
	)

	m.SetFree(func(k int, v string) {
		mu.Lock()
		freed = append(freed, freedPair{k, v})
		mu.Unlock()
	})

	m.Put(1, "a")
	m.Put(1, "b")
	m.Remove(1)

	dom.Reclaim()

	mu.Lock()
	defer mu.Unlock()

	if len(freed) != 2 {
		t.Fatalf("free handler ran %d times, want 2", len(freed))
	}

	if freed[0] != (freedPair{1, "a"}) || freed[1] != (freedPair{1, "b"}) {
		t.Fatalf("freed = %v, want [(1,a) (1,b)]", freed)
	}
}

func Test_Close_Frees_Remaining_Entries(t *testing.T) {
	t.Parallel()

	dom := smr.NewDomainSlots(64)
	m := cmap.NewMapOptions[int, int](cmap.Ints[int](), cmap.Options{Domain: dom})

	var freed atomic.Int64

	m.SetFree(func(int, int) { freed.Add(1) })

	for i := range 10 {
		m.Put(i, i)
	}

	m.Close()

	if freed.Load() != 10 {
		t.Fatalf("free handler ran %d times, want 10", freed.Load())
	}
}

func Test_NewMap_Panics_On_Zero_Hasher(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on zero hasher")
		}
	}()

	cmap.NewMap[int, int](cmap.Hasher[int]{})
}

func Test_Concurrent_Writers_On_Disjoint_Keys_Lose_Nothing(t *testing.T) {
	t.Parallel()

	const (
		goroutines = 8
		perG       = 400
	)

	for _, engine := range []struct {
		name string
		opts cmap.Options
	}{
		{name: "LockFree", opts: cmap.Options{}},
		{name: "WaitFree", opts: cmap.Options{WaitFree: true}},
	} {
		t.Run(engine.name, func(t *testing.T) {
			t.Parallel()

			m := cmap.NewMapOptions[string, int](cmap.Strings[string](), engine.opts)

			var wg sync.WaitGroup

			for g := range goroutines {
				wg.Add(1)

				go func() {
					defer wg.Done()

					for i := range perG {
						m.Put(fmt.Sprintf("g%d-%d", g, i), i)
					}
				}()
			}

			wg.Wait()

			if got := m.Len(); got != goroutines*perG {
				t.Fatalf("Len = %d, want %d", got, goroutines*perG)
			}

			for g := range goroutines {
				for i := range perG {
					got, ok := m.Get(fmt.Sprintf("g%d-%d", g, i))
					if !ok || got != i {
						t.Fatalf("key g%d-%d = (%d, %v), want (%d, true)", g, i, got, ok, i)
					}
				}
			}
		})
	}
}

func Test_Concurrent_Add_Race_Has_Exactly_One_Winner(t *testing.T) {
	t.Parallel()

	m := cmap.NewMap[int, string](cmap.Ints[int]())

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		start   = make(chan struct{})
	)

	for g := range 2 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			<-start

			if m.Add(42, fmt.Sprintf("v%d", g)) {
				winners.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if winners.Load() != 1 {
		t.Fatalf("%d winners, want exactly 1", winners.Load())
	}

	if _, ok := m.Get(42); !ok {
		t.Fatal("winning value must be readable")
	}
}
