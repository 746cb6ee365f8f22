package hmap

import (
	"testing"
)

func benchKeys(n int) []HashValue {
	keys := make([]HashValue, n)
	for i := range n {
		keys[i] = hv(uint64(i))
	}

	return keys
}

func Benchmark_Get_Hit(b *testing.B) {
	const n = 1 << 16

	m := NewMapSize[string](nil, n*2)
	keys := benchKeys(n)

	for _, k := range keys {
		m.Put(k, strp("x"))
	}

	b.ResetTimer()

	for i := 0; b.Loop(); i++ {
		m.Get(keys[i&(n-1)])
	}
}

func Benchmark_Put_Overwrite(b *testing.B) {
	const n = 1 << 12

	m := NewMapSize[string](nil, n*2)
	keys := benchKeys(n)
	item := strp("x")

	b.ResetTimer()

	for i := 0; b.Loop(); i++ {
		m.Put(keys[i&(n-1)], item)
	}
}

func Benchmark_Put_Parallel(b *testing.B) {
	const n = 1 << 16

	m := NewMapSize[string](nil, n*2)
	keys := benchKeys(n)
	item := strp("x")

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0

		for pb.Next() {
			m.Put(keys[i&(n-1)], item)
			i++
		}
	})
}

func Benchmark_WFMap_Put_Parallel(b *testing.B) {
	const n = 1 << 16

	m := NewWFMapSize[string](nil, n*2)
	keys := benchKeys(n)
	item := strp("x")

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0

		for pb.Next() {
			m.Put(keys[i&(n-1)], item)
			i++
		}
	})
}

func Benchmark_View_Sorted(b *testing.B) {
	const n = 1 << 12

	m := NewMapSize[string](nil, n*2)
	for _, k := range benchKeys(n) {
		m.Put(k, strp("x"))
	}

	b.ResetTimer()

	for b.Loop() {
		m.View(true)
	}
}
