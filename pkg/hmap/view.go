package hmap

import (
	"slices"

	"github.com/calvinalkan/cmaps/pkg/smr"
)

// ViewEntry is one item of a snapshot view.
type ViewEntry[T any] struct {
	HV        HashValue
	Item      *T
	SortEpoch uint64
}

// Table is the surface shared by the lock-free and wait-free engines. The
// view set algebra operates on Tables so both engines and any mix of the
// two compose.
type Table[T any] interface {
	Domain() *smr.Domain
	Len() uint64
	Get(hv HashValue) (*T, bool)
	Put(hv HashValue, item *T) (*T, bool)
	Replace(hv HashValue, item *T) (*T, bool)
	Add(hv HashValue, item *T) bool
	Remove(hv HashValue) (*T, bool)
	View(sorted bool) []ViewEntry[T]
	SetFree(fn func(*T))
	Drain()

	viewAt(res *smr.Reservation, sorted bool) []ViewEntry[T]
}

var _ Table[int] = (*Map[int])(nil)

// View takes a consistent snapshot of the map under a linearized
// reservation.
//
// The view is taken at the reservation's epoch E: writes committed after E
// are excluded. Only each bucket's current record is inspected, so a key
// whose record was replaced or removed after E is absent from the view; the
// record it held at E is not consulted. With sorted set, entries come back
// in insertion-epoch order; otherwise in bucket order.
func (m *Map[T]) View(sorted bool) []ViewEntry[T] {
	res := m.dom.EnterLinearized()
	defer res.Exit()

	return m.viewAt(res, sorted)
}

// viewAt walks the current store under an already-held linearized
// reservation. Set algebra calls it for both operands of one reservation
// so the two views share a linearization epoch.
func (m *Map[T]) viewAt(res *smr.Reservation, sorted bool) []ViewEntry[T] {
	e := res.Epoch()
	s := m.cur.Load()

	out := make([]ViewEntry[T], 0, s.used.Load())

	for i := range s.buckets {
		b := &s.buckets[i]

		r := b.rec.Load()
		if !r.live() {
			continue
		}

		if r.meta != nil && !r.meta.VisibleAt(e) {
			continue
		}

		out = append(out, ViewEntry[T]{
			HV:        *b.hv.Load(),
			Item:      r.item,
			SortEpoch: r.info.epoch(),
		})
	}

	if sorted {
		sortByEpoch(out)
	}

	return out
}

func sortByEpoch[T any](v []ViewEntry[T]) {
	slices.SortFunc(v, func(a, b ViewEntry[T]) int {
		switch {
		case a.SortEpoch < b.SortEpoch:
			return -1
		case a.SortEpoch > b.SortEpoch:
			return 1
		default:
			return 0
		}
	})
}

func sortByHV[T any](v []ViewEntry[T]) {
	slices.SortFunc(v, func(a, b ViewEntry[T]) int {
		return compareHV(a.HV, b.HV)
	})
}
