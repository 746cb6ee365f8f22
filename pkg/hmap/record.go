package hmap

import (
	"github.com/calvinalkan/cmaps/pkg/smr"
)

// recordInfo packs a record's insertion epoch and its state flags into one
// word. The epoch occupies the low 61 bits; zero means "no live item".
type recordInfo uint64

const (
	// infoMoving marks a record frozen for migration: no further logical
	// write succeeds against its bucket in this store.
	infoMoving recordInfo = 1 << 63

	// infoMoved marks a record whose live item (if any) has been copied
	// into the successor store.
	infoMoved recordInfo = 1 << 62

	// infoUsed marks a record installed on behalf of a published help
	// request (wait-free engine). The flag and the help pointer stay on the
	// record (and travel with it through migration) until it is replaced.
	infoUsed recordInfo = 1 << 61

	// infoEpochMask selects the insertion-epoch bits.
	infoEpochMask = infoUsed - 1
)

func (i recordInfo) epoch() uint64 {
	return uint64(i & infoEpochMask)
}

func (i recordInfo) moving() bool {
	return i&infoMoving != 0
}

func (i recordInfo) moved() bool {
	return i&infoMoved != 0
}

func (i recordInfo) used() bool {
	return i&infoUsed != 0
}

func withEpoch(e uint64) recordInfo {
	return recordInfo(e) & infoEpochMask
}

// record is the atomic unit of bucket state. A record is immutable after
// publication; every logical write replaces the whole record by CAS on the
// bucket's pointer (the pointer indirection stands in for a double-width
// CAS of the (item, info) pair).
//
// item is an opaque caller-owned pointer; the engine never dereferences it.
// meta carries the smr epochs that snapshot views linearize against. help
// is non-nil on records installed through the wait-free help protocol and
// is never cleared from them.
type record[T any] struct {
	item *T
	info recordInfo
	meta *smr.Meta
	help *helpRecord[T]
}

// live reports whether r holds a live item. Migration flags do not affect
// liveness: a MOVING or MOVED record keeps serving readers until the store
// is retired.
func (r *record[T]) live() bool {
	return r != nil && r.info.epoch() != 0
}

func (r *record[T]) moving() bool {
	return r != nil && r.info.moving()
}

func (r *record[T]) moved() bool {
	return r != nil && r.info.moved()
}
