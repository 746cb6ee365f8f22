package testutil

// MapOpKind enumerates the operations the model harness drives against a
// dictionary under test.
type MapOpKind int

const (
	OpPut MapOpKind = iota
	OpAdd
	OpReplace
	OpRemove
	OpGet
	OpLen
	opKindCount
)

// MapOp is one generated dictionary operation.
type MapOp struct {
	Kind  MapOpKind
	Key   int
	Value int
}

// GenerateMapOps derives a deterministic operation sequence from seed.
// Keys are drawn from a small space so that overwrite, re-add and remove
// paths get exercised, not just inserts.
func GenerateMapOps(seed []byte, count, keySpace int) []MapOp {
	s := NewByteStream(seed)
	ops := make([]MapOp, 0, count)

	for i := range count {
		ops = append(ops, MapOp{
			Kind:  MapOpKind(s.NextInt(int(opKindCount))),
			Key:   s.NextInt(keySpace),
			Value: i,
		})
	}

	return ops
}
