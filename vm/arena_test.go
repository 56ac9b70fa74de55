package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlab(t *testing.T) {
	s := newSlab[LogicalObject](4)
	seen := make(map[*LogicalObject]bool)
	for range 10 {
		lo := s.alloc()
		require.False(t, seen[lo])
		seen[lo] = true
	}
	a := newThreadOnlyAllocator()
	lo := a.newLogicalObject(3)
	m := a.newMirroredObject(lo, 2)
	require.Equal(t, int64(3), m.LogicalObjectID())
	require.Zero(t, lo.NumMirroredObjects(), "newMirroredObject doesn't insert")
	lo.insertMirroredObject(m)
	requireViolation(t, DuplicateMirroredObject, func() { lo.insertMirroredObject(a.newMirroredObject(lo, 2)) })
	lo.eraseMirroredObject(2)
	requireViolation(t, MissingMirroredObject, func() { lo.eraseMirroredObject(2) })
}

func TestInstrChainPool(t *testing.T) {
	chain := getInstrChain()
	chain.numPendingDeps = 3
	chain.state = chainRunning
	chain.dependents = append(chain.dependents, &InstrChain{})
	chain.status.data[0] = 1
	returnInstrChain(chain)

	// Whether or not the pool hands back the same chain, it must be reset.
	chain = getInstrChain()
	require.Zero(t, chain.numPendingDeps)
	require.Equal(t, chainWaiting, chain.state)
	require.Empty(t, chain.dependents)
	require.Zero(t, chain.status.data[0])
	require.Nil(t, chain.ctx.msg)
}
