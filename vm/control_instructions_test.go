package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConstHostSymbol(t *testing.T) {
	machine := newLocalVM(t, 2, 1)
	machine.Receive(NewConstHostSymbolMsg(Compute, 1001, 1002))
	runUntilIdle(t, machine)

	require.Equal(t, 2, machine.NumLogicalObjects())
	require.Equal(t, []int64{1001, 1002}, machine.LogicalObjectIDs())
	for _, id := range []int64{1001, 1002} {
		lo, found := machine.LogicalObject(id)
		require.True(t, found)
		require.Equal(t, id, lo.ID())
		require.Equal(t, 1, lo.NumMirroredObjects())
		require.Equal(t, []int{HostDeviceID}, lo.GlobalDeviceIDs())
		m, found := lo.MirroredObject(HostDeviceID)
		require.True(t, found)
		require.Equal(t, id, m.LogicalObjectID())
		require.Nil(t, m.Payload())
		back, found := m.LogicalObject(machine)
		require.True(t, found)
		require.Same(t, lo, back)
	}

	// Infer registers the type objects.
	machine.Receive(NewConstHostSymbolMsg(Infer, 1001, 1002))
	runUntilIdle(t, machine)
	require.Equal(t, []int64{-1002, -1001, 1001, 1002}, machine.LogicalObjectIDs())
}

func TestNewConstHostSymbolDuplicate(t *testing.T) {
	machine := newLocalVM(t, 1, 1)
	machine.Receive(NewConstHostSymbolMsg(Compute, 1001, 1002))
	runUntilIdle(t, machine)

	machine.Receive(NewConstHostSymbolMsg(Compute, 1003, 1001))
	requireViolation(t, DuplicateLogicalObject, machine.Schedule)
	require.Equal(t, []int64{1001, 1002}, machine.LogicalObjectIDs(), "table must be unchanged")

	machine = newLocalVM(t, 1, 1)
	machine.Receive(NewConstHostSymbolMsg(Compute, 7, 7))
	requireViolation(t, DuplicateLogicalObject, machine.Schedule)
	require.Zero(t, machine.NumLogicalObjects())
}

func TestLocalInstructions(t *testing.T) {
	machine := newLocalVM(t, 2, 1)
	machine.Receive(
		NewInstructionMsg(LocalNewConstHostSymbol, Compute, NewConstHostSymbolOperand(1)),
		NewInstructionMsg(LocalNewObject, Compute, NewObjectOperand([]int64{2}, 0, 1)))
	runUntilIdle(t, machine)
	require.Equal(t, []int64{1, 2}, machine.LogicalObjectIDs())
	require.Equal(t, LocalScope, LookupInstrTypeID(LocalNewObject).Scope())
	require.Equal(t, ClusterScope, LookupInstrTypeID(NewObject).Scope())
}

func TestNewObjectDeleteRelease(t *testing.T) {
	machine := newLocalVM(t, 2, 1)
	receiveInOrder(machine,
		NewObjectMsg(Infer, []int64{7, 8}, 0, 1),
		NewObjectMsg(Compute, []int64{7, 8}, 0, 1))
	runUntilIdle(t, machine)
	require.Equal(t, []int64{-8, -7, 7, 8}, machine.LogicalObjectIDs())
	lo, _ := machine.LogicalObject(7)
	require.Equal(t, []int{0, 1}, lo.GlobalDeviceIDs())

	machine.Receive(ReleaseMirroredObjectMsg(7, 1))
	runUntilIdle(t, machine)
	require.Equal(t, []int{0}, lo.GlobalDeviceIDs())

	machine.Receive(ReleaseMirroredObjectMsg(7, 1))
	requireViolation(t, MissingMirroredObject, machine.Schedule)

	machine = newLocalVM(t, 2, 1)
	machine.Receive(NewObjectMsg(Compute, []int64{7, 8}, 0, 1))
	runUntilIdle(t, machine)
	machine.Receive(DeleteObjectMsg(Compute, 7))
	runUntilIdle(t, machine)
	require.Equal(t, []int64{8}, machine.LogicalObjectIDs())

	// All ids are checked before any is deleted.
	machine.Receive(DeleteObjectMsg(Compute, 8, 7))
	requireViolation(t, MissingLogicalObject, machine.Schedule)
	require.Equal(t, []int64{8}, machine.LogicalObjectIDs())
}

func TestNewObjectPreconditions(t *testing.T) {
	machine := newLocalVM(t, 2, 1)
	machine.Receive(NewObjectMsg(Compute, []int64{1}, 0, 0))
	requireViolation(t, DuplicateMirroredObject, machine.Schedule)
	require.Zero(t, machine.NumLogicalObjects())

	machine = newLocalVM(t, 2, 1)
	machine.Receive(NewObjectMsg(Compute, []int64{1}))
	requireViolation(t, Precondition, machine.Schedule)

	machine = newLocalVM(t, 2, 1)
	machine.Receive(NewInstructionMsg(ReleaseMirroredObject, Infer, NewOperand().Int64(1, 1).Int64(2, 0).Done()))
	requireViolation(t, UnimplementedPhase, machine.Schedule)
}
