package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newChain returns a chain for msg on the first stream of id, outside of the scheduler.
func newChain(machine *VirtualMachine, id StreamTypeID, msg *InstructionMsg) *InstrChain {
	chain := getInstrChain()
	chain.ctx.msg = msg
	chain.ctx.stream = machine.Streams(id)[0]
	id.StreamType.InitInstructionStatus(chain.ctx.stream, &chain.status)
	return chain
}

func TestInferOnlyInstruction(t *testing.T) {
	instrType := LookupInstrTypeID(inferOnlyName).InstructionType().(*inferOnlyType)
	machine := newLocalVM(t, 1, 1)
	machine.Receive(NewInstructionMsg(inferOnlyName, Infer, nil))
	runUntilIdle(t, machine)
	require.Equal(t, 1, instrType.numInfer)

	machine.Receive(NewInstructionMsg(inferOnlyName, Compute, nil))
	requireViolation(t, UnimplementedPhase, machine.Schedule)
	require.Equal(t, 1, instrType.numInfer)
}

func TestInterpretTypeMismatch(t *testing.T) {
	machine := newLocalVM(t, 1, 1)
	controlID := StreamTypeID{StreamType: ControlStreamType, Interpret: Compute}
	chain := newChain(machine, controlID, NewConstHostSymbolMsg(Compute, 1))
	requireViolation(t, InterpretTypeMismatch, func() { ControlStreamType.Infer(machine, chain) })

	chain = newChain(machine, controlID, NewConstHostSymbolMsg(Infer, 1))
	requireViolation(t, InterpretTypeMismatch, func() { ControlStreamType.Compute(machine, chain) })
	require.Zero(t, machine.NumLogicalObjects())
}

func TestInferStreamTypeHasNoCompute(t *testing.T) {
	machine := newLocalVM(t, 1, 1)
	inferID := LookupInferStreamTypeID(ControlStreamType)
	require.Equal(t, Infer, inferID.Interpret)
	require.Equal(t, "infer:"+ControlStreamTypeName, StreamTypeName(inferID.StreamType))
	require.True(t, inferID.StreamType.SharingSchedulerThread())
	require.Equal(t, ControlStreamType.DeviceTag(), inferID.StreamType.DeviceTag())

	chain := newChain(machine, inferID, NewConstHostSymbolMsg(Compute, 1))
	requireViolation(t, UnimplementedPhase, func() { inferID.StreamType.Compute(machine, chain) })

	// Infer lanes of device stream types share the scheduler too.
	require.True(t, LookupInferStreamTypeID(CPUStreamType).StreamType.SharingSchedulerThread())
	require.False(t, CPUStreamType.SharingSchedulerThread())
}

func TestSharingSchedulerThreadIsSynchronous(t *testing.T) {
	machine := newLocalVM(t, 1, 1)
	controlID := StreamTypeID{StreamType: ControlStreamType, Interpret: Compute}
	chain := newChain(machine, controlID, NewConstHostSymbolMsg(Compute, 1, 2))
	require.False(t, chain.Done())
	ControlStreamType.Compute(machine, chain)
	require.True(t, chain.Done(), "no poll should be needed after Compute returns")
	require.Equal(t, 2, machine.NumLogicalObjects())
	ControlStreamType.DeleteInstructionStatus(chain.ctx.stream, &chain.status)
	returnInstrChain(chain)

	// Through the scheduler: one round admits, runs and retires.
	machine.Receive(NewConstHostSymbolMsg(Compute, 3))
	machine.Schedule()
	require.True(t, machine.Empty())
	require.Equal(t, 3, machine.NumLogicalObjects())
}
