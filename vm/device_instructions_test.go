package vm

import (
	"runtime"
	"testing"

	"github.com/gomlx/govm/device"
	"github.com/gomlx/govm/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestAxpy(t *testing.T) {
	machine := newLocalVM(t, 2, 1)
	cpu := device.CPUBackendName
	receiveInOrder(machine,
		NewObjectMsg(Infer, []int64{1, 2}, 0, 1),
		NewObjectMsg(Compute, []int64{1, 2}, 0, 1),
		NewBlobMsg(cpu, Infer, 0, dtypes.Float32, 4, 1, 2),
		NewBlobMsg(cpu, Compute, 0, dtypes.Float32, 4, 1, 2),
		FillMsg(cpu, Infer, 0, 2, 1),
		FillMsg(cpu, Compute, 0, 2, 1),
		FillMsg(cpu, Compute, 0, 3, 2),
		AxpyMsg(cpu, Infer, 0, 0.5, 1, 2),
		AxpyMsg(cpu, Compute, 0, 0.5, 1, 2))
	runUntilIdle(t, machine)

	lo, found := machine.LogicalObject(1)
	require.True(t, found)
	m, _ := lo.MirroredObject(0)
	require.NotNil(t, m.Blob())
	require.Equal(t, dtypes.Float32, m.Blob().DType())
	require.Equal(t, []float64{3.5, 3.5, 3.5, 3.5}, m.Blob().Float64s())

	// Type objects hold what Infer knows about the blobs.
	typeLO, _ := machine.LogicalObject(TypeLogicalObjectID(1))
	typeM, _ := typeLO.MirroredObject(0)
	require.Equal(t, BlobType{DType: dtypes.Float32, NumElements: 4}, typeM.Payload())

	// Device 1 binding was never given a blob.
	m1, _ := lo.MirroredObject(1)
	require.Nil(t, m1.Blob())
}

func TestAxpyMismatch(t *testing.T) {
	machine := newLocalVM(t, 1, 1)
	cpu := device.CPUBackendName
	receiveInOrder(machine,
		NewObjectMsg(Infer, []int64{1, 2}, 0),
		NewBlobMsg(cpu, Infer, 0, dtypes.Float64, 4, 1),
		NewBlobMsg(cpu, Infer, 0, dtypes.Float64, 3, 2))
	runUntilIdle(t, machine)
	machine.Receive(AxpyMsg(cpu, Infer, 0, 1, 1, 2))
	requireViolation(t, Precondition, machine.Schedule)

	// Fill of an object without blob.
	machine = newLocalVM(t, 1, 1)
	machine.Receive(NewObjectMsg(Infer, []int64{1}, 0))
	runUntilIdle(t, machine)
	machine.Receive(FillMsg(cpu, Infer, 0, 1, 1))
	requireViolation(t, Precondition, machine.Schedule)

	// Invalid dtype.
	machine = newLocalVM(t, 1, 1)
	machine.Receive(NewObjectMsg(Infer, []int64{1}, 0))
	runUntilIdle(t, machine)
	machine.Receive(NewBlobMsg(cpu, Infer, 0, dtypes.InvalidDType, 3, 1))
	requireViolation(t, Precondition, machine.Schedule)

	// A dtype that only becomes valid once truncated to 32 bits.
	machine = newLocalVM(t, 1, 1)
	machine.Receive(NewObjectMsg(Infer, []int64{1}, 0))
	runUntilIdle(t, machine)
	operand := NewOperand().
		Int64s(ObjectField, 1).
		Int64(DTypeField, 1<<32|int64(dtypes.Float32)).
		Int64(NumElementsField, 3).
		Done()
	machine.Receive(NewInstructionMsg(DeviceInstructionName(cpu, NewBlobInstruction), Infer, operand).WithDevice(0))
	requireViolation(t, Precondition, machine.Schedule)
	typeLO, found := machine.LogicalObject(TypeLogicalObjectID(1))
	require.True(t, found)
	typeM, _ := typeLO.MirroredObject(0)
	require.Nil(t, typeM.Payload())
}

func TestAxpyComputeCtxElementCountMismatch(t *testing.T) {
	executor := device.NewExecutor("test")
	defer executor.Close()
	deviceCtx := must.M1(device.CPU.NewContext(0, executor))
	stream := &Stream{globalDeviceID: 0, deviceCtx: deviceCtx}

	y := &MirroredObject{logicalObjectID: 1, payload: device.NewBlob(0, dtypes.Float32, 4)}
	x := &MirroredObject{logicalObjectID: 2, payload: device.NewBlob(0, dtypes.Float32, 3)}
	msg := AxpyMsg(device.CPUBackendName, Compute, 0, 1, 1, 2)
	instrType := msg.InstrTypeID().InstructionType()
	ctx := &InstrCtx{
		msg:          msg,
		stream:       stream,
		view:         instrType.Operands().MustMatch(msg.Operand()),
		mutObjects:   []*MirroredObject{y},
		constObjects: []*MirroredObject{x},
	}
	requireViolation(t, Precondition, func() { instrType.ComputeCtx(ctx) })

	// Device instructions have no scheduler side Compute.
	requireViolation(t, UnimplementedPhase, func() { instrType.Compute(nil, msg) })
}

func TestDeviceStreamFIFO(t *testing.T) {
	resetRecorder()
	machine := newLocalVM(t, 2, 2)
	const numPerDevice = 20
	for ii := range numPerDevice {
		machine.Receive(recordMsg(0, int64(ii)), recordMsg(1, int64(100+ii)))
	}
	runUntilIdle(t, machine)
	for deviceID, offset := range []int64{0, 100} {
		values := recorded(deviceID)
		require.Len(t, values, numPerDevice)
		for ii, v := range values {
			require.Equal(t, offset+int64(ii), v, "device #%d executed out of order", deviceID)
		}
	}
}

func TestDependencies(t *testing.T) {
	resetRecorder()
	machine := newLocalVM(t, 2, 1)
	gateSeqs := machine.Receive(gateMsg(0, 100))
	machine.Receive(recordMsg(1, 1).After(gateSeqs[0]), recordMsg(1, 2))

	// Device 1 lane is held by the dependency on device 0, in submission order.
	for range 100 {
		machine.Schedule()
		runtime.Gosched()
	}
	require.Empty(t, recorded(1))
	require.Equal(t, 3, machine.NumInFlight())
	stream1 := machine.Streams(StreamTypeID{StreamType: CPUStreamType, Interpret: Compute})[1]
	require.Equal(t, 2, stream1.NumWaiting())

	close(gate(100))
	runUntilIdle(t, machine)
	require.Equal(t, []int64{1, 2}, recorded(1))

	// Dependencies on retired instructions are already satisfied.
	machine.Receive(recordMsg(1, 3).After(gateSeqs[0]))
	runUntilIdle(t, machine)
	require.Equal(t, []int64{1, 2, 3}, recorded(1))
}

func TestDeviceCompletionIsPolled(t *testing.T) {
	machine := newLocalVM(t, 1, 1)
	machine.Receive(gateMsg(0, 200))
	machine.Schedule()
	stream := machine.Streams(StreamTypeID{StreamType: CPUStreamType, Interpret: Compute})[0]
	require.Equal(t, 1, stream.NumRunning())
	chain := stream.running[0]
	for range 10 {
		require.False(t, chain.Done())
		machine.Schedule()
	}
	close(gate(200))
	for !chain.Done() {
		runtime.Gosched()
	}
	for range 100 {
		require.True(t, chain.Done(), "status must stay Done once observed")
	}
	machine.Schedule()
	require.True(t, machine.Empty())
}
