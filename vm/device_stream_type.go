package vm

import (
	"github.com/gomlx/govm/device"
)

// deviceStreamType runs the Compute phase of its instructions on a device backend: work is launched on the
// stream's device context, and completes asynchronously on the executor of the stream's thread.
type deviceStreamType struct {
	backend device.Backend
	status  AtomicStatusQuerier
}

// DeviceStreamType returns a stream type for the given backend. It is not registered: see RegisterDeviceBackend.
func DeviceStreamType(backend device.Backend) StreamType {
	return &deviceStreamType{backend: backend}
}

// Backend of the stream type.
func (st *deviceStreamType) Backend() device.Backend { return st.backend }

// StatusQuerier returns the querier of the stream type status records.
func (st *deviceStreamType) StatusQuerier() StatusQuerier { return st.status }

// DeviceTag implements StreamType.
func (st *deviceStreamType) DeviceTag() string { return st.backend.Name() }

// InitDeviceContext implements StreamType: it creates the backend context bound to the stream thread executor.
func (st *deviceStreamType) InitDeviceContext(stream *Stream) {
	ctx, err := st.backend.NewContext(stream.globalDeviceID, stream.thread.executor)
	if err != nil {
		fatalf(UnknownDevice, "failed to create device context for %s: %+v", stream, err)
	}
	stream.SetDeviceContext(ctx)
}

// InitInstructionStatus implements StreamType.
func (st *deviceStreamType) InitInstructionStatus(_ *Stream, buf *InstructionStatusBuffer) {
	st.status.Init(buf)
}

// DeleteInstructionStatus implements StreamType.
func (st *deviceStreamType) DeleteInstructionStatus(_ *Stream, buf *InstructionStatusBuffer) {
	st.status.Delete(buf)
}

// QueryInstructionStatusDone implements StreamType.
func (st *deviceStreamType) QueryInstructionStatusDone(_ *Stream, buf *InstructionStatusBuffer) bool {
	return st.status.Done(buf)
}

// Infer implements StreamType. It runs on the scheduler goroutine, from the infer lanes.
func (st *deviceStreamType) Infer(vm *VirtualMachine, chain *InstrChain) {
	inferInstruction(vm, chain.ctx.msg)
	st.status.SetDone(&chain.status)
}

// Compute implements StreamType: it binds the operand objects and launches the instruction on the device.
// The status is set to Done by the device when the work finishes.
func (st *deviceStreamType) Compute(vm *VirtualMachine, chain *InstrChain) {
	msg := chain.ctx.msg
	checkInterpretType(msg, Compute)
	chain.ctx.bindOperands(vm)
	instrType := msg.instrTypeID.instrType
	ctx := &chain.ctx
	ctx.stream.deviceCtx.Submit(
		func() { instrType.ComputeCtx(ctx) },
		func() { st.status.SetDone(&chain.status) })
}

// SharingSchedulerThread implements StreamType.
func (st *deviceStreamType) SharingSchedulerThread() bool { return false }

// MakeRemoteStreamDesc implements StreamType: one stream per device of the machine.
func (st *deviceStreamType) MakeRemoteStreamDesc(resource *Resource, machineID int) *StreamDesc {
	numDevices := resource.NumDevices(st.DeviceTag())
	return NewStreamDesc(StreamTypeID{StreamType: st, Interpret: Compute},
		1, numDevices, resource.streamsPerThread(), machineID*numDevices)
}

// MakeLocalStreamDesc implements StreamType: one stream per device of the current process.
func (st *deviceStreamType) MakeLocalStreamDesc(resource *Resource) *StreamDesc {
	return NewStreamDesc(StreamTypeID{StreamType: st, Interpret: Compute},
		1, resource.NumDevices(st.DeviceTag()), resource.streamsPerThread(), 0)
}

// RegisterDeviceBackend registers the device stream type of backend, under the backend name, and its
// instruction types: "<backend>.NewBlob", "<backend>.Fill" and "<backend>.Axpy".
//
// It must be called at startup, typically from init().
func RegisterDeviceBackend(backend device.Backend) StreamType {
	st := DeviceStreamType(backend)
	RegisterStreamType(backend.Name(), st)
	registerDeviceInstructions(backend, st)
	return st
}
