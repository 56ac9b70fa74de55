package vm

// controlStreamType runs control-plane instructions (object table management) inline on the scheduler.
type controlStreamType struct {
	status NaiveStatusQuerier
}

// ControlStreamType is the stream type of the control-plane instructions, registered as "control".
//
// Its instructions run synchronously, on the scheduler goroutine: they are Done as soon as they are dispatched.
var ControlStreamType StreamType = &controlStreamType{}

// ControlStreamTypeName is the name ControlStreamType is registered with.
const ControlStreamTypeName = "control"

// StatusQuerier returns the querier of the stream type status records.
func (st *controlStreamType) StatusQuerier() StatusQuerier { return st.status }

// DeviceTag implements StreamType. Control-plane work runs on the host.
func (st *controlStreamType) DeviceTag() string { return "cpu" }

// InitDeviceContext implements StreamType: control-plane streams have no device context.
func (st *controlStreamType) InitDeviceContext(*Stream) {}

// InitInstructionStatus implements StreamType.
func (st *controlStreamType) InitInstructionStatus(_ *Stream, buf *InstructionStatusBuffer) {
	st.status.Init(buf)
}

// DeleteInstructionStatus implements StreamType.
func (st *controlStreamType) DeleteInstructionStatus(_ *Stream, buf *InstructionStatusBuffer) {
	st.status.Delete(buf)
}

// QueryInstructionStatusDone implements StreamType.
func (st *controlStreamType) QueryInstructionStatusDone(_ *Stream, buf *InstructionStatusBuffer) bool {
	return st.status.Done(buf)
}

// Infer implements StreamType.
func (st *controlStreamType) Infer(vm *VirtualMachine, chain *InstrChain) {
	inferInstruction(vm, chain.ctx.msg)
	st.status.SetDone(&chain.status)
}

// Compute implements StreamType.
func (st *controlStreamType) Compute(vm *VirtualMachine, chain *InstrChain) {
	computeInstruction(vm, chain.ctx.msg)
	st.status.SetDone(&chain.status)
}

// SharingSchedulerThread implements StreamType.
func (st *controlStreamType) SharingSchedulerThread() bool { return true }

// MakeRemoteStreamDesc implements StreamType: one control stream per machine.
func (st *controlStreamType) MakeRemoteStreamDesc(_ *Resource, machineID int) *StreamDesc {
	return NewStreamDesc(StreamTypeID{StreamType: st, Interpret: Compute}, 1, 1, 1, machineID)
}

// MakeLocalStreamDesc implements StreamType: one control stream.
func (st *controlStreamType) MakeLocalStreamDesc(*Resource) *StreamDesc {
	return NewStreamDesc(StreamTypeID{StreamType: st, Interpret: Compute}, 1, 1, 1, 0)
}
