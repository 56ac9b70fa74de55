package vm

// StreamType is the execution policy shared by all streams of one resource class (control-plane,
// a device family, ...).
//
// Stream types are registered by name with RegisterStreamType at process startup, and are read-only
// afterwards. Phases a stream type can't run must abort with UnimplementedPhase, never be ignored.
type StreamType interface {
	// DeviceTag is the resource class tag (e.g. "cpu"), used for routing and diagnostics.
	DeviceTag() string

	// InitDeviceContext acquires the device context of the stream, see Stream.SetDeviceContext.
	// It is called once, before the first instruction of the stream runs. No-op is valid.
	InitDeviceContext(stream *Stream)

	// StatusQuerier is the protocol of the status records of the stream type. Its records must fit an
	// InstructionStatusBuffer, which is checked at registration.
	StatusQuerier() StatusQuerier

	// InitInstructionStatus constructs a Pending status record in place.
	InitInstructionStatus(stream *Stream, buf *InstructionStatusBuffer)

	// DeleteInstructionStatus destroys the status record.
	DeleteInstructionStatus(stream *Stream, buf *InstructionStatusBuffer)

	// QueryInstructionStatusDone polls the status record: it never blocks and has no side effects.
	QueryInstructionStatusDone(stream *Stream, buf *InstructionStatusBuffer) bool

	// Infer runs the Infer phase of the chain's instruction.
	Infer(vm *VirtualMachine, chain *InstrChain)

	// Compute runs (or launches, for asynchronous streams) the Compute phase of the chain's instruction.
	Compute(vm *VirtualMachine, chain *InstrChain)

	// SharingSchedulerThread returns whether the stream type work runs inline on the scheduler goroutine.
	// If true, the status of an instruction is Done as soon as Infer or Compute returns.
	SharingSchedulerThread() bool

	// MakeRemoteStreamDesc describes the streams of this stream type on machine machineID of a cluster.
	MakeRemoteStreamDesc(resource *Resource, machineID int) *StreamDesc

	// MakeLocalStreamDesc describes the streams of this stream type for the current process only.
	MakeLocalStreamDesc(resource *Resource) *StreamDesc
}

// inferStreamType is the infer variant of a stream type: it shares the base status records and Infer
// behavior, but always runs on the scheduler goroutine, and has no Compute phase.
type inferStreamType struct {
	base StreamType
}

// DeviceTag implements StreamType.
func (st *inferStreamType) DeviceTag() string { return st.base.DeviceTag() }

// InitDeviceContext implements StreamType. Infer never touches the device.
func (st *inferStreamType) InitDeviceContext(*Stream) {}

// StatusQuerier implements StreamType: records are shared with the base stream type.
func (st *inferStreamType) StatusQuerier() StatusQuerier { return st.base.StatusQuerier() }

// InitInstructionStatus implements StreamType.
func (st *inferStreamType) InitInstructionStatus(stream *Stream, buf *InstructionStatusBuffer) {
	st.base.InitInstructionStatus(stream, buf)
}

// DeleteInstructionStatus implements StreamType.
func (st *inferStreamType) DeleteInstructionStatus(stream *Stream, buf *InstructionStatusBuffer) {
	st.base.DeleteInstructionStatus(stream, buf)
}

// QueryInstructionStatusDone implements StreamType.
func (st *inferStreamType) QueryInstructionStatusDone(stream *Stream, buf *InstructionStatusBuffer) bool {
	return st.base.QueryInstructionStatusDone(stream, buf)
}

// Infer implements StreamType.
func (st *inferStreamType) Infer(vm *VirtualMachine, chain *InstrChain) {
	st.base.Infer(vm, chain)
}

// Compute implements StreamType: infer lanes can't compute.
func (st *inferStreamType) Compute(_ *VirtualMachine, chain *InstrChain) {
	fatalf(UnimplementedPhase, "stream type %q has no Compute phase (instruction %q)",
		StreamTypeName(st), chain.ctx.msg.instrTypeID.Name())
}

// SharingSchedulerThread implements StreamType.
func (st *inferStreamType) SharingSchedulerThread() bool { return true }

// MakeRemoteStreamDesc implements StreamType.
func (st *inferStreamType) MakeRemoteStreamDesc(resource *Resource, machineID int) *StreamDesc {
	return st.base.MakeRemoteStreamDesc(resource, machineID).WithStreamTypeID(StreamTypeID{st, Infer})
}

// MakeLocalStreamDesc implements StreamType.
func (st *inferStreamType) MakeLocalStreamDesc(resource *Resource) *StreamDesc {
	return st.base.MakeLocalStreamDesc(resource).WithStreamTypeID(StreamTypeID{st, Infer})
}

// inferInstruction dispatches an Infer tagged message to its instruction type.
func inferInstruction(vm *VirtualMachine, msg *InstructionMsg) {
	checkInterpretType(msg, Infer)
	msg.instrTypeID.instrType.Infer(vm, msg)
}

// computeInstruction dispatches a Compute tagged message to its instruction type.
func computeInstruction(vm *VirtualMachine, msg *InstructionMsg) {
	checkInterpretType(msg, Compute)
	msg.instrTypeID.instrType.Compute(vm, msg)
}
