package vm

import (
	"fmt"

	"github.com/gomlx/govm/device"
)

// InstructionMsg is a request to run one phase (Infer or Compute) of an instruction type on an operand.
//
// Messages are built with NewInstructionMsg, optionally configured with WithDevice and After, and handed
// to VirtualMachine.Receive, which takes ownership: they must not be changed or received again afterwards.
type InstructionMsg struct {
	instrTypeID   *InstrTypeID
	interpretType InterpretType
	operand       Operand

	globalDeviceID int
	hasDevice      bool
	after          []int64

	// seq is assigned by VirtualMachine.Receive, 0 before that.
	seq int64
}

// NewInstructionMsg creates a message for the instruction type registered as name.
// It aborts with UnknownInstructionType if name is not registered.
func NewInstructionMsg(name string, interpretType InterpretType, operand Operand) *InstructionMsg {
	id := LookupInstrTypeID(name)
	if interpretType != Infer && interpretType != Compute {
		fatalf(InterpretTypeMismatch, "instruction %q created with invalid interpret type %s", name, interpretType)
	}
	return &InstructionMsg{
		instrTypeID:   id,
		interpretType: interpretType,
		operand:       operand,
	}
}

// WithDevice sets the global device id of the stream that will run the instruction.
// If not set, the first stream of the instruction's stream type is used, and the VM sets its device on admission.
func (m *InstructionMsg) WithDevice(globalDeviceID int) *InstructionMsg {
	m.globalDeviceID = globalDeviceID
	m.hasDevice = true
	return m
}

// After makes the instruction wait until the instructions with the given sequence numbers
// (returned by VirtualMachine.Receive) are retired. This is the only ordering across streams.
func (m *InstructionMsg) After(seqs ...int64) *InstructionMsg {
	m.after = append(m.after, seqs...)
	return m
}

// InstrTypeID of the message.
func (m *InstructionMsg) InstrTypeID() *InstrTypeID { return m.instrTypeID }

// InterpretType of the message.
func (m *InstructionMsg) InterpretType() InterpretType { return m.interpretType }

// Operand of the message.
func (m *InstructionMsg) Operand() Operand { return m.operand }

// Seq returns the sequence number assigned by VirtualMachine.Receive, or 0 if not received yet.
func (m *InstructionMsg) Seq() int64 { return m.seq }

// StreamTypeID returns the lanes that run this message.
func (m *InstructionMsg) StreamTypeID() StreamTypeID {
	return m.instrTypeID.StreamTypeID(m.interpretType)
}

// String implements fmt.Stringer.
func (m *InstructionMsg) String() string {
	deviceStr := "default"
	if m.hasDevice {
		deviceStr = fmt.Sprintf("#%d", m.globalDeviceID)
	}
	return fmt.Sprintf("Instruction[#%d %s %s, device=%s, %d operand bytes]",
		m.seq, m.interpretType, m.instrTypeID.Name(), deviceStr, len(m.operand))
}

// InstrCtx is the execution context of one instruction message on a stream.
//
// For asynchronous streams, the stream type binds the mirrored objects named by the operand before launching
// the work, so Compute phases running off the scheduler never read the logical object table.
type InstrCtx struct {
	msg    *InstructionMsg
	stream *Stream
	view   *OperandView

	mutObjects   []*MirroredObject
	constObjects []*MirroredObject
}

// Msg returns the instruction message.
func (ctx *InstrCtx) Msg() *InstructionMsg { return ctx.msg }

// Stream running the instruction.
func (ctx *InstrCtx) Stream() *Stream { return ctx.stream }

// DeviceContext of the stream running the instruction.
func (ctx *InstrCtx) DeviceContext() device.Context { return ctx.stream.deviceCtx }

// View returns the operand view bound by the stream type, or nil if operands were not bound.
func (ctx *InstrCtx) View() *OperandView { return ctx.view }

// NumMutObjects returns the number of mutable mirrored objects bound.
func (ctx *InstrCtx) NumMutObjects() int { return len(ctx.mutObjects) }

// MutObject returns the i-th mutable mirrored object bound.
func (ctx *InstrCtx) MutObject(i int) *MirroredObject { return ctx.mutObjects[i] }

// NumConstObjects returns the number of const mirrored objects bound.
func (ctx *InstrCtx) NumConstObjects() int { return len(ctx.constObjects) }

// ConstObject returns the i-th const mirrored object bound.
func (ctx *InstrCtx) ConstObject(i int) *MirroredObject { return ctx.constObjects[i] }

// bindOperands matches the operand against its instruction type pattern and binds the mirrored objects of the
// ctx's stream device. It must run on the scheduler goroutine.
func (ctx *InstrCtx) bindOperands(vm *VirtualMachine) {
	pattern := ctx.msg.instrTypeID.instrType.Operands()
	ctx.view = pattern.MustMatch(ctx.msg.operand)
	deviceID := ctx.stream.globalDeviceID
	ctx.mutObjects = vm.bindMirroredObjects(ctx.mutObjects[:0], ctx.view.MutObjectIDs(), deviceID)
	ctx.constObjects = vm.bindMirroredObjects(ctx.constObjects[:0], ctx.view.ConstObjectIDs(), deviceID)
}

// chainState is the scheduling state of an InstrChain.
type chainState int

const (
	chainWaiting chainState = iota
	chainRunning
	chainRetired
)

// InstrChain wraps an InstrCtx with its in-place status buffer and scheduling bookkeeping.
// It is owned by the stream processing it, and recycled once retired.
type InstrChain struct {
	ctx    InstrCtx
	status InstructionStatusBuffer
	state  chainState

	// numPendingDeps is the number of instructions this one still waits for.
	numPendingDeps int

	// dependents are released when this chain retires.
	dependents []*InstrChain
}

// Ctx returns the instruction context.
func (c *InstrChain) Ctx() *InstrCtx { return &c.ctx }

// StatusBuffer returns the status buffer of the instruction.
func (c *InstrChain) StatusBuffer() *InstructionStatusBuffer { return &c.status }

// Done polls the status of the instruction through its stream type.
func (c *InstrChain) Done() bool {
	stream := c.ctx.stream
	return stream.streamType().QueryInstructionStatusDone(stream, &c.status)
}
