package vm

// InstructionType is the behavior of one kind of instruction. It binds to exactly one stream type.
//
// Phases are dispatched by the stream type:
//
//   - Infer(vm, msg) and Compute(vm, msg) run on the scheduler goroutine, for stream types that share it.
//   - ComputeCtx(ctx) runs wherever the stream type runs device work (e.g.: a device executor), with the
//     operand mirrored objects already bound to ctx.
//
// Embed UnimplementedInstructionType to get fatal defaults for the phases not implemented.
type InstructionType interface {
	// StreamType the instruction type runs on.
	StreamType() StreamType

	// Operands declares the operand fields.
	Operands() *OperandPattern

	// Infer resolves the symbolic effects of the instruction.
	Infer(vm *VirtualMachine, msg *InstructionMsg)

	// Compute performs the effect of the instruction on the scheduler goroutine.
	Compute(vm *VirtualMachine, msg *InstructionMsg)

	// ComputeCtx performs the effect of the instruction on the device side.
	ComputeCtx(ctx *InstrCtx)
}

// UnimplementedInstructionType implements the phases of InstructionType by aborting with UnimplementedPhase.
type UnimplementedInstructionType struct{}

// Infer implements InstructionType.
func (UnimplementedInstructionType) Infer(_ *VirtualMachine, msg *InstructionMsg) {
	fatalf(UnimplementedPhase, "instruction %q doesn't implement Infer", msg.instrTypeID.Name())
}

// Compute implements InstructionType.
func (UnimplementedInstructionType) Compute(_ *VirtualMachine, msg *InstructionMsg) {
	fatalf(UnimplementedPhase, "instruction %q doesn't implement Compute", msg.instrTypeID.Name())
}

// ComputeCtx implements InstructionType.
func (UnimplementedInstructionType) ComputeCtx(ctx *InstrCtx) {
	fatalf(UnimplementedPhase, "instruction %q doesn't implement ComputeCtx", ctx.msg.instrTypeID.Name())
}
