// Package vm implements an instruction-stream virtual machine.
//
// Instructions (InstructionMsg) name a registered InstructionType and a phase: Infer resolves symbolic effects
// (it registers type objects, validates dtypes and sizes) and Compute performs the effect. Each instruction type
// is bound to a StreamType, the policy of a class of execution lanes (Stream): the control stream type runs
// its instructions inline on the scheduler goroutine, device stream types launch them on a device.Backend and
// complete asynchronously.
//
// The VirtualMachine owns the table of logical objects (cluster-wide identities), each with its mirrored
// objects (the per-device materialization). It is driven by a single goroutine:
//
//	machine, err := vm.New(vm.DefaultResource()).Local().Done()
//	if err != nil { ... }
//	machine.Receive(vm.NewConstHostSymbolMsg(vm.Infer, 1001, 1002), vm.NewConstHostSymbolMsg(vm.Compute, 1001, 1002))
//	err = machine.RunUntilIdle(ctx)
//
// Completion is only ever observed by polling the status of the in-flight instructions (see StatusQuerier):
// the scheduler never blocks on a device.
//
// Invariant violations (duplicate logical objects, unimplemented phases, mismatched operands, etc.) are
// programming errors: they are logged and the VM panics with an *InvariantViolation.
package vm
