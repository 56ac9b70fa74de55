package vm

import (
	"k8s.io/klog/v2"
)

// Names of the control-plane instruction types. The Local* versions only apply to the invoking machine.
const (
	NewConstHostSymbol         = "NewConstHostSymbol"
	LocalNewConstHostSymbol    = "LocalNewConstHostSymbol"
	NewObject                  = "NewObject"
	LocalNewObject             = "LocalNewObject"
	DeleteObject               = "DeleteObject"
	LocalDeleteObject          = "LocalDeleteObject"
	ReleaseMirroredObject      = "ReleaseMirroredObject"
	LocalReleaseMirroredObject = "LocalReleaseMirroredObject"
)

// Operand field numbers of the control-plane instructions.
const (
	LogicalObjectIDField = 1
	GlobalDeviceIDField  = 2
)

// HostDeviceID is the device control-plane symbols are materialized on.
const HostDeviceID = 0

// logicalObjectIDFn maps the ids of an operand to the ids in the table for a phase.
func logicalObjectIDFn(phase InterpretType) func(int64) int64 {
	if phase == Infer {
		return TypeLogicalObjectID
	}
	return SelfLogicalObjectID
}

// mapIDs returns fn applied to every id.
func mapIDs(ids []int64, fn func(int64) int64) []int64 {
	mapped := make([]int64, len(ids))
	for ii, id := range ids {
		mapped[ii] = fn(id)
	}
	return mapped
}

// newObjects creates the logical objects, each with mirrored objects on the given devices.
// Everything is validated before the table is changed.
func newObjects(vm *VirtualMachine, msg *InstructionMsg, ids []int64, globalDeviceIDs []int) {
	name := msg.instrTypeID.Name()
	vm.checkNewLogicalObjects(name, ids)
	seen := make(map[int]struct{}, len(globalDeviceIDs))
	for _, deviceID := range globalDeviceIDs {
		if _, found := seen[deviceID]; found {
			fatalf(DuplicateMirroredObject, "%s: device #%d listed twice", name, deviceID)
		}
		seen[deviceID] = struct{}{}
	}
	for _, id := range ids {
		vm.newLogicalObject(id, globalDeviceIDs...)
	}
	klog.V(2).Infof("%s: created logical objects %v on devices %v", name, ids, globalDeviceIDs)
}

// newConstHostSymbolType creates symbols materialized on the host device only.
type newConstHostSymbolType struct {
	operands *OperandPattern
}

func (t *newConstHostSymbolType) StreamType() StreamType    { return ControlStreamType }
func (t *newConstHostSymbolType) Operands() *OperandPattern { return t.operands }

func (t *newConstHostSymbolType) run(vm *VirtualMachine, msg *InstructionMsg, phase InterpretType) {
	view := t.operands.MustMatch(msg.operand)
	ids := mapIDs(view.Int64s(LogicalObjectIDField), logicalObjectIDFn(phase))
	newObjects(vm, msg, ids, []int{HostDeviceID})
}

// Infer implements InstructionType: it creates the type objects of the symbols.
func (t *newConstHostSymbolType) Infer(vm *VirtualMachine, msg *InstructionMsg) {
	t.run(vm, msg, Infer)
}

// Compute implements InstructionType: it creates the symbols.
func (t *newConstHostSymbolType) Compute(vm *VirtualMachine, msg *InstructionMsg) {
	t.run(vm, msg, Compute)
}

// ComputeCtx implements InstructionType.
func (t *newConstHostSymbolType) ComputeCtx(ctx *InstrCtx) {
	fatalf(UnimplementedPhase, "%s runs on the control stream, it has no device phase", ctx.msg)
}

// newObjectType creates logical objects materialized on the listed devices.
type newObjectType struct {
	operands *OperandPattern
}

func (t *newObjectType) StreamType() StreamType    { return ControlStreamType }
func (t *newObjectType) Operands() *OperandPattern { return t.operands }

func (t *newObjectType) run(vm *VirtualMachine, msg *InstructionMsg, phase InterpretType) {
	view := t.operands.MustMatch(msg.operand)
	ids := mapIDs(view.Int64s(LogicalObjectIDField), logicalObjectIDFn(phase))
	deviceIDs64 := view.Int64s(GlobalDeviceIDField)
	if len(deviceIDs64) == 0 {
		fatalf(Precondition, "%s: no %s given", msg, t.operands.Fields()[1].Name)
	}
	deviceIDs := make([]int, len(deviceIDs64))
	for ii, id := range deviceIDs64 {
		if id < 0 {
			fatalf(UnknownDevice, "%s: invalid global device id %d", msg, id)
		}
		deviceIDs[ii] = int(id)
	}
	newObjects(vm, msg, ids, deviceIDs)
}

// Infer implements InstructionType.
func (t *newObjectType) Infer(vm *VirtualMachine, msg *InstructionMsg) { t.run(vm, msg, Infer) }

// Compute implements InstructionType.
func (t *newObjectType) Compute(vm *VirtualMachine, msg *InstructionMsg) { t.run(vm, msg, Compute) }

// ComputeCtx implements InstructionType.
func (t *newObjectType) ComputeCtx(ctx *InstrCtx) {
	fatalf(UnimplementedPhase, "%s runs on the control stream, it has no device phase", ctx.msg)
}

// deleteObjectType deletes logical objects with all their mirrored objects.
type deleteObjectType struct {
	operands *OperandPattern
}

func (t *deleteObjectType) StreamType() StreamType    { return ControlStreamType }
func (t *deleteObjectType) Operands() *OperandPattern { return t.operands }

func (t *deleteObjectType) run(vm *VirtualMachine, msg *InstructionMsg, phase InterpretType) {
	view := t.operands.MustMatch(msg.operand)
	ids := mapIDs(view.Int64s(LogicalObjectIDField), logicalObjectIDFn(phase))
	for _, id := range ids {
		if _, found := vm.id2LogicalObject[id]; !found {
			fatalf(MissingLogicalObject, "%s: logical object %d not found", msg, id)
		}
	}
	for _, id := range ids {
		vm.deleteLogicalObject(id)
	}
}

// Infer implements InstructionType.
func (t *deleteObjectType) Infer(vm *VirtualMachine, msg *InstructionMsg) { t.run(vm, msg, Infer) }

// Compute implements InstructionType.
func (t *deleteObjectType) Compute(vm *VirtualMachine, msg *InstructionMsg) { t.run(vm, msg, Compute) }

// ComputeCtx implements InstructionType.
func (t *deleteObjectType) ComputeCtx(ctx *InstrCtx) {
	fatalf(UnimplementedPhase, "%s runs on the control stream, it has no device phase", ctx.msg)
}

// releaseMirroredObjectType releases the binding of one logical object to one device. It has no Infer phase.
type releaseMirroredObjectType struct {
	UnimplementedInstructionType
	operands *OperandPattern
}

func (t *releaseMirroredObjectType) StreamType() StreamType    { return ControlStreamType }
func (t *releaseMirroredObjectType) Operands() *OperandPattern { return t.operands }

// Compute implements InstructionType.
func (t *releaseMirroredObjectType) Compute(vm *VirtualMachine, msg *InstructionMsg) {
	view := t.operands.MustMatch(msg.operand)
	id := view.Int64(LogicalObjectIDField)
	deviceID := int(view.Int64(GlobalDeviceIDField))
	lo, found := vm.id2LogicalObject[id]
	if !found {
		fatalf(MissingLogicalObject, "%s: logical object %d not found", msg, id)
	}
	lo.eraseMirroredObject(deviceID)
	klog.V(2).Infof("%s: released %d@device#%d", msg.instrTypeID.Name(), id, deviceID)
}

// NewConstHostSymbolOperand returns the operand of a NewConstHostSymbol instruction.
func NewConstHostSymbolOperand(ids ...int64) Operand {
	return NewOperand().Int64s(LogicalObjectIDField, ids...).Done()
}

// NewConstHostSymbolMsg returns a NewConstHostSymbol instruction creating the given symbols on the host device.
func NewConstHostSymbolMsg(interpretType InterpretType, ids ...int64) *InstructionMsg {
	return NewInstructionMsg(NewConstHostSymbol, interpretType, NewConstHostSymbolOperand(ids...))
}

// NewObjectOperand returns the operand of a NewObject instruction.
func NewObjectOperand(ids []int64, globalDeviceIDs ...int) Operand {
	deviceIDs := make([]int64, len(globalDeviceIDs))
	for ii, id := range globalDeviceIDs {
		deviceIDs[ii] = int64(id)
	}
	return NewOperand().
		Int64s(LogicalObjectIDField, ids...).
		Int64s(GlobalDeviceIDField, deviceIDs...).
		Done()
}

// NewObjectMsg returns a NewObject instruction creating the logical objects on the given devices.
func NewObjectMsg(interpretType InterpretType, ids []int64, globalDeviceIDs ...int) *InstructionMsg {
	return NewInstructionMsg(NewObject, interpretType, NewObjectOperand(ids, globalDeviceIDs...))
}

// DeleteObjectMsg returns a DeleteObject instruction.
func DeleteObjectMsg(interpretType InterpretType, ids ...int64) *InstructionMsg {
	return NewInstructionMsg(DeleteObject, interpretType, NewOperand().Int64s(LogicalObjectIDField, ids...).Done())
}

// ReleaseMirroredObjectMsg returns a (Compute) ReleaseMirroredObject instruction.
func ReleaseMirroredObjectMsg(id int64, globalDeviceID int) *InstructionMsg {
	operand := NewOperand().
		Int64(LogicalObjectIDField, id).
		Int64(GlobalDeviceIDField, int64(globalDeviceID)).
		Done()
	return NewInstructionMsg(ReleaseMirroredObject, Compute, operand)
}

// registerControlInstructions registers the cluster and local versions of the control-plane instructions.
func registerControlInstructions() {
	idsPattern := func(name string) *OperandPattern {
		return NewOperandPattern(name).Int64s(LogicalObjectIDField, "logical_object_id")
	}
	newConst := &newConstHostSymbolType{operands: idsPattern(NewConstHostSymbol)}
	RegisterInstructionType(NewConstHostSymbol, newConst)
	RegisterLocalInstructionType(LocalNewConstHostSymbol, newConst)

	newObject := &newObjectType{operands: idsPattern(NewObject).Int64s(GlobalDeviceIDField, "global_device_id")}
	RegisterInstructionType(NewObject, newObject)
	RegisterLocalInstructionType(LocalNewObject, newObject)

	deleteObject := &deleteObjectType{operands: idsPattern(DeleteObject)}
	RegisterInstructionType(DeleteObject, deleteObject)
	RegisterLocalInstructionType(LocalDeleteObject, deleteObject)

	release := &releaseMirroredObjectType{operands: NewOperandPattern(ReleaseMirroredObject).
		Int64(LogicalObjectIDField, "logical_object_id").
		Int64(GlobalDeviceIDField, "global_device_id")}
	RegisterInstructionType(ReleaseMirroredObject, release)
	RegisterLocalInstructionType(LocalReleaseMirroredObject, release)
}
