package vm

import (
	"fmt"
	"math"

	"github.com/gomlx/govm/device"
	"github.com/gomlx/govm/dtypes"
	"k8s.io/klog/v2"
)

// Suffixes of the device instruction names: the full name is "<backend>.<suffix>", e.g. "cpu.Fill".
const (
	NewBlobInstruction = "NewBlob"
	FillInstruction    = "Fill"
	AxpyInstruction    = "Axpy"
)

// Operand field numbers of the device instructions.
const (
	ObjectField      = 1
	DTypeField       = 2
	NumElementsField = 3
	ValueField       = 2
	AxpyYField       = 1
	AxpyXField       = 2
	AxpyAlphaField   = 3
)

// DeviceInstructionName returns the name of a device instruction of the given backend.
func DeviceInstructionName(backendName, instruction string) string {
	return backendName + "." + instruction
}

// BlobType is the payload of the type objects (see TypeLogicalObjectID) of device blobs: it is what the
// Infer phases know about the blob.
type BlobType struct {
	DType       dtypes.DType
	NumElements int
}

// String implements fmt.Stringer.
func (t BlobType) String() string {
	return fmt.Sprintf("(%s)[%d]", t.DType, t.NumElements)
}

// deviceInstruction holds what is common to the device instruction types.
type deviceInstruction struct {
	backend    device.Backend
	streamType StreamType
	operands   *OperandPattern
}

func (t *deviceInstruction) StreamType() StreamType    { return t.streamType }
func (t *deviceInstruction) Operands() *OperandPattern { return t.operands }

// Compute implements InstructionType: device instructions only run on the device, see ComputeCtx.
func (t *deviceInstruction) Compute(_ *VirtualMachine, msg *InstructionMsg) {
	fatalf(UnimplementedPhase, "%s only runs on the device", msg)
}

// blobTypeOf returns the BlobType of the logical object id on the device the msg targets.
func blobTypeOf(vm *VirtualMachine, msg *InstructionMsg, id int64) BlobType {
	m := vm.mirroredObject(TypeLogicalObjectID(id), msg.globalDeviceID)
	blobType, ok := m.Payload().(BlobType)
	if !ok {
		fatalf(Precondition, "%s: logical object %d has no blob on device #%d", msg, id, msg.globalDeviceID)
	}
	return blobType
}

// blobOf returns the blob of the mirrored object, aborting if it has none.
func blobOf(ctx *InstrCtx, m *MirroredObject) *device.Blob {
	blob := m.Blob()
	if blob == nil {
		fatalf(Precondition, "%s: %s has no blob", ctx.msg, m)
	}
	return blob
}

// newBlobType allocates a blob on each of its mutable objects.
type newBlobType struct {
	deviceInstruction
}

func (t *newBlobType) blobType(msg *InstructionMsg, view *OperandView) BlobType {
	rawDType := view.Int64(DTypeField)
	if rawDType < math.MinInt32 || rawDType > math.MaxInt32 {
		fatalf(Precondition, "%s: dtype %d out of range", msg, rawDType)
	}
	blobType := BlobType{DType: dtypes.DType(rawDType), NumElements: int(view.Int64(NumElementsField))}
	if blobType.DType.Size() == 0 {
		fatalf(Precondition, "%s: invalid dtype %s", msg, blobType.DType)
	}
	if blobType.NumElements < 0 {
		fatalf(Precondition, "%s: invalid number of elements %d", msg, blobType.NumElements)
	}
	return blobType
}

// Infer implements InstructionType: it records the blob type in the type objects.
func (t *newBlobType) Infer(vm *VirtualMachine, msg *InstructionMsg) {
	view := t.operands.MustMatch(msg.operand)
	blobType := t.blobType(msg, view)
	for _, id := range view.MutObjectIDs() {
		vm.mirroredObject(TypeLogicalObjectID(id), msg.globalDeviceID).SetPayload(blobType)
	}
}

// ComputeCtx implements InstructionType.
func (t *newBlobType) ComputeCtx(ctx *InstrCtx) {
	blobType := t.blobType(ctx.msg, ctx.view)
	for _, m := range ctx.mutObjects {
		blob, err := t.backend.Alloc(ctx.DeviceContext(), blobType.DType, blobType.NumElements)
		if err != nil {
			fatalf(Precondition, "%s: %+v", ctx.msg, err)
		}
		m.SetPayload(blob)
	}
	if klog.V(3).Enabled() {
		klog.Infof("%s: allocated %d blobs %s", ctx.msg, len(ctx.mutObjects), blobType)
	}
}

// fillType sets all elements of the blobs of its mutable objects to a value.
type fillType struct {
	deviceInstruction
}

// Infer implements InstructionType: it checks the objects have blobs.
func (t *fillType) Infer(vm *VirtualMachine, msg *InstructionMsg) {
	view := t.operands.MustMatch(msg.operand)
	for _, id := range view.MutObjectIDs() {
		_ = blobTypeOf(vm, msg, id)
	}
}

// ComputeCtx implements InstructionType.
func (t *fillType) ComputeCtx(ctx *InstrCtx) {
	value := ctx.view.Double(ValueField)
	for _, m := range ctx.mutObjects {
		if err := t.backend.Fill(ctx.DeviceContext(), blobOf(ctx, m), value); err != nil {
			fatalf(Precondition, "%s: %+v", ctx.msg, err)
		}
	}
}

// axpyType computes y += alpha*x.
type axpyType struct {
	deviceInstruction
}

func (t *axpyType) checkArity(msg *InstructionMsg, view *OperandView) (y, x int64) {
	ys, xs := view.MutObjectIDs(), view.ConstObjectIDs()
	if len(ys) != 1 || len(xs) != 1 {
		fatalf(Precondition, "%s: takes exactly one y and one x, got %d and %d", msg, len(ys), len(xs))
	}
	return ys[0], xs[0]
}

// Infer implements InstructionType: it checks x and y have the same blob type.
func (t *axpyType) Infer(vm *VirtualMachine, msg *InstructionMsg) {
	view := t.operands.MustMatch(msg.operand)
	y, x := t.checkArity(msg, view)
	yType, xType := blobTypeOf(vm, msg, y), blobTypeOf(vm, msg, x)
	if yType != xType {
		fatalf(Precondition, "%s: y (logical object %d) is %s, x (logical object %d) is %s", msg, y, yType, x, xType)
	}
}

// ComputeCtx implements InstructionType.
func (t *axpyType) ComputeCtx(ctx *InstrCtx) {
	t.checkArity(ctx.msg, ctx.view)
	y, x := blobOf(ctx, ctx.mutObjects[0]), blobOf(ctx, ctx.constObjects[0])
	if x.Len() != y.Len() {
		fatalf(Precondition, "%s: y has %d elements, x has %d", ctx.msg, y.Len(), x.Len())
	}
	if err := t.backend.Axpy(ctx.DeviceContext(), ctx.view.Double(AxpyAlphaField), x, y); err != nil {
		fatalf(Precondition, "%s: %+v", ctx.msg, err)
	}
}

// registerDeviceInstructions registers the instructions of a device backend.
func registerDeviceInstructions(backend device.Backend, st StreamType) {
	name := func(suffix string) string { return DeviceInstructionName(backend.Name(), suffix) }
	base := func(suffix string) deviceInstruction {
		return deviceInstruction{backend: backend, streamType: st, operands: NewOperandPattern(name(suffix))}
	}

	newBlob := &newBlobType{base(NewBlobInstruction)}
	newBlob.operands.MutObjects(ObjectField, "object").Int64(DTypeField, "dtype").Int64(NumElementsField, "num_elements")
	RegisterInstructionType(name(NewBlobInstruction), newBlob)

	fill := &fillType{base(FillInstruction)}
	fill.operands.MutObjects(ObjectField, "object").Double(ValueField, "value")
	RegisterInstructionType(name(FillInstruction), fill)

	axpy := &axpyType{base(AxpyInstruction)}
	axpy.operands.MutObjects(AxpyYField, "y").ConstObjects(AxpyXField, "x").Double(AxpyAlphaField, "alpha")
	RegisterInstructionType(name(AxpyInstruction), axpy)
}

// NewBlobMsg returns an instruction allocating blobs for the objects on the given device.
func NewBlobMsg(backendName string, interpretType InterpretType, globalDeviceID int, dtype dtypes.DType, numElements int, ids ...int64) *InstructionMsg {
	operand := NewOperand().
		Int64s(ObjectField, ids...).
		Int64(DTypeField, int64(dtype)).
		Int64(NumElementsField, int64(numElements)).
		Done()
	return NewInstructionMsg(DeviceInstructionName(backendName, NewBlobInstruction), interpretType, operand).
		WithDevice(globalDeviceID)
}

// FillMsg returns an instruction filling the blobs of the objects on the given device with value.
func FillMsg(backendName string, interpretType InterpretType, globalDeviceID int, value float64, ids ...int64) *InstructionMsg {
	operand := NewOperand().Int64s(ObjectField, ids...).Double(ValueField, value).Done()
	return NewInstructionMsg(DeviceInstructionName(backendName, FillInstruction), interpretType, operand).
		WithDevice(globalDeviceID)
}

// AxpyMsg returns an instruction computing y += alpha*x on the given device.
func AxpyMsg(backendName string, interpretType InterpretType, globalDeviceID int, alpha float64, y, x int64) *InstructionMsg {
	operand := NewOperand().Int64s(AxpyYField, y).Int64s(AxpyXField, x).Double(AxpyAlphaField, alpha).Done()
	return NewInstructionMsg(DeviceInstructionName(backendName, AxpyInstruction), interpretType, operand).
		WithDevice(globalDeviceID)
}
