package vm

import (
	"testing"

	"github.com/gomlx/govm/device"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	names := RegisteredStreamTypeNames()
	require.Subset(t, names, []string{"control", "cpu", "infer:control", "infer:cpu"})
	st, found := LookupStreamType("cpu")
	require.True(t, found)
	require.Same(t, CPUStreamType, st)
	require.Equal(t, "cpu", StreamTypeName(CPUStreamType))
	require.Equal(t, "<unregistered>", StreamTypeName(DeviceStreamType(device.CPU)))

	instrNames := RegisteredInstructionTypeNames()
	require.Subset(t, instrNames, []string{NewConstHostSymbol, LocalNewConstHostSymbol, NewObject, DeleteObject,
		ReleaseMirroredObject, "cpu.NewBlob", "cpu.Fill", "cpu.Axpy"})
	id := LookupInstrTypeID("cpu.Fill")
	require.Equal(t, "cpu.Fill", id.Name())
	require.Equal(t, StreamTypeID{StreamType: CPUStreamType, Interpret: Compute}, id.StreamTypeID(Compute))
	require.Equal(t, LookupInferStreamTypeID(CPUStreamType), id.StreamTypeID(Infer))
}

// oversizedStreamType is a cpu stream type whose status records don't fit the status buffers.
type oversizedStreamType struct {
	StreamType
}

func (oversizedStreamType) StatusQuerier() StatusQuerier { return oversizedQuerier{} }

func TestRegisterOversizedStatus(t *testing.T) {
	st := oversizedStreamType{StreamType: DeviceStreamType(device.CPU)}
	requireViolation(t, StatusBufferUndersized, func() { RegisterStreamType("oversized", st) })
	require.NotContains(t, RegisteredStreamTypeNames(), "oversized")
	require.NotContains(t, RegisteredStreamTypeNames(), "infer:oversized")

	infer := &inferStreamType{base: st}
	require.Equal(t, oversizedQuerier{}, infer.StatusQuerier(), "infer variant shares the base records")
	requireViolation(t, StatusBufferUndersized, func() { checkStatusQuerier("infer:oversized", infer.StatusQuerier()) })
}

func TestRegistryFrozen(t *testing.T) {
	machine := must.M1(New(&Resource{MachineNum: 1, CPUDeviceNum: 1}).Local().Done())
	defer func() { require.NoError(t, machine.Close()) }()
	requireViolation(t, Registration, func() { RegisterStreamType("late", DeviceStreamType(device.CPU)) })
	requireViolation(t, Registration, func() {
		RegisterInstructionType("late", &inferOnlyType{operands: NewOperandPattern("late")})
	})
	requireViolation(t, Registration, func() { RegisterDeviceBackend(device.CPU) })
	require.NotContains(t, RegisteredStreamTypeNames(), "late")
}
