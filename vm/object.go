package vm

import (
	"fmt"
	"slices"

	"github.com/gomlx/govm/device"
)

// LogicalObject is a cluster-wide identity (symbol, tensor, resource), owning its per-device
// materializations (MirroredObject).
//
// It is owned by the VirtualMachine table, and only mutated by instructions targeting it.
type LogicalObject struct {
	id                      int64
	globalDeviceID2Mirrored map[int]*MirroredObject
}

// ID of the logical object.
func (lo *LogicalObject) ID() int64 { return lo.id }

// MirroredObject returns the materialization of the logical object on the given global device id.
func (lo *LogicalObject) MirroredObject(globalDeviceID int) (*MirroredObject, bool) {
	m, found := lo.globalDeviceID2Mirrored[globalDeviceID]
	return m, found
}

// NumMirroredObjects returns on how many devices the logical object is materialized.
func (lo *LogicalObject) NumMirroredObjects() int { return len(lo.globalDeviceID2Mirrored) }

// GlobalDeviceIDs returns the sorted ids of the devices the logical object is materialized on.
func (lo *LogicalObject) GlobalDeviceIDs() []int {
	ids := keys(lo.globalDeviceID2Mirrored)
	slices.Sort(ids)
	return ids
}

// insertMirroredObject aborts with DuplicateMirroredObject if the device is already bound.
func (lo *LogicalObject) insertMirroredObject(m *MirroredObject) {
	if _, found := lo.globalDeviceID2Mirrored[m.globalDeviceID]; found {
		fatalf(DuplicateMirroredObject, "logical object %d already has a mirrored object on device #%d",
			lo.id, m.globalDeviceID)
	}
	lo.globalDeviceID2Mirrored[m.globalDeviceID] = m
}

// eraseMirroredObject aborts with MissingMirroredObject if the device is not bound.
func (lo *LogicalObject) eraseMirroredObject(globalDeviceID int) {
	if _, found := lo.globalDeviceID2Mirrored[globalDeviceID]; !found {
		fatalf(MissingMirroredObject, "logical object %d has no mirrored object on device #%d", lo.id, globalDeviceID)
	}
	delete(lo.globalDeviceID2Mirrored, globalDeviceID)
}

// String implements fmt.Stringer.
func (lo *LogicalObject) String() string {
	return fmt.Sprintf("LogicalObject[%d, devices=%v]", lo.id, lo.GlobalDeviceIDs())
}

// MirroredObject is the materialization of a logical object on one device.
//
// It refers back to its logical object by id: the logical object alone governs its lifetime.
type MirroredObject struct {
	logicalObjectID int64
	globalDeviceID  int
	payload         any
}

// LogicalObjectID of the owning logical object.
func (m *MirroredObject) LogicalObjectID() int64 { return m.logicalObjectID }

// GlobalDeviceID the object is materialized on.
func (m *MirroredObject) GlobalDeviceID() int { return m.globalDeviceID }

// Payload returns the per-device state, nil for symbols.
func (m *MirroredObject) Payload() any { return m.payload }

// SetPayload sets the per-device state. Only instructions targeting the logical object may call it.
func (m *MirroredObject) SetPayload(payload any) { m.payload = payload }

// Blob returns the payload as a device blob, or nil if the payload is not one.
func (m *MirroredObject) Blob() *device.Blob {
	blob, _ := m.payload.(*device.Blob)
	return blob
}

// LogicalObject returns the owning logical object from the vm table.
func (m *MirroredObject) LogicalObject(vm *VirtualMachine) (*LogicalObject, bool) {
	return vm.LogicalObject(m.logicalObjectID)
}

// String implements fmt.Stringer.
func (m *MirroredObject) String() string {
	return fmt.Sprintf("MirroredObject[%d@device#%d]", m.logicalObjectID, m.globalDeviceID)
}

// TypeLogicalObjectID returns the id of the logical object holding the type (symbolic) information of the
// logical object id, as registered by Infer phases.
func TypeLogicalObjectID(id int64) int64 { return -id }

// SelfLogicalObjectID returns the id of the logical object holding the value itself, as registered by Compute phases.
func SelfLogicalObjectID(id int64) int64 { return id }
