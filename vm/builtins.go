package vm

import (
	"github.com/gomlx/govm/device"
)

// CPUStreamType is the device stream type of the device.CPU backend, registered as "cpu".
var CPUStreamType StreamType

func init() {
	RegisterStreamType(ControlStreamTypeName, ControlStreamType)
	registerControlInstructions()
	CPUStreamType = RegisterDeviceBackend(device.CPU)
}
