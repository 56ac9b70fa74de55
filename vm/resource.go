package vm

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// MachineNumEnv is the environment variable with the default number of machines, see DefaultResource.
	MachineNumEnv = "GOVM_MACHINE_NUM"

	// CPUDeviceNumEnv is the environment variable with the default number of cpu devices per machine.
	CPUDeviceNumEnv = "GOVM_CPU_DEVICE_NUM"

	// StreamsPerThreadEnv is the environment variable with the default number of device streams sharing one thread.
	StreamsPerThreadEnv = "GOVM_STREAMS_PER_THREAD"
)

// Resource describes the cluster topology the virtual machine materializes streams for.
type Resource struct {
	// MachineNum is the number of machines in the cluster.
	MachineNum int

	// CPUDeviceNum is the number of cpu devices per machine.
	CPUDeviceNum int

	// DeviceNums holds the number of devices per machine of other device backends, indexed by backend name.
	DeviceNums map[string]int

	// StreamsPerThread is the number of device streams sharing one executor thread. Defaults to 1.
	StreamsPerThread int
}

// DefaultResource returns a single machine, single cpu device Resource, changed by the environment variables
// GOVM_MACHINE_NUM, GOVM_CPU_DEVICE_NUM and GOVM_STREAMS_PER_THREAD, if set.
func DefaultResource() *Resource {
	return &Resource{
		MachineNum:       intFromEnv(MachineNumEnv, 1),
		CPUDeviceNum:     intFromEnv(CPUDeviceNumEnv, 1),
		StreamsPerThread: intFromEnv(StreamsPerThreadEnv, 1),
	}
}

func intFromEnv(key string, defaultValue int) int {
	str, found := os.LookupEnv(key)
	if !found || str == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		klog.Errorf("Invalid value %q for %s, using default %d: %v", str, key, defaultValue, err)
		return defaultValue
	}
	return value
}

// NumDevices returns the number of devices per machine for the given device tag.
func (r *Resource) NumDevices(deviceTag string) int {
	if deviceTag == "cpu" {
		return r.CPUDeviceNum
	}
	return r.DeviceNums[deviceTag]
}

// streamsPerThread returns StreamsPerThread, or 1 if not set.
func (r *Resource) streamsPerThread() int {
	if r.StreamsPerThread <= 0 {
		return 1
	}
	return r.StreamsPerThread
}

// Validate returns an error if the resource can't be used to build a virtual machine.
func (r *Resource) Validate() error {
	if r.MachineNum <= 0 {
		return errors.Errorf("Resource.MachineNum must be > 0, got %d", r.MachineNum)
	}
	if r.CPUDeviceNum < 0 {
		return errors.Errorf("Resource.CPUDeviceNum must be >= 0, got %d", r.CPUDeviceNum)
	}
	for name, num := range r.DeviceNums {
		if num < 0 {
			return errors.Errorf("Resource.DeviceNums[%q] must be >= 0, got %d", name, num)
		}
	}
	return nil
}
