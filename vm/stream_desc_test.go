package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamDescRemoteAndLocal(t *testing.T) {
	resource := &Resource{MachineNum: 1, CPUDeviceNum: 1}
	for _, st := range []StreamType{ControlStreamType, CPUStreamType, LookupInferStreamTypeID(CPUStreamType).StreamType} {
		remote := st.MakeRemoteStreamDesc(resource, 0)
		local := st.MakeLocalStreamDesc(resource)
		require.Truef(t, remote.SameTopology(local), "%s vs %s", remote, local)
		require.Equal(t, 1, remote.NumMachines())
		require.Equal(t, 1, remote.NumStreams())
		require.Equal(t, local.StartGlobalDeviceID(), remote.StartGlobalDeviceID())
		require.Equal(t, st, remote.StreamTypeID().StreamType)
	}

	// Remote descriptors of other machines start at their own devices.
	resource = &Resource{MachineNum: 4, CPUDeviceNum: 2, StreamsPerThread: 2}
	control := ControlStreamType.MakeRemoteStreamDesc(resource, 2)
	require.Equal(t, 2, control.StartGlobalDeviceID())
	require.Equal(t, 1, control.NumStreams())
	cpu := CPUStreamType.MakeRemoteStreamDesc(resource, 2)
	require.Equal(t, 4, cpu.StartGlobalDeviceID())
	require.Equal(t, 2, cpu.NumStreamsPerMachine())
	require.Equal(t, 2, cpu.NumStreamsPerThread())
	require.True(t, cpu.SameTopology(CPUStreamType.MakeLocalStreamDesc(resource)))
	require.Equal(t, 0, CPUStreamType.MakeLocalStreamDesc(resource).StartGlobalDeviceID())

	inferCPU := LookupInferStreamTypeID(CPUStreamType)
	inferDesc := inferCPU.StreamType.MakeRemoteStreamDesc(resource, 2)
	require.Equal(t, inferCPU, inferDesc.StreamTypeID())
	require.False(t, inferDesc.SameTopology(cpu), "different stream type ids")
	require.True(t, inferDesc.WithStreamTypeID(cpu.StreamTypeID()).SameTopology(cpu))
}

func TestResource(t *testing.T) {
	t.Setenv(MachineNumEnv, "3")
	t.Setenv(CPUDeviceNumEnv, "4")
	t.Setenv(StreamsPerThreadEnv, "not a number")
	resource := DefaultResource()
	require.Equal(t, 3, resource.MachineNum)
	require.Equal(t, 4, resource.NumDevices("cpu"))
	require.Equal(t, 1, resource.streamsPerThread())
	require.NoError(t, resource.Validate())
	require.Zero(t, resource.NumDevices("tpu"))

	require.Error(t, (&Resource{MachineNum: 1, CPUDeviceNum: -1}).Validate())
	require.Error(t, (&Resource{MachineNum: 1, DeviceNums: map[string]int{"tpu": -1}}).Validate())
}
