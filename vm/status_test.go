package vm

import (
	"runtime"
	"testing"

	"github.com/gomlx/govm/device"
	"github.com/stretchr/testify/require"
)

type oversizedQuerier struct {
	NaiveStatusQuerier
}

func (oversizedQuerier) RecordSize() uintptr { return InstructionStatusBufferBytes }

func TestStatusQueriers(t *testing.T) {
	for _, querier := range []StatusQuerier{NaiveStatusQuerier{}, AtomicStatusQuerier{}} {
		require.Less(t, querier.RecordSize(), uintptr(InstructionStatusBufferBytes))
		checkStatusQuerier("test", querier)

		var buf InstructionStatusBuffer
		querier.Init(&buf)
		require.False(t, querier.Done(&buf))
		querier.SetDone(&buf)
		for range 10 {
			require.True(t, querier.Done(&buf))
		}
		querier.Delete(&buf)
		buf.reset()
		querier.Init(&buf)
		require.False(t, querier.Done(&buf))
	}
	requireViolation(t, StatusBufferUndersized, func() { checkStatusQuerier("oversized", oversizedQuerier{}) })
}

func TestAtomicStatusFromExecutor(t *testing.T) {
	var querier AtomicStatusQuerier
	var buf InstructionStatusBuffer
	querier.Init(&buf)

	executor := device.NewExecutor("status")
	defer executor.Close()
	release := make(chan struct{})
	var result int
	executor.Submit(func() {
		<-release
		result = 42
		querier.SetDone(&buf)
	})
	require.False(t, querier.Done(&buf))
	close(release)
	for !querier.Done(&buf) {
		runtime.Gosched()
	}
	require.Equal(t, 42, result, "writes before SetDone must be visible once Done is observed")
	for range 100 {
		require.True(t, querier.Done(&buf))
	}
}
