package device

import (
	"math"
	"sync"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/govm/dtypes"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestExecutorOrder(t *testing.T) {
	executor := NewExecutor(t.Name())
	var got []int
	var wg sync.WaitGroup
	wg.Add(100)
	for ii := range 100 {
		executor.Submit(func() {
			got = append(got, ii)
			wg.Done()
		})
	}
	wg.Wait()
	executor.Close()
	executor.Close() // Second close is a no-op.
	for ii, v := range got {
		require.Equal(t, ii, v)
	}
	require.Panics(t, func() { executor.Submit(func() {}) })
}

func TestCPUKernels(t *testing.T) {
	executor := NewExecutor(t.Name())
	defer executor.Close()
	ctx, err := CPU.NewContext(3, executor)
	require.NoError(t, err)
	require.Equal(t, 3, ctx.DeviceID())
	_, err = CPU.NewContext(0, nil)
	require.Error(t, err)

	for _, dtype := range []dtypes.DType{dtypes.Float32, dtypes.Float64, dtypes.Float16, dtypes.Int64} {
		x, err := CPU.Alloc(ctx, dtype, 4)
		require.NoError(t, err)
		y, err := CPU.Alloc(ctx, dtype, 4)
		require.NoError(t, err)
		require.Equal(t, 4*dtype.Size(), x.SizeInBytes())
		require.NoError(t, CPU.Fill(ctx, x, 2))
		require.NoError(t, CPU.Fill(ctx, y, 1))
		require.NoError(t, CPU.Axpy(ctx, 3, x, y))
		require.Equal(t, []float64{7, 7, 7, 7}, y.Float64s(), "dtype=%s", dtype)
	}
	_, isF16 := NewBlob(0, dtypes.Float16, 1).Flat().([]float16.Float16)
	require.True(t, isF16)
}

func TestCPUPreconditions(t *testing.T) {
	executor := NewExecutor(t.Name())
	defer executor.Close()
	ctx, err := CPU.NewContext(0, executor)
	require.NoError(t, err)

	_, err = CPU.Alloc(ctx, dtypes.InvalidDType, 1)
	require.Error(t, err)

	f32, _ := CPU.Alloc(ctx, dtypes.Float32, 2)
	require.ErrorContains(t, CPU.Fill(ctx, f32, 1e300), "overflows")
	f16, _ := CPU.Alloc(ctx, dtypes.Float16, 2)
	require.ErrorContains(t, CPU.Fill(ctx, f16, 1e6), "overflows")
	i64, _ := CPU.Alloc(ctx, dtypes.Int64, 2)
	require.ErrorContains(t, CPU.Fill(ctx, i64, 0.5), "not an integer")
	require.ErrorContains(t, CPU.Fill(ctx, i64, 1e19), "overflows")
	i64x, _ := CPU.Alloc(ctx, dtypes.Int64, 2)
	require.NoError(t, CPU.Fill(ctx, i64x, 3))
	require.NoError(t, CPU.Fill(ctx, i64, 1))
	require.ErrorContains(t, CPU.Axpy(ctx, 0.5, i64x, i64), "not an integer")
	require.ErrorContains(t, CPU.Axpy(ctx, math.Inf(1), i64x, i64), "overflows")
	require.Equal(t, []int64{1, 1}, i64.Flat(), "failed Axpy leaves y untouched")
	require.NoError(t, CPU.Axpy(ctx, 2, i64x, i64))
	require.Equal(t, []int64{7, 7}, i64.Flat())

	other, _ := CPU.Alloc(ctx, dtypes.Float32, 3)
	require.ErrorContains(t, CPU.Axpy(ctx, 1, other, f32), "element count mismatch")
	require.ErrorContains(t, CPU.Axpy(ctx, 1, f16, f32), "dtype mismatch")

	elsewhere := NewBlob(1, dtypes.Float32, 2)
	require.Error(t, CPU.Fill(ctx, elsewhere, 1))
	require.Contains(t, CPUDescription(), "cores")

	err = exceptions.TryCatch[error](func() { NewBlob(0, dtypes.InvalidDType, 1) })
	require.ErrorContains(t, err, "unsupported dtype")
}
