package device

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/chewxy/math32"
	"github.com/gomlx/govm/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/sys/cpu"
)

// CPUBackendName is the name (and device tag) of the reference CPU backend.
const CPUBackendName = "cpu"

// CPU is the reference backend: device memory is host memory, and device work runs on the executor goroutines.
var CPU Backend = &cpuBackend{}

type cpuBackend struct{}

type cpuContext struct {
	deviceID int
	executor *Executor
}

// Name implements Backend.
func (*cpuBackend) Name() string { return CPUBackendName }

// NewContext implements Backend.
func (b *cpuBackend) NewContext(globalDeviceID int, executor *Executor) (Context, error) {
	if executor == nil {
		return nil, errors.Errorf("cpu backend requires an executor for device #%d", globalDeviceID)
	}
	if globalDeviceID < 0 {
		return nil, errors.Errorf("invalid global device id %d for the cpu backend", globalDeviceID)
	}
	return &cpuContext{deviceID: globalDeviceID, executor: executor}, nil
}

// Backend implements Context.
func (*cpuContext) Backend() Backend { return CPU }

// DeviceID implements Context.
func (c *cpuContext) DeviceID() int { return c.deviceID }

// Submit implements Context.
func (c *cpuContext) Submit(work func(), done func()) {
	c.executor.Submit(func() {
		work()
		done()
	})
}

// String implements fmt.Stringer.
func (c *cpuContext) String() string {
	return fmt.Sprintf("cpu device #%d on %s", c.deviceID, c.executor.Name())
}

// Alloc implements Backend.
func (b *cpuBackend) Alloc(ctx Context, dtype dtypes.DType, numElements int) (*Blob, error) {
	if dtype.Size() == 0 {
		return nil, errors.Errorf("cpu backend can't allocate dtype %s", dtype)
	}
	if numElements < 0 {
		return nil, errors.Errorf("cpu backend can't allocate %d elements", numElements)
	}
	return NewBlob(ctx.DeviceID(), dtype, numElements), nil
}

// Fill implements Backend.
func (b *cpuBackend) Fill(ctx Context, blob *Blob, value float64) error {
	if blob.DeviceID() != ctx.DeviceID() {
		return errors.Errorf("blob %s is not on device #%d", blob, ctx.DeviceID())
	}
	switch flat := blob.flat.(type) {
	case []float32:
		v := float32(value)
		if math32.IsInf(v, 0) && !math.IsInf(value, 0) {
			return errors.Errorf("value %g overflows %s", value, blob.DType())
		}
		for ii := range flat {
			flat[ii] = v
		}
	case []float64:
		for ii := range flat {
			flat[ii] = value
		}
	case []float16.Float16:
		v := float16.Fromfloat32(float32(value))
		if v.IsInf(0) && !math.IsInf(value, 0) {
			return errors.Errorf("value %g overflows %s", value, blob.DType())
		}
		for ii := range flat {
			flat[ii] = v
		}
	case []int64:
		if value != math.Trunc(value) {
			return errors.Errorf("value %g is not an integer, can't fill %s", value, blob.DType())
		}
		if value < math.MinInt64 || value >= math.MaxInt64 {
			return errors.Errorf("value %g overflows %s", value, blob.DType())
		}
		v := int64(value)
		for ii := range flat {
			flat[ii] = v
		}
	default:
		return errors.Errorf("blob %s has unsupported storage %T", blob, blob.flat)
	}
	return nil
}

// Axpy implements Backend.
func (b *cpuBackend) Axpy(ctx Context, alpha float64, x, y *Blob) error {
	if x.DType() != y.DType() {
		return errors.Errorf("Axpy dtype mismatch: x is %s, y is %s", x.DType(), y.DType())
	}
	if x.Len() != y.Len() {
		return errors.Errorf("Axpy element count mismatch: x has %d elements, y has %d", x.Len(), y.Len())
	}
	switch yFlat := y.flat.(type) {
	case []float32:
		xFlat := x.flat.([]float32)
		a := float32(alpha)
		for ii := range yFlat {
			yFlat[ii] += a * xFlat[ii]
		}
	case []float64:
		xFlat := x.flat.([]float64)
		for ii := range yFlat {
			yFlat[ii] += alpha * xFlat[ii]
		}
	case []float16.Float16:
		xFlat := x.flat.([]float16.Float16)
		a := float32(alpha)
		for ii := range yFlat {
			yFlat[ii] = float16.Fromfloat32(yFlat[ii].Float32() + a*xFlat[ii].Float32())
		}
	case []int64:
		if alpha != math.Trunc(alpha) {
			return errors.Errorf("alpha %g is not an integer, can't Axpy %s", alpha, y.DType())
		}
		if alpha < math.MinInt64 || alpha >= math.MaxInt64 {
			return errors.Errorf("alpha %g overflows %s", alpha, y.DType())
		}
		xFlat := x.flat.([]int64)
		a := int64(alpha)
		for ii := range yFlat {
			yFlat[ii] += a * xFlat[ii]
		}
	default:
		return errors.Errorf("blob %s has unsupported storage %T", y, y.flat)
	}
	return nil
}

// CPUDescription describes the host the cpu backend runs on, e.g.: "amd64 x 16 cores [avx2,fma]".
func CPUDescription() string {
	var features []string
	switch runtime.GOARCH {
	case "amd64":
		if cpu.X86.HasAVX512F {
			features = append(features, "avx512f")
		}
		if cpu.X86.HasAVX2 {
			features = append(features, "avx2")
		}
		if cpu.X86.HasFMA {
			features = append(features, "fma")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "asimd")
		}
		if cpu.ARM64.HasSVE {
			features = append(features, "sve")
		}
	}
	return fmt.Sprintf("%s x %d cores [%s]", runtime.GOARCH, runtime.NumCPU(), strings.Join(features, ","))
}
