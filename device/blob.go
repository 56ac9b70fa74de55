package device

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/govm/dtypes"
	"github.com/x448/float16"
)

// Blob is a flat device-resident array of one dtype.
//
// The flat storage is a Go slice of the dtype's Go type: []float32, []float64, []float16.Float16 or []int64.
type Blob struct {
	dtype    dtypes.DType
	deviceID int
	flat     any
}

// NewBlob creates a zero initialized blob.
// It panics for an unsupported dtype.
func NewBlob(deviceID int, dtype dtypes.DType, numElements int) *Blob {
	b := &Blob{dtype: dtype, deviceID: deviceID}
	switch dtype {
	case dtypes.Float32:
		b.flat = make([]float32, numElements)
	case dtypes.Float64:
		b.flat = make([]float64, numElements)
	case dtypes.Float16:
		b.flat = make([]float16.Float16, numElements)
	case dtypes.Int64:
		b.flat = make([]int64, numElements)
	default:
		exceptions.Panicf("device.NewBlob: unsupported dtype %s", dtype)
	}
	return b
}

// DType of the blob elements.
func (b *Blob) DType() dtypes.DType { return b.dtype }

// DeviceID where the blob lives.
func (b *Blob) DeviceID() int { return b.deviceID }

// Len returns the number of elements.
func (b *Blob) Len() int {
	switch flat := b.flat.(type) {
	case []float32:
		return len(flat)
	case []float64:
		return len(flat)
	case []float16.Float16:
		return len(flat)
	case []int64:
		return len(flat)
	}
	return 0
}

// SizeInBytes of the blob storage.
func (b *Blob) SizeInBytes() int {
	return b.dtype.SizeForElements(b.Len())
}

// Flat returns the underlying storage. It is only safe to use once the instruction that last wrote
// to the blob is done.
func (b *Blob) Flat() any { return b.flat }

// Float64s returns a copy of the blob values converted to float64.
func (b *Blob) Float64s() []float64 {
	values := make([]float64, b.Len())
	switch flat := b.flat.(type) {
	case []float32:
		for ii, v := range flat {
			values[ii] = float64(v)
		}
	case []float64:
		copy(values, flat)
	case []float16.Float16:
		for ii, v := range flat {
			values[ii] = float64(v.Float32())
		}
	case []int64:
		for ii, v := range flat {
			values[ii] = float64(v)
		}
	}
	return values
}

// String implements fmt.Stringer.
func (b *Blob) String() string {
	return fmt.Sprintf("Blob[%s x %d @device#%d]", b.dtype, b.Len(), b.deviceID)
}
