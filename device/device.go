// Package device defines the boundary between the virtual machine and the device backends.
//
// A Backend creates one Context per stream that executes device work. Contexts never block the caller:
// work is submitted together with a completion callback, and the callback is the only signal the
// virtual machine gets that the work finished. The reference "cpu" backend (see CPU) runs the submitted
// work on Executor goroutines.
package device

import (
	"github.com/gomlx/govm/dtypes"
)

// Backend is a device family: it creates device contexts and implements the leaf kernels the built-in
// device instructions call into.
//
// Kernels are called from the executor goroutine of the context given, never from the scheduler.
type Backend interface {
	// Name of the backend, used as device tag and as a prefix for its instruction names.
	Name() string

	// NewContext creates the context used by the stream bound to globalDeviceID.
	// Work submitted to the context must run on the given executor, in submission order.
	NewContext(globalDeviceID int, executor *Executor) (Context, error)

	// Alloc a blob for numElements elements of dtype on the context's device.
	Alloc(ctx Context, dtype dtypes.DType, numElements int) (*Blob, error)

	// Fill sets every element of blob to value.
	Fill(ctx Context, blob *Blob, value float64) error

	// Axpy computes y += alpha*x. Both blobs must have the same dtype and number of elements.
	Axpy(ctx Context, alpha float64, x, y *Blob) error
}

// Context is a device execution context owned by one stream.
type Context interface {
	// Backend that created the context.
	Backend() Backend

	// DeviceID returns the global device id the context is bound to.
	DeviceID() int

	// Submit work to the device. It returns immediately, and done is called (from the device side) once work
	// finished.
	Submit(work func(), done func())
}
