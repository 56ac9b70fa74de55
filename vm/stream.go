package vm

import (
	"fmt"

	"github.com/gomlx/govm/device"
)

// ThreadCtx groups the streams of one StreamTypeID that share a thread.
//
// For stream types that don't share the scheduler goroutine, the thread owns a device.Executor running the
// device work of all its streams in submission order.
type ThreadCtx struct {
	id           int
	streamTypeID StreamTypeID
	executor     *device.Executor
	streams      []*Stream
}

// ID of the thread, unique within the stream type id.
func (t *ThreadCtx) ID() int { return t.id }

// Executor of the thread, or nil if the stream type shares the scheduler goroutine.
func (t *ThreadCtx) Executor() *device.Executor { return t.executor }

// Streams of the thread. Don't change the returned slice.
func (t *ThreadCtx) Streams() []*Stream { return t.streams }

// Stream is an execution lane: it runs instructions of one StreamTypeID in submission order, on one device.
type Stream struct {
	streamTypeID   StreamTypeID
	thread         *ThreadCtx
	globalDeviceID int

	deviceCtx       device.Context
	deviceCtxInited bool

	// waiting holds instructions received but not dispatched yet, in submission order.
	waiting []*InstrChain

	// running holds instructions dispatched but not retired yet, in dispatch order.
	running []*InstrChain
}

// StreamTypeID of the stream.
func (s *Stream) StreamTypeID() StreamTypeID { return s.streamTypeID }

// streamType is a shortcut to s.streamTypeID.StreamType.
func (s *Stream) streamType() StreamType { return s.streamTypeID.StreamType }

// Thread the stream belongs to.
func (s *Stream) Thread() *ThreadCtx { return s.thread }

// GlobalDeviceID of the stream.
func (s *Stream) GlobalDeviceID() int { return s.globalDeviceID }

// DeviceContext returns the device context set by the stream type, or nil.
func (s *Stream) DeviceContext() device.Context { return s.deviceCtx }

// SetDeviceContext is used by StreamType.InitDeviceContext.
func (s *Stream) SetDeviceContext(ctx device.Context) { s.deviceCtx = ctx }

// NumWaiting returns the number of instructions received and not dispatched yet.
func (s *Stream) NumWaiting() int { return len(s.waiting) }

// NumRunning returns the number of instructions dispatched and not retired yet.
func (s *Stream) NumRunning() int { return len(s.running) }

// initDeviceContextOnce initializes the device context on the first use of the stream.
func (s *Stream) initDeviceContextOnce() {
	if s.deviceCtxInited {
		return
	}
	s.streamType().InitDeviceContext(s)
	s.deviceCtxInited = true
}

// String implements fmt.Stringer.
func (s *Stream) String() string {
	return fmt.Sprintf("Stream[%s, device#%d, thread#%d]", s.streamTypeID, s.globalDeviceID, s.thread.id)
}
