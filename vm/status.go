package vm

import (
	"sync/atomic"
	"unsafe"
)

// InstructionStatusBufferBytes is the fixed per-instruction budget for status records, shared by all stream types.
const InstructionStatusBufferBytes = 64

// InstructionStatusBuffer is the in-place storage of an instruction status record.
//
// It is embedded in the InstrChain (no separate allocation), and its contents are only meaningful to the
// StatusQuerier of the stream type that initialized it.
type InstructionStatusBuffer struct {
	_    [0]uint64 // Aligns data to 8 bytes, so records may hold atomics.
	data [InstructionStatusBufferBytes]byte
}

// pointer to the start of the record.
func (b *InstructionStatusBuffer) pointer() unsafe.Pointer {
	return unsafe.Pointer(&b.data[0])
}

// reset zeros the buffer.
func (b *InstructionStatusBuffer) reset() {
	clear(b.data[:])
}

// StatusQuerier interprets the contents of an InstructionStatusBuffer for one record layout.
//
// The state machine of a record is Pending -> Done: Init leaves it Pending, SetDone moves it to Done,
// and Done never goes back to false until the record is deleted and re-initialized.
type StatusQuerier interface {
	// RecordSize is the number of bytes used by the record; it must be smaller than InstructionStatusBufferBytes.
	RecordSize() uintptr

	// Init constructs a Pending record in place.
	Init(buf *InstructionStatusBuffer)

	// Delete destroys the record.
	Delete(buf *InstructionStatusBuffer)

	// Done polls the record. It never blocks and has no side effects.
	Done(buf *InstructionStatusBuffer) bool

	// SetDone marks the record as Done.
	SetDone(buf *InstructionStatusBuffer)
}

// checkStatusQuerier aborts if the querier record doesn't fit the status buffer.
func checkStatusQuerier(name string, querier StatusQuerier) {
	if querier.RecordSize() >= InstructionStatusBufferBytes {
		fatalf(StatusBufferUndersized, "status record of %q takes %d bytes, status buffers only hold %d",
			name, querier.RecordSize(), InstructionStatusBufferBytes)
	}
}

// naiveStatusRecord is only accessed by the scheduler goroutine.
type naiveStatusRecord struct {
	done bool
}

// NaiveStatusQuerier is used by stream types whose work runs on the scheduler goroutine: the record is
// a plain flag.
type NaiveStatusQuerier struct{}

// Status records must fit the buffer: a negative array length here fails compilation.
var _ [InstructionStatusBufferBytes - unsafe.Sizeof(naiveStatusRecord{}) - 1]struct{}

func naiveRecord(buf *InstructionStatusBuffer) *naiveStatusRecord {
	return (*naiveStatusRecord)(buf.pointer())
}

// RecordSize implements StatusQuerier.
func (NaiveStatusQuerier) RecordSize() uintptr { return unsafe.Sizeof(naiveStatusRecord{}) }

// Init implements StatusQuerier.
func (NaiveStatusQuerier) Init(buf *InstructionStatusBuffer) {
	*naiveRecord(buf) = naiveStatusRecord{}
}

// Delete implements StatusQuerier.
func (NaiveStatusQuerier) Delete(*InstructionStatusBuffer) {}

// Done implements StatusQuerier.
func (NaiveStatusQuerier) Done(buf *InstructionStatusBuffer) bool {
	return naiveRecord(buf).done
}

// SetDone implements StatusQuerier.
func (NaiveStatusQuerier) SetDone(buf *InstructionStatusBuffer) {
	naiveRecord(buf).done = true
}

// atomicStatusRecord is written by the device side and read by the scheduler.
type atomicStatusRecord struct {
	done atomic.Uint32
}

var _ [InstructionStatusBufferBytes - unsafe.Sizeof(atomicStatusRecord{}) - 1]struct{}

// AtomicStatusQuerier is used by stream types whose work completes on another goroutine: SetDone can be
// called from any goroutine, and the store publishes every write done by the instruction before it.
type AtomicStatusQuerier struct{}

func atomicRecord(buf *InstructionStatusBuffer) *atomicStatusRecord {
	return (*atomicStatusRecord)(buf.pointer())
}

// RecordSize implements StatusQuerier.
func (AtomicStatusQuerier) RecordSize() uintptr { return unsafe.Sizeof(atomicStatusRecord{}) }

// Init implements StatusQuerier.
func (AtomicStatusQuerier) Init(buf *InstructionStatusBuffer) {
	atomicRecord(buf).done.Store(0)
}

// Delete implements StatusQuerier.
func (AtomicStatusQuerier) Delete(*InstructionStatusBuffer) {}

// Done implements StatusQuerier.
func (AtomicStatusQuerier) Done(buf *InstructionStatusBuffer) bool {
	return atomicRecord(buf).done.Load() != 0
}

// SetDone implements StatusQuerier.
func (AtomicStatusQuerier) SetDone(buf *InstructionStatusBuffer) {
	atomicRecord(buf).done.Store(1)
}
