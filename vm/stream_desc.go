package vm

import (
	"fmt"
)

// StreamTypeID identifies a lane class: a registered stream type and the interpret type its streams run.
//
// Compute lanes use the stream type as registered; Infer lanes use its infer variant (see RegisterStreamType).
type StreamTypeID struct {
	StreamType StreamType
	Interpret  InterpretType
}

// String implements fmt.Stringer.
func (id StreamTypeID) String() string {
	return fmt.Sprintf("%s/%s", StreamTypeName(id.StreamType), id.Interpret)
}

// StreamDesc describes how many streams of one StreamTypeID exist.
// It is immutable once created.
type StreamDesc struct {
	streamTypeID         StreamTypeID
	numMachines          int
	numStreamsPerMachine int
	numStreamsPerThread  int
	startGlobalDeviceID  int
}

// NewStreamDesc creates a StreamDesc.
func NewStreamDesc(streamTypeID StreamTypeID, numMachines, numStreamsPerMachine, numStreamsPerThread, startGlobalDeviceID int) *StreamDesc {
	return &StreamDesc{
		streamTypeID:         streamTypeID,
		numMachines:          numMachines,
		numStreamsPerMachine: numStreamsPerMachine,
		numStreamsPerThread:  numStreamsPerThread,
		startGlobalDeviceID:  startGlobalDeviceID,
	}
}

// StreamTypeID of the streams described.
func (d *StreamDesc) StreamTypeID() StreamTypeID { return d.streamTypeID }

// NumMachines covered by the descriptor.
func (d *StreamDesc) NumMachines() int { return d.numMachines }

// NumStreamsPerMachine is the number of streams on each machine.
func (d *StreamDesc) NumStreamsPerMachine() int { return d.numStreamsPerMachine }

// NumStreamsPerThread is the number of streams sharing one thread.
func (d *StreamDesc) NumStreamsPerThread() int { return d.numStreamsPerThread }

// StartGlobalDeviceID is the global device id of the first stream.
func (d *StreamDesc) StartGlobalDeviceID() int { return d.startGlobalDeviceID }

// NumStreams is the total number of streams described.
func (d *StreamDesc) NumStreams() int { return d.numMachines * d.numStreamsPerMachine }

// WithStreamTypeID returns a copy of the descriptor for another StreamTypeID.
func (d *StreamDesc) WithStreamTypeID(id StreamTypeID) *StreamDesc {
	newDesc := *d
	newDesc.streamTypeID = id
	return &newDesc
}

// SameTopology returns whether both descriptors describe the same lanes: same stream type, number of machines,
// streams per machine and streams per thread. The starting device id is not compared.
func (d *StreamDesc) SameTopology(other *StreamDesc) bool {
	return d.streamTypeID == other.streamTypeID &&
		d.numMachines == other.numMachines &&
		d.numStreamsPerMachine == other.numStreamsPerMachine &&
		d.numStreamsPerThread == other.numStreamsPerThread
}

// String implements fmt.Stringer.
func (d *StreamDesc) String() string {
	return fmt.Sprintf("StreamDesc[%s: machines=%d, streams/machine=%d, streams/thread=%d, start_device=%d]",
		d.streamTypeID, d.numMachines, d.numStreamsPerMachine, d.numStreamsPerThread, d.startGlobalDeviceID)
}
