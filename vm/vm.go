package vm

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/gomlx/govm/device"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// VirtualMachine schedules instruction messages onto streams, owns the logical object table, and retires
// instructions by polling their status buffers.
//
// Receive can be called from any goroutine. Everything else (Schedule, RunUntilIdle, and the object table
// accessors) must be called from one goroutine, the scheduler.
//
// Create it with New(resource)...Done().
type VirtualMachine struct {
	resource  *Resource
	machineID int
	local     bool

	id2LogicalObject map[int64]*LogicalObject
	allocator        *threadOnlyAllocator

	streams        map[StreamTypeID][]*Stream
	streamByDevice map[StreamTypeID]map[int]*Stream
	allStreams     []*Stream
	threads        []*ThreadCtx

	// muReceived protects received, lastSeq and closed.
	muReceived sync.Mutex
	received   []*InstructionMsg
	lastSeq    int64
	closed     bool

	// inFlight indexes the instructions admitted and not retired yet by sequence number.
	inFlight map[int64]*InstrChain

	numRetired int64
}

// MachineID of the machine this VM runs on.
func (vm *VirtualMachine) MachineID() int { return vm.machineID }

// IsLocal returns whether the VM streams were built for the local process only.
func (vm *VirtualMachine) IsLocal() bool { return vm.local }

// Resource the VM was built for.
func (vm *VirtualMachine) Resource() *Resource { return vm.resource }

// String implements fmt.Stringer.
func (vm *VirtualMachine) String() string {
	scope := fmt.Sprintf("machine=%d/%d", vm.machineID, vm.resource.MachineNum)
	if vm.local {
		scope = "local"
	}
	return fmt.Sprintf("VirtualMachine[%s, %d streams, %d threads, %d logical objects]",
		scope, len(vm.allStreams), len(vm.threads), len(vm.id2LogicalObject))
}

// materialize creates the streams and threads described by desc.
func (vm *VirtualMachine) materialize(desc *StreamDesc) {
	id := desc.StreamTypeID()
	st := id.StreamType
	perThread := max(desc.NumStreamsPerThread(), 1)
	byDevice := make(map[int]*Stream, desc.NumStreams())
	var thread *ThreadCtx
	for ii := range desc.NumStreams() {
		if ii%perThread == 0 {
			thread = &ThreadCtx{id: len(vm.threads), streamTypeID: id}
			if !st.SharingSchedulerThread() {
				thread.executor = device.NewExecutor(fmt.Sprintf("%s/thread#%d", id, thread.id))
			}
			vm.threads = append(vm.threads, thread)
		}
		stream := &Stream{
			streamTypeID:   id,
			thread:         thread,
			globalDeviceID: desc.StartGlobalDeviceID() + ii,
		}
		if _, found := byDevice[stream.globalDeviceID]; found {
			fatalf(UnknownDevice, "%s has two streams for device #%d", desc, stream.globalDeviceID)
		}
		thread.streams = append(thread.streams, stream)
		byDevice[stream.globalDeviceID] = stream
		vm.streams[id] = append(vm.streams[id], stream)
		vm.allStreams = append(vm.allStreams, stream)
	}
	vm.streamByDevice[id] = byDevice
	klog.V(1).Infof("materialized %s", desc)
}

// Streams returns the streams of the given lanes. Don't change the returned slice.
func (vm *VirtualMachine) Streams(id StreamTypeID) []*Stream {
	return vm.streams[id]
}

// Receive queues instruction messages for scheduling and returns their sequence numbers, in order.
// The VM takes ownership of the messages.
//
// It is safe to call from any goroutine.
func (vm *VirtualMachine) Receive(msgs ...*InstructionMsg) []int64 {
	vm.muReceived.Lock()
	defer vm.muReceived.Unlock()
	if vm.closed {
		fatalf(Precondition, "VirtualMachine.Receive called after Close")
	}
	for _, msg := range msgs {
		if msg.seq != 0 {
			fatalf(Precondition, "%s received twice", msg)
		}
	}
	seqs := make([]int64, len(msgs))
	for ii, msg := range msgs {
		vm.lastSeq++
		msg.seq = vm.lastSeq
		seqs[ii] = msg.seq
	}
	vm.received = append(vm.received, msgs...)
	return seqs
}

// Empty returns whether there is no instruction waiting to be admitted, waiting to run or in flight.
func (vm *VirtualMachine) Empty() bool {
	vm.muReceived.Lock()
	numReceived := len(vm.received)
	vm.muReceived.Unlock()
	return numReceived == 0 && len(vm.inFlight) == 0
}

// NumInFlight returns the number of instructions admitted and not retired yet.
func (vm *VirtualMachine) NumInFlight() int { return len(vm.inFlight) }

// NumRetired returns the number of instructions retired since the VM was created.
func (vm *VirtualMachine) NumRetired() int64 { return vm.numRetired }

// Schedule runs one scheduling round, without ever blocking:
//
//  1. Received messages are admitted: each becomes an InstrChain queued on its stream.
//  2. Per stream, in submission order, instructions whose dependencies retired are dispatched: streams that
//     share the scheduler run them inline, the others launch them on their device.
//  3. Per stream, finished instructions are retired by polling their status, releasing their dependents.
func (vm *VirtualMachine) Schedule() {
	vm.admit()
	for _, stream := range vm.allStreams {
		vm.dispatchReady(stream)
	}
	for _, stream := range vm.allStreams {
		vm.retireDone(stream)
	}
}

// RunUntilIdle calls Schedule until the VM is Empty, yielding the processor between rounds.
// It returns an error if ctx is done first.
func (vm *VirtualMachine) RunUntilIdle(ctx context.Context) error {
	for {
		vm.Schedule()
		if vm.Empty() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.WithMessagef(ctx.Err(), "VirtualMachine.RunUntilIdle interrupted with %d instructions in flight",
				len(vm.inFlight))
		default:
			runtime.Gosched()
		}
	}
}

// admit moves the received messages to their streams.
func (vm *VirtualMachine) admit() {
	vm.muReceived.Lock()
	msgs := vm.received
	vm.received = nil
	vm.muReceived.Unlock()

	for _, msg := range msgs {
		stream := vm.route(msg)
		chain := getInstrChain()
		chain.ctx.msg = msg
		chain.ctx.stream = stream
		stream.streamType().InitInstructionStatus(stream, &chain.status)
		for _, dep := range msg.after {
			if dep >= msg.seq || dep <= 0 {
				fatalf(Precondition, "%s can only depend on instructions received before it, not on #%d", msg, dep)
			}
			if depChain, found := vm.inFlight[dep]; found {
				chain.numPendingDeps++
				depChain.dependents = append(depChain.dependents, chain)
			}
		}
		stream.waiting = append(stream.waiting, chain)
		vm.inFlight[msg.seq] = chain
		klog.V(2).Infof("admitted %s on %s", msg, stream)
	}
}

// route returns the stream that runs msg.
func (vm *VirtualMachine) route(msg *InstructionMsg) *Stream {
	id := msg.StreamTypeID()
	streams := vm.streams[id]
	if len(streams) == 0 {
		fatalf(UnknownStreamType, "no streams of %s for %s", id, msg)
	}
	if !msg.hasDevice {
		// Resolved once: phases read the device from the message.
		msg.globalDeviceID = streams[0].globalDeviceID
		msg.hasDevice = true
		return streams[0]
	}
	stream, found := vm.streamByDevice[id][msg.globalDeviceID]
	if !found {
		fatalf(UnknownDevice, "no stream of %s on device #%d for %s", id, msg.globalDeviceID, msg)
	}
	return stream
}

// dispatchReady runs (or launches) the waiting instructions of stream whose dependencies are retired.
// It stops at the first one still waiting, to keep submission order.
func (vm *VirtualMachine) dispatchReady(stream *Stream) {
	for len(stream.waiting) > 0 && stream.waiting[0].numPendingDeps == 0 {
		chain := stream.waiting[0]
		stream.waiting[0] = nil
		stream.waiting = stream.waiting[1:]
		stream.running = append(stream.running, chain)
		chain.state = chainRunning
		stream.initDeviceContextOnce()
		klog.V(2).Infof("dispatching %s on %s", chain.ctx.msg, stream)
		if stream.streamTypeID.Interpret == Infer {
			stream.streamType().Infer(vm, chain)
		} else {
			stream.streamType().Compute(vm, chain)
		}
	}
}

// retireDone retires the finished instructions at the front of the stream.
func (vm *VirtualMachine) retireDone(stream *Stream) {
	st := stream.streamType()
	for len(stream.running) > 0 {
		chain := stream.running[0]
		done := st.QueryInstructionStatusDone(stream, &chain.status)
		klog.V(3).Infof("polled %s: done=%v", chain.ctx.msg, done)
		if !done {
			return
		}
		stream.running[0] = nil
		stream.running = stream.running[1:]
		st.DeleteInstructionStatus(stream, &chain.status)
		chain.state = chainRetired
		delete(vm.inFlight, chain.ctx.msg.seq)
		for _, dependent := range chain.dependents {
			dependent.numPendingDeps--
		}
		vm.numRetired++
		klog.V(2).Infof("retired %s", chain.ctx.msg)
		returnInstrChain(chain)
	}
}

// Close tears down the VM: it stops the device executors.
// It returns an error, and doesn't close anything, if there are instructions not retired yet.
func (vm *VirtualMachine) Close() error {
	if !vm.Empty() {
		return errors.Errorf("VirtualMachine.Close with %d instructions in flight, run it until idle first", len(vm.inFlight))
	}
	vm.muReceived.Lock()
	alreadyClosed := vm.closed
	vm.closed = true
	vm.muReceived.Unlock()
	if alreadyClosed {
		return nil
	}
	vm.closeExecutors()
	return nil
}

// teardown closes the VM even with instructions in flight. Executors still finish the tasks already
// submitted to them.
func (vm *VirtualMachine) teardown() {
	vm.muReceived.Lock()
	alreadyClosed := vm.closed
	vm.closed = true
	vm.muReceived.Unlock()
	if !alreadyClosed {
		vm.closeExecutors()
	}
}

func (vm *VirtualMachine) closeExecutors() {
	for _, thread := range vm.threads {
		if thread.executor != nil {
			thread.executor.Close()
		}
	}
	klog.V(1).Infof("closed %s", vm)
}

// LogicalObject returns the logical object with the given id, if present.
func (vm *VirtualMachine) LogicalObject(id int64) (*LogicalObject, bool) {
	lo, found := vm.id2LogicalObject[id]
	return lo, found
}

// NumLogicalObjects returns the number of entries in the logical object table.
func (vm *VirtualMachine) NumLogicalObjects() int { return len(vm.id2LogicalObject) }

// LogicalObjectIDs returns the ids in the logical object table, sorted.
func (vm *VirtualMachine) LogicalObjectIDs() []int64 {
	ids := keys(vm.id2LogicalObject)
	slices.Sort(ids)
	return ids
}

// checkNewLogicalObjects aborts with DuplicateLogicalObject if any of ids is already in the table or
// repeated in the list, before anything is inserted.
func (vm *VirtualMachine) checkNewLogicalObjects(instrName string, ids []int64) {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, found := vm.id2LogicalObject[id]; found {
			fatalf(DuplicateLogicalObject, "%s: logical object %d already exists", instrName, id)
		}
		if _, found := seen[id]; found {
			fatalf(DuplicateLogicalObject, "%s: logical object %d listed twice", instrName, id)
		}
		seen[id] = struct{}{}
	}
}

// newLogicalObject inserts a new logical object with mirrored objects on the given devices.
// It aborts with DuplicateLogicalObject or DuplicateMirroredObject on collisions.
func (vm *VirtualMachine) newLogicalObject(id int64, globalDeviceIDs ...int) *LogicalObject {
	if _, found := vm.id2LogicalObject[id]; found {
		fatalf(DuplicateLogicalObject, "logical object %d already exists", id)
	}
	lo := vm.allocator.newLogicalObject(id)
	for _, deviceID := range globalDeviceIDs {
		lo.insertMirroredObject(vm.allocator.newMirroredObject(lo, deviceID))
	}
	vm.id2LogicalObject[id] = lo
	klog.V(3).Infof("new %s", lo)
	return lo
}

// deleteLogicalObject removes the logical object, and all its mirrored objects, from the table.
// It aborts with MissingLogicalObject if it is not there.
func (vm *VirtualMachine) deleteLogicalObject(id int64) {
	lo, found := vm.id2LogicalObject[id]
	if !found {
		fatalf(MissingLogicalObject, "can't delete logical object %d: not found", id)
	}
	clear(lo.globalDeviceID2Mirrored)
	delete(vm.id2LogicalObject, id)
	klog.V(3).Infof("deleted logical object %d", id)
}

// mirroredObject returns the mirrored object of logical object id on the given device.
// It aborts with MissingLogicalObject or MissingMirroredObject.
func (vm *VirtualMachine) mirroredObject(id int64, globalDeviceID int) *MirroredObject {
	lo, found := vm.id2LogicalObject[id]
	if !found {
		fatalf(MissingLogicalObject, "logical object %d not found", id)
	}
	m, found := lo.MirroredObject(globalDeviceID)
	if !found {
		fatalf(MissingMirroredObject, "logical object %d has no mirrored object on device #%d (it has %v)",
			id, globalDeviceID, lo.GlobalDeviceIDs())
	}
	return m
}

// bindMirroredObjects appends to dst the mirrored objects of ids on the given device.
func (vm *VirtualMachine) bindMirroredObjects(dst []*MirroredObject, ids []int64, globalDeviceID int) []*MirroredObject {
	for _, id := range ids {
		dst = append(dst, vm.mirroredObject(id, globalDeviceID))
	}
	return dst
}
