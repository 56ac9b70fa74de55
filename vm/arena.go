package vm

import (
	"sync"
)

// slab is a trivial arena of objects of type T: it allocates them in chunks, to amortize allocations of the
// many small objects the scheduler creates.
//
// It can't free individual objects: a chunk is garbage collected once none of its objects is referenced.
// It's not safe for concurrent use: each VirtualMachine uses its own from the scheduler goroutine only.
type slab[T any] struct {
	chunk        []T
	chunkSize    int
	numAllocated int
}

const defaultSlabChunkSize = 256

// newSlab creates a slab allocating chunkSize objects at a time.
func newSlab[T any](chunkSize int) *slab[T] {
	if chunkSize <= 0 {
		chunkSize = defaultSlabChunkSize
	}
	return &slab[T]{chunkSize: chunkSize}
}

// alloc returns a zero initialized *T.
func (s *slab[T]) alloc() *T {
	if len(s.chunk) == 0 {
		s.chunk = make([]T, s.chunkSize)
	}
	ptr := &s.chunk[0]
	s.chunk = s.chunk[1:]
	s.numAllocated++
	return ptr
}

// threadOnlyAllocator constructs the VM internal objects. It must only be used from the scheduler goroutine.
type threadOnlyAllocator struct {
	logicalObjects  *slab[LogicalObject]
	mirroredObjects *slab[MirroredObject]
}

func newThreadOnlyAllocator() *threadOnlyAllocator {
	return &threadOnlyAllocator{
		logicalObjects:  newSlab[LogicalObject](defaultSlabChunkSize),
		mirroredObjects: newSlab[MirroredObject](defaultSlabChunkSize),
	}
}

// newLogicalObject constructs a logical object with no mirrored objects.
func (a *threadOnlyAllocator) newLogicalObject(id int64) *LogicalObject {
	lo := a.logicalObjects.alloc()
	lo.id = id
	lo.globalDeviceID2Mirrored = make(map[int]*MirroredObject, 1)
	return lo
}

// newMirroredObject constructs a mirrored object of lo on the given device. It doesn't insert it in lo.
func (a *threadOnlyAllocator) newMirroredObject(lo *LogicalObject, globalDeviceID int) *MirroredObject {
	m := a.mirroredObjects.alloc()
	m.logicalObjectID = lo.id
	m.globalDeviceID = globalDeviceID
	return m
}

// chainPool reuses InstrChain objects, status buffer included.
var chainPool = sync.Pool{
	New: func() any { return &InstrChain{} },
}

// getInstrChain returns a reset InstrChain from the pool.
func getInstrChain() *InstrChain {
	return chainPool.Get().(*InstrChain)
}

// returnInstrChain resets the chain and returns it to the pool.
func returnInstrChain(c *InstrChain) {
	if c == nil {
		return
	}
	c.ctx.msg = nil
	c.ctx.stream = nil
	c.ctx.view = nil
	clear(c.ctx.mutObjects)
	c.ctx.mutObjects = c.ctx.mutObjects[:0]
	clear(c.ctx.constObjects)
	c.ctx.constObjects = c.ctx.constObjects[:0]
	c.status.reset()
	c.state = chainWaiting
	c.numPendingDeps = 0
	clear(c.dependents)
	c.dependents = c.dependents[:0]
	chainPool.Put(c)
}
