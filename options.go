// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import "unsafe"

// Root table slots used by Builder.Build and Open.
const (
	RootPool = iota
	RootQueue
	RootSemaphore
)

// Options configures the layout of a queue channel in an arena.
type Options struct {
	capacity uint64

	// Pool geometry
	chunkSize int
	numChunks int

	// Attach a wake-up semaphore
	semaphore bool
}

// Builder lays out a complete channel in an arena with fluent
// configuration: a chunk pool, a queue storage and an optional semaphore.
//
// Example:
//
//	a, _ := chunkq.CreateSharedArena("demo", 1<<20)
//	ch, _ := chunkq.New(64).Pool(4096, 128).Semaphore().Build(a)
//
//	// In another process
//	a, _ := chunkq.OpenSharedArena("demo")
//	ch, _ := chunkq.Open(a)
type Builder struct {
	opts Options
}

// DefaultChunkSize and DefaultNumChunks are the pool geometry used when
// Pool is not called.
const (
	DefaultChunkSize = 1024
	DefaultNumChunks = 64
)

// New creates a channel builder for a queue of the given capacity.
//
// Panics if capacity is not in [1, MaxCapacity].
func New(capacity int) *Builder {
	if capacity <= 0 || capacity > MaxCapacity {
		panic("chunkq: capacity must be in [1, MaxCapacity]")
	}
	return &Builder{opts: Options{
		capacity:  uint64(capacity),
		chunkSize: DefaultChunkSize,
		numChunks: DefaultNumChunks,
	}}
}

// Pool sets the chunk pool geometry.
// Panics if chunkSize or numChunks is not positive.
func (b *Builder) Pool(chunkSize, numChunks int) *Builder {
	if chunkSize <= 0 || numChunks <= 0 {
		panic("chunkq: pool needs positive chunk size and count")
	}
	b.opts.chunkSize = chunkSize
	b.opts.numChunks = numChunks
	return b
}

// Semaphore attaches a wake-up semaphore to the queue so consumers can
// block in PopWait instead of polling.
func (b *Builder) Semaphore() *Builder {
	b.opts.semaphore = true
	return b
}

// Size returns the arena size in bytes needed to hold the channel.
func (b *Builder) Size() int {
	slots := uint64(roundToPow2(b.opts.numChunks))
	stride := alignUp(uint64(chunkHeaderSize)+uint64(b.opts.chunkSize), cacheLine)
	n := arenaHeaderSize
	n += alignUp(uint64(unsafe.Sizeof(poolHeader{}))+slots*uint64(ringSlotSize), cacheLine)
	n += stride * uint64(b.opts.numChunks)
	n += alignUp(storageSize, cacheLine)
	if b.opts.semaphore {
		n += alignUp(uint64(unsafe.Sizeof(semaphoreData{})), cacheLine)
	}
	return int(n)
}

// Build places the channel in a and publishes its offsets in the arena's
// root table (RootPool, RootQueue, RootSemaphore), so Open can find them.
//
// The queue storage is created at MaxCapacity and shrunk with SetCapacity
// while no view exists yet.
func (b *Builder) Build(a *Arena) (*Channel, error) {
	pool, err := NewPool(a, b.opts.chunkSize, b.opts.numChunks)
	if err != nil {
		return nil, err
	}
	off, err := NewQueueStorage(a, MaxCapacity)
	if err != nil {
		return nil, err
	}
	q, err := NewChunkQueue(a, off)
	if err != nil {
		return nil, err
	}
	q.SetCapacity(b.opts.capacity)

	ch := &Channel{Arena: a, Pool: pool, Queue: q}
	if b.opts.semaphore {
		sem, err := NewSemaphore(a, 0)
		if err != nil {
			return nil, err
		}
		if err := q.AttachSemaphore(sem); err != nil {
			return nil, err
		}
		ch.Semaphore = sem
		a.SetRoot(RootSemaphore, sem.Offset())
	}
	a.SetRoot(RootPool, pool.Offset())
	a.SetRoot(RootQueue, off)
	logInfo("channel built", "capacity", b.opts.capacity, "chunkSize", b.opts.chunkSize, "chunks", b.opts.numChunks)
	return ch, nil
}

// Channel groups the views of a channel laid out by Builder.Build.
type Channel struct {
	Arena     *Arena
	Pool      *Pool
	Queue     *ChunkQueue
	Semaphore *Semaphore // nil if none attached
}

// Open resolves a channel published in the root table of a, typically
// from another process than the one that built it.
// Returns ErrBadOffset if the arena carries no channel.
func Open(a *Arena) (*Channel, error) {
	pool, err := OpenPool(a, a.Root(RootPool))
	if err != nil {
		return nil, err
	}
	q, err := NewChunkQueue(a, a.Root(RootQueue))
	if err != nil {
		return nil, err
	}
	return &Channel{Arena: a, Pool: pool, Queue: q, Semaphore: q.Semaphore()}, nil
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [cacheLine]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [cacheLine - 8]byte
