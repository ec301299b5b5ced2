// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"context"

	"code.hybscloud.com/iox"
)

// ChunkQueue is a process-local view of a queue storage in an arena.
//
// Every process (or goroutine) touching a queue builds its own view over
// the same storage offset; views do not own the storage and can be dropped
// independently. All operations forward to the shared storage.
//
// Push is safe from many producers at once. Pop is meant for one logical
// consumer; concurrent poppers each receive distinct chunks, but FIFO order
// across poppers is not defined. SetCapacity and Clear require that no
// Push or Pop is in flight.
//
// A ChunkQueue must not be copied after first use; pass *ChunkQueue.
type ChunkQueue struct {
	_     noCopy
	arena *Arena
	off   Offset
	s     *queueStorage
}

// NewChunkQueue binds a view to the queue storage at off, created by
// NewQueueStorage in this or another process.
func NewChunkQueue(a *Arena, off Offset) (*ChunkQueue, error) {
	s, err := openStorage(a, off)
	if err != nil {
		return nil, err
	}
	return &ChunkQueue{arena: a, off: off, s: s}, nil
}

// Offset returns the relocatable location of the queue storage.
func (q *ChunkQueue) Offset() Offset {
	return q.off
}

// Push appends c. Returns false without blocking if the queue holds
// Capacity chunks; the caller keeps c and decides whether to retry, drop
// or propagate backpressure.
//
// On success the queue takes over the reference held by c; the caller must
// not release it. c may come from any mapping of the queue's region. The
// attached semaphore, if any, is posted after the chunk is visible to Pop.
func (q *ChunkQueue) Push(c Chunk) bool {
	if !c.Valid() {
		panic("chunkq: push of invalid chunk")
	}
	if !q.arena.same(c.arena) {
		panic("chunkq: push of chunk from another arena")
	}
	q.s.enter()
	ok := q.s.ring.push(uint64(c.off))
	q.s.leave()
	if !ok {
		return false
	}
	if off := Offset(q.s.sem.LoadAcquire()); off != 0 {
		(*semaphoreData)(q.arena.ptr(off)).post()
	}
	return true
}

// Pop removes the oldest chunk. Returns false if the queue is empty.
// Never blocks. The returned handle owns the reference the queue held.
func (q *ChunkQueue) Pop() (Chunk, bool) {
	q.s.enter()
	v, ok := q.s.ring.pop()
	q.s.leave()
	if !ok {
		return Chunk{}, false
	}
	return Chunk{arena: q.arena, off: Offset(v)}, true
}

// PopWait removes the oldest chunk, waiting until one is available or ctx
// is done.
//
// With a semaphore attached it sleeps on the semaphore and re-checks the
// queue after every wake-up, since another consumer may have taken the
// chunk first. A chunk found without sleeping consumes one pending post, so
// the count follows the queue instead of growing with every push. Without a
// semaphore it polls with adaptive backoff.
func (q *ChunkQueue) PopWait(ctx context.Context) (Chunk, error) {
	sem := q.Semaphore()
	var bo iox.Backoff
	waited := false
	for {
		if c, ok := q.Pop(); ok {
			if sem != nil && !waited {
				// Take the post of this chunk; a missing one only means
				// its Push has not posted yet.
				_ = sem.TryWait()
			}
			return c, nil
		}
		if sem != nil {
			if err := sem.Wait(ctx); err != nil {
				return Chunk{}, err
			}
			waited = true
			continue
		}
		if err := ctx.Err(); err != nil {
			return Chunk{}, err
		}
		bo.Wait()
	}
}

// Empty reports whether the queue holds no chunks. Racy under concurrent
// push/pop.
func (q *ChunkQueue) Empty() bool {
	return q.s.ring.len() == 0
}

// Size returns the number of stored chunks. The value is approximate under
// concurrent push/pop and must not be treated as exact.
func (q *ChunkQueue) Size() uint64 {
	return q.s.ring.len()
}

// Capacity returns the logical capacity.
func (q *ChunkQueue) Capacity() uint64 {
	return q.s.ring.cap()
}

// SetCapacity changes the logical capacity. If more than capacity chunks
// are stored, the oldest are removed and released until capacity remain.
//
// Not safe for concurrent use: no Push or Pop may be in flight on any view
// of the storage. Debug builds (-tags chunkq_debug) panic when they detect
// a violation. Panics if capacity is not in [1, MaxCapacity].
func (q *ChunkQueue) SetCapacity(capacity uint64) {
	checkCapacity(capacity)
	q.s.assertQuiescent("SetCapacity")
	for q.s.ring.len() > capacity {
		c, ok := q.Pop()
		if !ok {
			break
		}
		c.Release()
	}
	q.s.ring.setCap(capacity)
	logDebug("queue capacity set", "offset", q.off, "capacity", capacity)
}

// Clear removes every stored chunk and releases it.
//
// Not safe for concurrent use: no Push or Pop may be in flight on any view
// of the storage. Debug builds (-tags chunkq_debug) panic when they detect
// a violation.
func (q *ChunkQueue) Clear() {
	q.s.assertQuiescent("Clear")
	for {
		c, ok := q.Pop()
		if !ok {
			return
		}
		c.Release()
	}
}

// AttachSemaphore binds sem as the wake-up signal of the storage. Push
// posts it after every successful insert.
//
// A semaphore can be attached once per storage and never detached. Returns
// ErrSemaphoreAlreadySet, leaving the existing attachment in place, if one
// is already attached, and ErrForeignArena if sem lives in another arena.
func (q *ChunkQueue) AttachSemaphore(sem *Semaphore) error {
	if sem == nil {
		panic("chunkq: nil semaphore")
	}
	if !q.arena.same(sem.arena) {
		return ErrForeignArena
	}
	if !q.s.sem.CompareAndSwapAcqRel(0, uint64(sem.off)) {
		return ErrSemaphoreAlreadySet
	}
	logDebug("semaphore attached", "queue", q.off, "semaphore", sem.off)
	return nil
}

// IsSemaphoreAttached reports whether a semaphore is attached.
func (q *ChunkQueue) IsSemaphoreAttached() bool {
	return q.s.sem.LoadAcquire() != 0
}

// Semaphore returns a view of the attached semaphore, or nil if none.
func (q *ChunkQueue) Semaphore() *Semaphore {
	off := Offset(q.s.sem.LoadAcquire())
	if off == 0 {
		return nil
	}
	return &Semaphore{arena: q.arena, off: off, d: (*semaphoreData)(q.arena.ptr(off))}
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
