// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chunkq provides a zero-copy, shared-memory chunk queue.
//
// Processes exchange memory chunks through a bounded FIFO of chunk handles
// living in a shared-memory region. Payload bytes are never copied: the
// queue carries reference-counted handles to chunks drawn from a pool in
// the same region.
//
// The building blocks are:
//
//   - Arena: a shared-memory region addressed by relocatable offsets
//   - Pool: a fixed-size chunk allocator in an arena
//   - Chunk: a reference-counted handle to a pool chunk
//   - ChunkQueue: a process-local view of a bounded queue storage
//   - Semaphore: a cross-process wake-up signal a queue can post
//
// # Quick Start
//
// The builder lays out a pool, a queue and a semaphore in one arena:
//
//	a, _ := chunkq.CreateSharedArena("demo", chunkq.New(64).Pool(4096, 128).Semaphore().Size())
//	ch, _ := chunkq.New(64).Pool(4096, 128).Semaphore().Build(a)
//
// Another process maps the same segment and resolves the channel:
//
//	a, _ := chunkq.OpenSharedArena("demo")
//	ch, _ := chunkq.Open(a)
//
// # Basic Usage
//
// Producer:
//
//	c, err := ch.Pool.Get()
//	if chunkq.IsWouldBlock(err) {
//	    // Pool exhausted - every chunk is in flight
//	}
//	copy(c.Payload(), data)
//	if !ch.Queue.Push(c) {
//	    // Queue is full - retry, drop or propagate backpressure
//	    c.Release()
//	}
//
// Consumer:
//
//	c, ok := ch.Queue.Pop()
//	if ok {
//	    process(c.Payload())
//	    c.Release() // Last release returns the chunk to its pool
//	}
//
// # Ownership
//
// A Chunk owns one reference. Clone adds one; Release gives it back and
// the last Release returns the chunk to its pool. A successful Push moves
// the caller's reference into the queue and Pop moves it out again, so a
// chunk in flight is never copied and never leaked.
//
// Fan-out to several queues clones once per extra queue:
//
//	for _, q := range queues {
//	    r := c.Clone()
//	    if !q.Push(r) {
//	        r.Release() // Full: drop for this receiver
//	    }
//	}
//	c.Release()
//
// A Push that returns false leaves the reference with the caller.
//
// # Shared Memory
//
// Everything stored in the region is addressed by [Offset], never by
// pointer, because each process maps the region at its own address. Each
// process builds its own views (Arena, Pool, ChunkQueue, Semaphore) over
// the shared state; views are cheap and do not own anything.
//
// Synchronization uses only atomics on the shared memory and, for the
// semaphore on Linux, shared futexes. No lock depends on process-local
// state.
//
// # Blocking
//
// Push and Pop never block. A consumer that wants to sleep attaches a
// semaphore, which Push posts after every successful insert, and waits on
// it:
//
//	c, err := ch.Queue.PopWait(ctx)
//
// The semaphore is a hint, not a guarantee: PopWait re-checks the queue
// after every wake-up because another consumer may have taken the chunk.
// A semaphore can be attached to a queue storage exactly once; a second
// attach returns [ErrSemaphoreAlreadySet].
//
// # Capacity
//
// Every queue storage reserves [MaxCapacity] slots. The logical capacity
// may be changed with SetCapacity to any value in [1, MaxCapacity]. It is
// not rounded. SetCapacity and Clear must not race with Push or Pop;
// build with -tags chunkq_debug to turn violations into panics.
//
// Size is approximate under concurrent use.
//
// # Thread Safety
//
//   - Push: any number of producers, in any process
//   - Pop: one logical consumer; concurrent poppers each receive distinct
//     chunks but FIFO order across them is not defined
//   - SetCapacity, Clear: quiescent phases only
//   - Pool.Get, Chunk.Clone, Chunk.Release: any goroutine, any process
//
// # Race Detection
//
// Slot payloads are guarded by per-slot sequence numbers with
// acquire-release ordering. The race detector cannot observe that
// cross-variable ordering and may report false positives. Concurrent
// tests are skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause in CAS
// retry loops, [code.hybscloud.com/iox] for semantic errors and adaptive
// backoff, and [golang.org/x/sys/unix] for memory mapping and futexes.
package chunkq
