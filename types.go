// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

// Producer is the interface for pushing chunks.
//
// A chunk distributor is a Producer: it decides which queues receive a
// chunk and calls Push on each, cloning the chunk for every extra queue.
// Push never drops data itself; a false result leaves the overflow policy
// (retry, drop, propagate backpressure) to the caller.
type Producer interface {
	// Push appends c without blocking.
	// Returns false if the queue is full; the caller keeps c.
	// On success the queue takes over c's reference.
	Push(c Chunk) bool
}

// Consumer is the interface for popping chunks.
type Consumer interface {
	// Pop removes the oldest chunk without blocking.
	// Returns false if the queue is empty.
	// The returned chunk carries one reference for the caller to release.
	Pop() (Chunk, bool)
}

// Queue is the combined producer-consumer interface of a chunk queue.
//
// Size is approximate: other processes may push or pop concurrently.
type Queue interface {
	Producer
	Consumer
	Empty() bool
	Size() uint64
	Capacity() uint64
}

var _ Queue = (*ChunkQueue)(nil)
