// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const chunkMagic uint64 = 0x63686b71_63686e6b // "chkqchnk"

// chunkHeader precedes every chunk payload in the arena. It is the shared
// control block of the chunk: the reference count and the owning pool are
// reachable from any process through the chunk offset alone.
type chunkHeader struct {
	magic atomix.Uint64
	refs  atomix.Int64
	pool  Offset // Owning pool header
	size  uint64 // Payload bytes
	_     [cacheLine - 32]byte
}

const chunkHeaderSize = unsafe.Sizeof(chunkHeader{})

// Chunk is a reference-counted handle to a pool-allocated chunk.
//
// A Chunk owns one reference. Clone adds a reference and returns a new
// handle to the same chunk; Release gives the handle's reference back.
// When the last reference is released the chunk returns to its pool.
// The count lives in shared memory, so clones and releases may happen in
// different processes.
//
// Copying a Chunk value does not add a reference. Use Clone to share and
// treat a plain copy as a move.
//
// Chunks compare by identity only (Same); there is no ordering.
type Chunk struct {
	arena *Arena
	off   Offset
}

// Valid reports whether c refers to a chunk.
func (c Chunk) Valid() bool {
	return c.arena != nil && c.off != 0
}

// Same reports whether c and other refer to the same chunk.
// Handles from different views of one region compare equal.
func (c Chunk) Same(other Chunk) bool {
	if !c.Valid() || !other.Valid() {
		return !c.Valid() && !other.Valid()
	}
	return c.off == other.off && c.arena.same(other.arena)
}

// Offset returns the relocatable location of the chunk. Another process
// can adopt the reference with Arena.ChunkAt.
func (c Chunk) Offset() Offset {
	return c.off
}

// Clone adds a reference and returns a new handle to the same chunk.
// Panics if c is not valid or the chunk has no references left; the
// reference count is not touched in that case.
func (c Chunk) Clone() Chunk {
	h := c.header()
	sw := spin.Wait{}
	for {
		n := h.refs.LoadAcquire()
		if n <= 0 {
			panic("chunkq: clone of released chunk")
		}
		if h.refs.CompareAndSwapAcqRel(n, n+1) {
			return c
		}
		sw.Once()
	}
}

// Release gives back the reference held by c and invalidates c.
// The chunk returns to its pool when this was the last reference.
// Releasing an invalid handle is a no-op.
//
// Panics if the chunk has no references left, which means a plain copy of
// a handle was released twice.
func (c *Chunk) Release() {
	if !c.Valid() {
		return
	}
	a, off := c.arena, c.off
	*c = Chunk{}

	h := (*chunkHeader)(a.ptr(off))
	n := h.refs.AddAcqRel(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("chunkq: chunk released more times than referenced")
	}
	p, err := a.poolAt(h.pool)
	if err != nil {
		panic("chunkq: chunk without pool: " + err.Error())
	}
	p.reclaim(off)
}

// RefCount returns the current reference count. Only meaningful for
// diagnostics: other processes may change it concurrently.
func (c Chunk) RefCount() int64 {
	return c.header().refs.LoadAcquire()
}

// Payload returns the chunk's payload bytes in place. No data is copied;
// writes are visible to every process mapping the region.
func (c Chunk) Payload() []byte {
	h := c.header()
	return unsafe.Slice((*byte)(c.arena.ptr(c.off+Offset(chunkHeaderSize))), h.size)
}

func (c Chunk) header() *chunkHeader {
	if !c.Valid() {
		panic("chunkq: invalid chunk")
	}
	return (*chunkHeader)(c.arena.ptr(c.off))
}

// ChunkAt adopts the reference of the chunk at off, typically received
// from another process. The reference count is not changed: the caller
// takes over a reference that was handed off without being released.
func (a *Arena) ChunkAt(off Offset) (Chunk, error) {
	h, err := at[chunkHeader](a, off)
	if err != nil {
		return Chunk{}, err
	}
	if h.magic.LoadAcquire() != chunkMagic {
		return Chunk{}, ErrBadOffset
	}
	return Chunk{arena: a, off: off}, nil
}
