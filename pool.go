// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

const poolMagic uint64 = 0x63686b71_706f6f6c // "chkqpool"

type poolHeader struct {
	magic     atomix.Uint64
	chunkSize uint64 // Payload bytes per chunk
	stride    uint64 // Header + payload, cache line aligned
	numChunks uint64
	chunks    Offset // First chunk header
	_         [cacheLine - 40]byte
	free      ring // Must be last: slots follow
}

// Pool is a fixed-size chunk allocator placed in an arena.
//
// Free chunks are kept in a shared ring of chunk offsets, so any process
// mapping the arena can take chunks from the pool and return them. Chunks
// return automatically when their last reference is released.
type Pool struct {
	arena     *Arena
	off       Offset
	hdr       *poolHeader
	onReclaim func(Offset)
}

// NewPool places a pool of numChunks chunks with chunkSize payload bytes
// each in a. Panics if chunkSize or numChunks is not positive.
func NewPool(a *Arena, chunkSize, numChunks int) (*Pool, error) {
	if chunkSize <= 0 || numChunks <= 0 {
		panic("chunkq: pool needs positive chunk size and count")
	}
	slots := uint64(roundToPow2(numChunks))
	stride := alignUp(uint64(chunkHeaderSize)+uint64(chunkSize), cacheLine)

	off, err := a.Alloc(uint64(unsafe.Sizeof(poolHeader{}))+slots*uint64(ringSlotSize), cacheLine)
	if err != nil {
		return nil, err
	}
	chunks, err := a.Alloc(stride*uint64(numChunks), cacheLine)
	if err != nil {
		return nil, err
	}

	h := (*poolHeader)(a.ptr(off))
	h.chunkSize = uint64(chunkSize)
	h.stride = stride
	h.numChunks = uint64(numChunks)
	h.chunks = chunks
	h.free.init(slots, uint64(numChunks))
	for i := range uint64(numChunks) {
		coff := chunks + Offset(i*stride)
		ch := (*chunkHeader)(a.ptr(coff))
		ch.pool = off
		ch.size = uint64(chunkSize)
		ch.refs.StoreRelaxed(0)
		ch.magic.StoreRelaxed(chunkMagic)
		if !h.free.push(uint64(coff)) {
			panic("chunkq: pool free list overflow")
		}
	}
	h.magic.StoreRelease(poolMagic)

	p := &Pool{arena: a, off: off, hdr: h}
	a.pools.Store(off, p)
	logDebug("pool created", "offset", off, "chunkSize", chunkSize, "chunks", numChunks)
	return p, nil
}

// OpenPool returns a view of the pool at off, created by NewPool in this
// or another process.
func OpenPool(a *Arena, off Offset) (*Pool, error) {
	return a.poolAt(off)
}

// poolAt returns the process-local view of the pool at off, creating and
// caching it on first use.
func (a *Arena) poolAt(off Offset) (*Pool, error) {
	if v, ok := a.pools.Load(off); ok {
		return v.(*Pool), nil
	}
	if uint64(off)%cacheLine != 0 {
		return nil, ErrBadOffset
	}
	h, err := at[poolHeader](a, off)
	if err != nil {
		return nil, err
	}
	if h.magic.LoadAcquire() != poolMagic {
		return nil, ErrBadOffset
	}
	v, _ := a.pools.LoadOrStore(off, &Pool{arena: a, off: off, hdr: h})
	return v.(*Pool), nil
}

// Get takes a chunk from the pool with a reference count of 1.
// Returns ErrWouldBlock if every chunk is in use.
//
// Safe for concurrent use from any process.
func (p *Pool) Get() (Chunk, error) {
	v, ok := p.hdr.free.pop()
	if !ok {
		return Chunk{}, ErrWouldBlock
	}
	off := Offset(v)
	h := (*chunkHeader)(p.arena.ptr(off))
	h.refs.StoreRelease(1)
	return Chunk{arena: p.arena, off: off}, nil
}

// OnReclaim registers fn to run after a chunk released in this process
// returns to the pool. The hook is process-local. Set it before chunks
// are released concurrently.
func (p *Pool) OnReclaim(fn func(Offset)) {
	p.onReclaim = fn
}

func (p *Pool) reclaim(off Offset) {
	if !p.hdr.free.push(uint64(off)) {
		panic("chunkq: pool free list overflow")
	}
	if p.onReclaim != nil {
		p.onReclaim(off)
	}
}

// Available returns the number of free chunks. Racy under concurrent use.
func (p *Pool) Available() int {
	return int(p.hdr.free.len())
}

// ChunkSize returns the payload size of each chunk in bytes.
func (p *Pool) ChunkSize() int {
	return int(p.hdr.chunkSize)
}

// NumChunks returns the total number of chunks in the pool.
func (p *Pool) NumChunks() int {
	return int(p.hdr.numChunks)
}

// Offset returns the relocatable location of the pool.
func (p *Pool) Offset() Offset {
	return p.off
}
