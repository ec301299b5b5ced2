// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"math/rand/v2"
	"sync"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/chunkq/internal/shm"
)

// Offset locates an object inside an [Arena], in bytes from the arena base.
//
// Offsets are the only references stored in shared memory. Each process
// resolves an offset against its own mapping of the region, so the same
// offset stays valid when the region is mapped at different addresses.
// The zero Offset is occupied by the arena header and never names an object.
type Offset uint64

// RootSlots is the number of well-known offsets an arena can publish.
const RootSlots = 8

const (
	arenaMagic   uint64 = 0x63686b71_61726e61 // "chkqarna"
	arenaVersion uint64 = 1
	cacheLine           = 64
)

type arenaHeader struct {
	magic   atomix.Uint64 // Published last
	version uint64
	size    uint64
	id      uint64 // Region identity, shared by every mapping
	_       [cacheLine - 32]byte
	cursor  atomix.Uint64 // Bump allocation cursor
	_       padShort
	roots   [RootSlots]atomix.Uint64
}

var arenaHeaderSize = alignUp(uint64(unsafe.Sizeof(arenaHeader{})), cacheLine)

// Arena is a process-local view of a shared-memory region.
//
// The region itself holds a small header (bump allocator cursor and a root
// table) followed by the objects allocated from it: pools, chunks, queue
// storages and semaphores. Every process touching the region constructs
// its own Arena over its own mapping.
//
// Memory handed out by Alloc is never freed individually; it lives as long
// as the region.
type Arena struct {
	mem  []byte
	base unsafe.Pointer
	hdr  *arenaHeader
	seg  *shm.Segment

	// Process-local pool views, keyed by pool offset.
	pools sync.Map
}

// NewArena formats mem as a fresh arena and returns a view of it.
// Any previous content of mem is discarded.
func NewArena(mem []byte) (*Arena, error) {
	a, err := wrap(mem)
	if err != nil {
		return nil, err
	}
	clear(mem)
	a.hdr.version = arenaVersion
	a.hdr.size = uint64(len(mem))
	a.hdr.id = rand.Uint64() | 1
	a.hdr.cursor.StoreRelaxed(arenaHeaderSize)
	a.hdr.magic.StoreRelease(arenaMagic)
	logDebug("arena formatted", "size", len(mem))
	return a, nil
}

// AttachArena returns a view of a region previously formatted by NewArena,
// possibly by another process.
func AttachArena(mem []byte) (*Arena, error) {
	a, err := wrap(mem)
	if err != nil {
		return nil, err
	}
	if a.hdr.magic.LoadAcquire() != arenaMagic || a.hdr.version != arenaVersion {
		return nil, ErrArenaCorrupt
	}
	if a.hdr.size > uint64(len(mem)) || a.hdr.cursor.LoadAcquire() > a.hdr.size {
		return nil, ErrArenaCorrupt
	}
	a.mem = mem[:a.hdr.size]
	logDebug("arena attached", "size", a.hdr.size)
	return a, nil
}

// NewHeapArena returns an arena backed by process-private memory.
// Useful for exchanging chunks between goroutines and for tests.
func NewHeapArena(size int) (*Arena, error) {
	if size < int(arenaHeaderSize) {
		return nil, ErrArenaTooSmall
	}
	// Backing words keep the region 8-byte aligned.
	words := make([]uint64, (size+7)/8)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)
	return NewArena(mem)
}

func wrap(mem []byte) (*Arena, error) {
	if uint64(len(mem)) < arenaHeaderSize {
		return nil, ErrArenaTooSmall
	}
	base := unsafe.Pointer(unsafe.SliceData(mem))
	if uintptr(base)%8 != 0 {
		return nil, ErrArenaMisaligned
	}
	return &Arena{
		mem:  mem,
		base: base,
		hdr:  (*arenaHeader)(base),
	}, nil
}

// Size returns the size of the region in bytes.
func (a *Arena) Size() int {
	return len(a.mem)
}

// Used returns the number of bytes consumed by the header and allocations.
func (a *Arena) Used() int {
	return int(a.hdr.cursor.LoadAcquire())
}

// Bytes returns the whole region. Another view of the same memory can be
// obtained with AttachArena(a.Bytes()).
func (a *Arena) Bytes() []byte {
	return a.mem
}

// Alloc reserves size bytes aligned to align (a power of 2; 0 means 8) and
// returns their offset. The memory is zeroed when the region is fresh.
// Returns ErrArenaExhausted if the region has no room left.
//
// Alloc is safe for concurrent use from any process mapping the region.
func (a *Arena) Alloc(size, align uint64) (Offset, error) {
	if align == 0 {
		align = 8
	}
	if align&(align-1) != 0 {
		panic("chunkq: alignment must be a power of 2")
	}

	sw := spin.Wait{}
	for {
		cur := a.hdr.cursor.LoadAcquire()
		off := alignUp(cur, align)
		end := off + size
		if end < off || end > a.hdr.size {
			return 0, ErrArenaExhausted
		}
		if a.hdr.cursor.CompareAndSwapAcqRel(cur, end) {
			return Offset(off), nil
		}
		sw.Once()
	}
}

// SetRoot publishes off in root slot i so other processes can find it.
// Panics if i is not in [0, RootSlots).
func (a *Arena) SetRoot(i int, off Offset) {
	if i < 0 || i >= RootSlots {
		panic("chunkq: root slot out of range")
	}
	a.hdr.roots[i].StoreRelease(uint64(off))
}

// Root returns the offset published in root slot i, or 0 if none.
// Panics if i is not in [0, RootSlots).
func (a *Arena) Root(i int) Offset {
	if i < 0 || i >= RootSlots {
		panic("chunkq: root slot out of range")
	}
	return Offset(a.hdr.roots[i].LoadAcquire())
}

// Close releases the mapping behind a shared arena. It is a no-op for
// heap arenas and arenas over caller-provided memory. The region itself
// survives until it is unlinked.
func (a *Arena) Close() error {
	if a.seg == nil {
		return nil
	}
	seg := a.seg
	a.seg = nil
	return seg.Close()
}

// contains reports whether [off, off+size) lies inside the allocated part
// of the region.
func (a *Arena) contains(off Offset, size uintptr) bool {
	end := uint64(off) + uint64(size)
	return off >= Offset(arenaHeaderSize) && end >= uint64(off) && end <= a.hdr.cursor.LoadAcquire()
}

// ptr resolves off to an address in this process.
func (a *Arena) ptr(off Offset) unsafe.Pointer {
	return unsafe.Add(a.base, uintptr(off))
}

// same reports whether b views the same region as a. Two mappings of one
// segment in a process have different bases but the same region identity.
func (a *Arena) same(b *Arena) bool {
	if a == nil || b == nil {
		return false
	}
	return a.base == b.base || a.hdr.id == b.hdr.id
}

// at resolves off as a *T, checking bounds.
func at[T any](a *Arena, off Offset) (*T, error) {
	var zero T
	if !a.contains(off, unsafe.Sizeof(zero)) || uint64(off)%8 != 0 {
		return nil, ErrBadOffset
	}
	return (*T)(a.ptr(off)), nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
