// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// MaxCapacity is the hard upper bound of a queue's logical capacity and the
// number of physical slots every queue storage reserves.
const MaxCapacity = 256

const storageMagic uint64 = 0x63686b71_71756575 // "chkqqueu"

// queueStorage is the process-shared state of one chunk queue.
//
// The ring stores chunk offsets, never addresses. sem holds the offset of
// the attached Semaphore and moves from 0 to non-zero exactly once.
type queueStorage struct {
	magic atomix.Uint64
	sem   atomix.Uint64 // Attached semaphore offset, 0 if none
	busy  atomix.Int32  // In-flight push/pop, tracked in debug builds
	_     [cacheLine - 20]byte
	ring  ring // Must be last: slots follow
}

var storageSize = uint64(unsafe.Sizeof(queueStorage{})) + MaxCapacity*uint64(ringSlotSize)

// NewQueueStorage allocates the shared state of a chunk queue in a and
// returns its offset. Views are bound to it with NewChunkQueue, from this
// or any other process mapping the region.
//
// Panics if capacity is not in [1, MaxCapacity].
func NewQueueStorage(a *Arena, capacity uint64) (Offset, error) {
	checkCapacity(capacity)
	off, err := a.Alloc(storageSize, cacheLine)
	if err != nil {
		return 0, err
	}
	s := (*queueStorage)(a.ptr(off))
	s.sem.StoreRelaxed(0)
	s.busy.Store(0)
	s.ring.init(MaxCapacity, capacity)
	s.magic.StoreRelease(storageMagic)
	logDebug("queue storage created", "offset", off, "capacity", capacity)
	return off, nil
}

func openStorage(a *Arena, off Offset) (*queueStorage, error) {
	if !a.contains(off, uintptr(storageSize)) || uint64(off)%cacheLine != 0 {
		return nil, ErrBadOffset
	}
	s := (*queueStorage)(a.ptr(off))
	if s.magic.LoadAcquire() != storageMagic {
		return nil, ErrBadOffset
	}
	return s, nil
}

func checkCapacity(capacity uint64) {
	if capacity == 0 || capacity > MaxCapacity {
		panic("chunkq: capacity must be in [1, MaxCapacity]")
	}
}

// enter and leave bracket push/pop so debug builds can catch SetCapacity
// and Clear racing with queue traffic.
func (s *queueStorage) enter() {
	if debugEnabled {
		s.busy.Add(1)
	}
}

func (s *queueStorage) leave() {
	if debugEnabled {
		s.busy.Add(-1)
	}
}

func (s *queueStorage) assertQuiescent(op string) {
	if debugEnabled && s.busy.Load() != 0 {
		panic("chunkq: " + op + " called while push or pop is in flight")
	}
}
