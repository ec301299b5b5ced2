// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// ring is a CAS-based bounded MPMC ring of 64-bit values placed in shared
// memory.
//
// Uses per-slot sequence numbers for ABA safety. The slot array follows the
// ring header directly, so a ring is addressed relative to its own location
// and never through a process-local pointer.
//
// The physical slot count is a power of 2 fixed at init. The logical
// capacity may be any value in [1, slots] and bounds the number of stored
// values.
//
// Memory: header + 16 bytes per slot
type ring struct {
	_        pad
	tail     atomix.Uint64 // Producer index
	_        padShort
	head     atomix.Uint64 // Consumer index
	_        padShort
	capacity atomix.Uint64 // Logical capacity
	slots    uint64
	mask     uint64
	_        [cacheLine - 24]byte
}

type ringSlot struct {
	seq atomix.Uint64
	val uint64
}

const (
	ringHeaderSize = unsafe.Sizeof(ring{})
	ringSlotSize   = unsafe.Sizeof(ringSlot{})
)

// ringSize returns the bytes needed for a ring with n physical slots.
func ringSize(n uint64) uint64 {
	return uint64(ringHeaderSize) + n*uint64(ringSlotSize)
}

// init prepares the ring. slots must be a power of 2 and capacity in
// [1, slots]. Not safe for concurrent use.
func (r *ring) init(slots, capacity uint64) {
	r.slots = slots
	r.mask = slots - 1
	for i := uint64(0); i < slots; i++ {
		r.slot(i).seq.StoreRelaxed(i)
	}
	r.head.StoreRelaxed(0)
	r.capacity.StoreRelaxed(capacity)
	r.tail.StoreRelease(0)
}

func (r *ring) slot(i uint64) *ringSlot {
	return (*ringSlot)(unsafe.Add(unsafe.Pointer(r), ringHeaderSize+uintptr(i)*ringSlotSize))
}

// push appends v. Returns false if the ring holds capacity values.
// Safe for multiple producers.
func (r *ring) push(v uint64) bool {
	sw := spin.Wait{}
	for {
		// head first: a stale head only overestimates the count.
		head := r.head.LoadAcquire()
		tail := r.tail.LoadAcquire()
		if tail-head >= r.capacity.LoadAcquire() {
			return false
		}

		s := r.slot(tail & r.mask)
		seq := s.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if r.tail.CompareAndSwapAcqRel(tail, tail+1) {
				s.val = v
				s.seq.StoreRelease(tail + 1)
				return true
			}
		} else if diff < 0 {
			return false
		}
		sw.Once()
	}
}

// pop removes the oldest value. Returns false if the ring is empty or the
// oldest slot is claimed but not yet published.
// Safe for multiple consumers; each value is returned to exactly one.
func (r *ring) pop() (uint64, bool) {
	sw := spin.Wait{}
	for {
		head := r.head.LoadAcquire()
		s := r.slot(head & r.mask)
		seq := s.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if r.head.CompareAndSwapAcqRel(head, head+1) {
				v := s.val
				s.val = 0
				s.seq.StoreRelease(head + r.slots)
				return v, true
			}
		} else if diff < 0 {
			return 0, false
		}
		sw.Once()
	}
}

// len returns the number of stored values, clamped to [0, capacity].
// Racy under concurrent push/pop.
func (r *ring) len() uint64 {
	head := r.head.LoadAcquire()
	tail := r.tail.LoadAcquire()
	if tail <= head {
		return 0
	}
	n := tail - head
	if c := r.capacity.LoadAcquire(); n > c {
		return c
	}
	return n
}

func (r *ring) cap() uint64 {
	return r.capacity.LoadAcquire()
}

// setCap changes the logical capacity. capacity must be in [1, slots].
// Not safe against concurrent push/pop.
func (r *ring) setCap(capacity uint64) {
	r.capacity.StoreRelease(capacity)
}
