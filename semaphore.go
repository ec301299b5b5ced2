// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"context"
	"errors"
	"time"
	"unsafe"

	"code.hybscloud.com/atomix"
)

const semaphoreMagic uint64 = 0x63686b71_73656d61 // "chkqsema"

// parkSlice bounds a single park so Wait can observe context cancellation.
const parkSlice = 20 * time.Millisecond

type semaphoreData struct {
	magic   atomix.Uint64
	count   atomix.Uint32 // Futex word
	waiters atomix.Uint32
}

// Semaphore is a counting semaphore placed in an arena.
//
// It is the wake-up signal of a chunk queue: Push posts it after a chunk
// becomes visible, so a consumer can sleep in Wait instead of polling.
// The count lives in shared memory and waiting is valid across processes.
type Semaphore struct {
	arena *Arena
	off   Offset
	d     *semaphoreData
}

// NewSemaphore places a semaphore with the given initial count in a.
func NewSemaphore(a *Arena, initial uint32) (*Semaphore, error) {
	off, err := a.Alloc(uint64(unsafe.Sizeof(semaphoreData{})), cacheLine)
	if err != nil {
		return nil, err
	}
	d := (*semaphoreData)(a.ptr(off))
	d.count.Store(initial)
	d.waiters.Store(0)
	d.magic.StoreRelease(semaphoreMagic)
	return &Semaphore{arena: a, off: off, d: d}, nil
}

// OpenSemaphore returns a view of the semaphore at off.
func OpenSemaphore(a *Arena, off Offset) (*Semaphore, error) {
	d, err := at[semaphoreData](a, off)
	if err != nil {
		return nil, err
	}
	if d.magic.LoadAcquire() != semaphoreMagic {
		return nil, ErrBadOffset
	}
	return &Semaphore{arena: a, off: off, d: d}, nil
}

// Offset returns the relocatable location of the semaphore.
func (s *Semaphore) Offset() Offset {
	return s.off
}

// Value returns the current count. Racy under concurrent use.
func (s *Semaphore) Value() uint32 {
	return s.d.count.Load()
}

// Post increments the count and wakes one waiter, if any.
func (s *Semaphore) Post() {
	s.d.post()
}

func (d *semaphoreData) post() {
	d.count.Add(1)
	if d.waiters.Load() > 0 {
		futexWake(d.word(), 1)
	}
}

// TryWait decrements the count if it is positive.
// Returns ErrWouldBlock if the count is zero.
func (s *Semaphore) TryWait() error {
	for {
		c := s.d.count.Load()
		if c == 0 {
			return ErrWouldBlock
		}
		if s.d.count.CompareAndSwapAcqRel(c, c-1) {
			return nil
		}
	}
}

// Wait blocks until the count is positive and decrements it, or until ctx
// is done, in which case ctx.Err() is returned.
func (s *Semaphore) Wait(ctx context.Context) error {
	for {
		if s.TryWait() == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d := parkSlice
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < d {
				d = max(left, time.Microsecond)
			}
		}
		s.d.waiters.Add(1)
		futexWait(s.d.word(), 0, d)
		s.d.waiters.Add(^uint32(0))
	}
}

// TimedWait is Wait bounded by d. Returns ErrTimeout when d elapses.
func (s *Semaphore) TimedWait(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	}
	return nil
}

// word returns the futex word. atomix.Uint32 is a plain 32-bit word.
func (d *semaphoreData) word() *uint32 {
	return (*uint32)(unsafe.Pointer(&d.count))
}
