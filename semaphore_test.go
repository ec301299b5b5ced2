// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/chunkq"
)

func newSemaphore(t *testing.T, initial uint32) *chunkq.Semaphore {
	t.Helper()
	a, err := chunkq.NewHeapArena(4096)
	if err != nil {
		t.Fatalf("NewHeapArena: %v", err)
	}
	s, err := chunkq.NewSemaphore(a, initial)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	return s
}

// =============================================================================
// Semaphore - Counting
// =============================================================================

func TestSemaphorePostTryWait(t *testing.T) {
	s := newSemaphore(t, 2)
	if s.Value() != 2 {
		t.Fatalf("Value: got %d, want 2", s.Value())
	}
	for i := range 2 {
		if err := s.TryWait(); err != nil {
			t.Fatalf("TryWait(%d): %v", i, err)
		}
	}
	if err := s.TryWait(); !errors.Is(err, chunkq.ErrWouldBlock) {
		t.Fatalf("TryWait at zero: got %v, want ErrWouldBlock", err)
	}

	for range 3 {
		s.Post()
	}
	if s.Value() != 3 {
		t.Fatalf("Value after 3 posts: got %d, want 3", s.Value())
	}
}

func TestSemaphoreOpen(t *testing.T) {
	ch := newChannel(t, chunkq.New(2).Pool(16, 1).Semaphore())

	v, err := chunkq.OpenSemaphore(ch.Arena, ch.Semaphore.Offset())
	if err != nil {
		t.Fatalf("OpenSemaphore: %v", err)
	}
	v.Post()
	if ch.Semaphore.Value() != 1 {
		t.Fatalf("Value via other view: got %d, want 1", ch.Semaphore.Value())
	}
	if _, err := chunkq.OpenSemaphore(ch.Arena, ch.Pool.Offset()); !errors.Is(err, chunkq.ErrBadOffset) {
		t.Fatalf("OpenSemaphore(pool offset): got %v, want ErrBadOffset", err)
	}
}

// =============================================================================
// Semaphore - Blocking
// =============================================================================

func TestSemaphoreWaitWokenByPost(t *testing.T) {
	if chunkq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering not observable by race detector")
	}
	s := newSemaphore(t, 0)
	done := make(chan error, 1)
	go func() { done <- s.Wait(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	s.Post()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait not woken by Post")
	}
	if s.Value() != 0 {
		t.Fatalf("Value: got %d, want 0", s.Value())
	}
}

func TestSemaphoreWaitCanceled(t *testing.T) {
	s := newSemaphore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Wait(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Wait: got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait ignored cancellation")
	}
}

func TestSemaphoreTimedWait(t *testing.T) {
	s := newSemaphore(t, 0)
	start := time.Now()
	if err := s.TimedWait(30 * time.Millisecond); !errors.Is(err, chunkq.ErrTimeout) {
		t.Fatalf("TimedWait: got %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("TimedWait returned after %v", elapsed)
	}

	s.Post()
	if err := s.TimedWait(time.Second); err != nil {
		t.Fatalf("TimedWait with count 1: %v", err)
	}
}

// =============================================================================
// ChunkQueue - PopWait
// =============================================================================

func TestPopWaitWokenByPush(t *testing.T) {
	if chunkq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering not observable by race detector")
	}
	ch := newChannel(t, chunkq.New(4).Pool(16, 4).Semaphore())
	c := get(t, ch.Pool)
	off := c.Offset()

	type result struct {
		c   chunkq.Chunk
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := ch.Queue.PopWait(context.Background())
		done <- result{c, err}
	}()

	time.Sleep(10 * time.Millisecond)
	if !ch.Queue.Push(c) {
		t.Fatal("Push: got false")
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("PopWait: %v", r.err)
		}
		if r.c.Offset() != off {
			t.Fatalf("PopWait: got %d, want %d", r.c.Offset(), off)
		}
		r.c.Release()
	case <-time.After(5 * time.Second):
		t.Fatal("PopWait not woken by Push")
	}
}

func TestPopWaitCanceled(t *testing.T) {
	for _, b := range []*chunkq.Builder{
		chunkq.New(4).Pool(16, 4).Semaphore(),
		chunkq.New(4).Pool(16, 4),
	} {
		ch := newChannel(t, b)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := ch.Queue.PopWait(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("PopWait(semaphore=%v): got %v, want DeadlineExceeded", ch.Semaphore != nil, err)
		}
	}
}

func TestPopWaitPolling(t *testing.T) {
	if chunkq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering not observable by race detector")
	}
	ch := newChannel(t, chunkq.New(4).Pool(16, 4))
	go func() {
		time.Sleep(10 * time.Millisecond)
		c, err := ch.Pool.Get()
		if err == nil {
			ch.Queue.Push(c)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := ch.Queue.PopWait(ctx)
	if err != nil {
		t.Fatalf("PopWait without semaphore: %v", err)
	}
	c.Release()
}

// TestPopWaitDrainsPosts verifies that a consumer woken more often than
// there are chunks does not return spurious values.
func TestPopWaitDrainsPosts(t *testing.T) {
	ch := newChannel(t, chunkq.New(4).Pool(16, 4).Semaphore())
	// Extra posts without chunks
	ch.Semaphore.Post()
	ch.Semaphore.Post()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if c, err := ch.Queue.PopWait(ctx); err == nil {
		t.Fatalf("PopWait: got chunk %d from an empty queue", c.Offset())
	}
}

func TestPopWaitConsumesPosts(t *testing.T) {
	ch := newChannel(t, chunkq.New(4).Pool(16, 4).Semaphore())
	for range 3 {
		ch.Queue.Push(get(t, ch.Pool))
	}
	if ch.Semaphore.Value() != 3 {
		t.Fatalf("Value after 3 pushes: got %d, want 3", ch.Semaphore.Value())
	}
	for range 3 {
		c, err := ch.Queue.PopWait(context.Background())
		if err != nil {
			t.Fatalf("PopWait: %v", err)
		}
		c.Release()
	}
	if ch.Semaphore.Value() != 0 {
		t.Fatalf("Value after draining: got %d, want 0", ch.Semaphore.Value())
	}
}
