// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/chunkq"
	"code.hybscloud.com/chunkq/internal/frame"
)

func newChannel(t *testing.T, capacity, chunkSize, chunks int) *chunkq.Channel {
	t.Helper()
	b := chunkq.New(capacity).Pool(chunkSize, chunks)
	a, err := chunkq.NewHeapArena(b.Size())
	if err != nil {
		t.Fatalf("NewHeapArena: %v", err)
	}
	ch, err := b.Build(a)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ch
}

func TestSendFramesMessage(t *testing.T) {
	ch := newChannel(t, 4, 128, 4)
	if err := send(context.Background(), ch, []byte("ping")); err != nil {
		t.Fatalf("send: %v", err)
	}

	c, ok := ch.Queue.Pop()
	if !ok {
		t.Fatal("Pop: queue empty")
	}
	defer c.Release()
	data, err := frame.Verify(c.Payload())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if string(data) != "ping" {
		t.Fatalf("got %q, want %q", data, "ping")
	}
}

func TestSendTooLarge(t *testing.T) {
	ch := newChannel(t, 4, 64, 4)
	msg := []byte(strings.Repeat("x", 64))
	if err := send(context.Background(), ch, msg); !errors.Is(err, errTooLarge) {
		t.Fatalf("got %v, want errTooLarge", err)
	}
	if got := ch.Pool.Available(); got != 4 {
		t.Fatalf("Available: got %d, want 4", got)
	}
}

func TestSendQueueFullTimesOut(t *testing.T) {
	ch := newChannel(t, 1, 64, 4)
	if err := send(context.Background(), ch, []byte("a")); err != nil {
		t.Fatalf("send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := send(ctx, ch, []byte("b")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", err)
	}
	// The chunk that could not be queued went back to the pool
	if got := ch.Pool.Available(); got != 3 {
		t.Fatalf("Available: got %d, want 3", got)
	}
}

func TestSendPoolExhaustedTimesOut(t *testing.T) {
	ch := newChannel(t, 4, 64, 1)
	held, err := ch.Pool.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := send(ctx, ch, []byte("a")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", err)
	}
}
