// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq_test

import (
	"testing"

	"code.hybscloud.com/chunkq"
)

// newChannel lays out a channel in a heap arena sized by the builder.
func newChannel(t testing.TB, b *chunkq.Builder) *chunkq.Channel {
	t.Helper()
	return newChannelWithRoom(t, b, 0)
}

// newChannelWithRoom is newChannel with extra bytes left in the arena for
// objects the test allocates itself.
func newChannelWithRoom(t testing.TB, b *chunkq.Builder, room int) *chunkq.Channel {
	t.Helper()
	a, err := chunkq.NewHeapArena(b.Size() + room)
	if err != nil {
		t.Fatalf("NewHeapArena: %v", err)
	}
	ch, err := b.Build(a)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ch
}

// get takes a chunk from p and fails the test if the pool is exhausted.
func get(t testing.TB, p *chunkq.Pool) chunkq.Chunk {
	t.Helper()
	c, err := p.Get()
	if err != nil {
		t.Fatalf("Pool.Get: %v", err)
	}
	return c
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}
