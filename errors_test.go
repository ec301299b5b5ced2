// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/chunkq"
)

func TestIsSemantic(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"ErrWouldBlock", chunkq.ErrWouldBlock, true},
		{"iox.ErrWouldBlock", iox.ErrWouldBlock, true},
		{"ErrSemaphoreAlreadySet", chunkq.ErrSemaphoreAlreadySet, false},
		{"other error", errors.New("other"), false},
	}

	for tt := range slices.Values(tests) {
		t.Run(tt.name, func(t *testing.T) {
			if got := chunkq.IsSemantic(tt.err); got != tt.want {
				t.Errorf("IsSemantic(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNonFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"ErrWouldBlock", chunkq.ErrWouldBlock, true},
		{"wrapped ErrWouldBlock", fmt.Errorf("get: %w", chunkq.ErrWouldBlock), true},
		{"ErrTimeout", chunkq.ErrTimeout, false},
		{"ErrArenaExhausted", chunkq.ErrArenaExhausted, false},
	}

	for tt := range slices.Values(tests) {
		t.Run(tt.name, func(t *testing.T) {
			if got := chunkq.IsNonFailure(tt.err); got != tt.want {
				t.Errorf("IsNonFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsWouldBlockWrapped(t *testing.T) {
	if !chunkq.IsWouldBlock(fmt.Errorf("pool: %w", chunkq.ErrWouldBlock)) {
		t.Fatal("IsWouldBlock(wrapped): got false")
	}
	if chunkq.IsWouldBlock(chunkq.ErrBadOffset) {
		t.Fatal("IsWouldBlock(ErrBadOffset): got true")
	}
}
