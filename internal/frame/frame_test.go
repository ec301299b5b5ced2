// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package frame_test

import (
	"bytes"
	"errors"
	"testing"

	"code.hybscloud.com/chunkq/internal/frame"
)

func TestEncodeVerify(t *testing.T) {
	buf := make([]byte, 128)
	data := []byte("zero-copy chunk")
	n, err := frame.Encode(buf, data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != frame.HeaderSize+len(data) {
		t.Fatalf("size: got %d, want %d", n, frame.HeaderSize+len(data))
	}
	got, err := frame.Verify(buf)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("data: got %q, want %q", got, data)
	}
	if &got[0] != &buf[frame.HeaderSize] {
		t.Fatalf("Verify copied the data")
	}
}

func TestVerifyCorrupt(t *testing.T) {
	buf := make([]byte, 64)
	if _, err := frame.Encode(buf, []byte("payload")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	buf[frame.HeaderSize] ^= 0xff
	if _, err := frame.Verify(buf); !errors.Is(err, frame.ErrDigest) {
		t.Fatalf("Verify flipped byte: got %v, want ErrDigest", err)
	}
}

func TestShort(t *testing.T) {
	if _, err := frame.Encode(make([]byte, 10), []byte("payload")); !errors.Is(err, frame.ErrShort) {
		t.Fatalf("Encode short: got %v, want ErrShort", err)
	}
	if _, err := frame.Verify(make([]byte, 10)); !errors.Is(err, frame.ErrShort) {
		t.Fatalf("Verify short: got %v, want ErrShort", err)
	}
	buf := make([]byte, 64)
	frame.Encode(buf, []byte("x"))
	buf[32] = 0xff // Length beyond buffer
	if _, err := frame.Verify(buf); !errors.Is(err, frame.ErrShort) {
		t.Fatalf("Verify bad length: got %v, want ErrShort", err)
	}
}

func TestEmptyData(t *testing.T) {
	buf := make([]byte, frame.HeaderSize)
	if _, err := frame.Encode(buf, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := frame.Verify(buf)
	if err != nil || len(got) != 0 {
		t.Fatalf("Verify: got %q, %v", got, err)
	}
}
