// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package frame lays out the payload of a demo chunk: a SHA3-256 digest
// and a length prefix followed by the data, so a consumer can verify that
// a chunk crossed the shared segment intact.
//
//	[0:32]  SHA3-256 of data
//	[32:40] len(data), little endian
//	[40:]   data
package frame

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/sha3"
)

// HeaderSize is the number of bytes preceding the data.
const HeaderSize = 40

var (
	// ErrShort is returned when a buffer cannot hold the frame.
	ErrShort = errors.New("frame: buffer too short")

	// ErrDigest is returned when the data does not match its digest.
	ErrDigest = errors.New("frame: digest mismatch")
)

// Encode writes data framed into dst in place and returns the frame size.
func Encode(dst, data []byte) (int, error) {
	n := HeaderSize + len(data)
	if len(dst) < n {
		return 0, ErrShort
	}
	copy(dst[HeaderSize:], data)
	sum := sha3.Sum256(dst[HeaderSize:n])
	copy(dst[:32], sum[:])
	binary.LittleEndian.PutUint64(dst[32:40], uint64(len(data)))
	return n, nil
}

// Verify checks the frame in src and returns its data without copying.
func Verify(src []byte) ([]byte, error) {
	if len(src) < HeaderSize {
		return nil, ErrShort
	}
	n := binary.LittleEndian.Uint64(src[32:40])
	if n > uint64(len(src)-HeaderSize) {
		return nil, ErrShort
	}
	data := src[HeaderSize : HeaderSize+int(n)]
	sum := sha3.Sum256(data)
	if [32]byte(src[:32]) != sum {
		return nil, ErrDigest
	}
	return data, nil
}
