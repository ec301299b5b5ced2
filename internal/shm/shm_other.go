// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !unix

package shm

import "errors"

// ErrInvalidName is returned for names that are empty or contain a path
// separator.
var ErrInvalidName = errors.New("shm: invalid segment name")

// Segment is a mapped shared-memory segment.
type Segment struct{}

// Create is not supported on this platform.
func Create(name string, size int) (*Segment, error) {
	return nil, errors.ErrUnsupported
}

// Open is not supported on this platform.
func Open(name string) (*Segment, error) {
	return nil, errors.ErrUnsupported
}

// Unlink is not supported on this platform.
func Unlink(name string) error {
	return errors.ErrUnsupported
}

// Name returns the segment name.
func (s *Segment) Name() string { return "" }

// Bytes returns the mapped memory.
func (s *Segment) Bytes() []byte { return nil }

// Close unmaps the segment.
func (s *Segment) Close() error { return nil }
