// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Dir is the directory holding segment files.
var Dir = defaultDir()

func defaultDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// ErrInvalidName is returned for names that are empty or contain a path
// separator.
var ErrInvalidName = errors.New("shm: invalid segment name")

// Segment is a mapped shared-memory segment.
type Segment struct {
	name string
	mem  []byte
}

// Create creates the segment name with size bytes and maps it.
// Fails if a segment with that name already exists.
func Create(name string, size int) (*Segment, error) {
	path, err := pathOf(name)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		os.Remove(path)
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}
	return &Segment{name: name, mem: mem}, nil
}

// Open maps the existing segment name in full.
func Open(name string) (*Segment, error) {
	path, err := pathOf(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("shm: segment %s is empty", name)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}
	return &Segment{name: name, mem: mem}, nil
}

// Unlink removes the segment name. Existing mappings stay valid.
func Unlink(name string) error {
	path, err := pathOf(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Name returns the segment name.
func (s *Segment) Name() string {
	return s.name
}

// Bytes returns the mapped memory. It is invalid after Close.
func (s *Segment) Bytes() []byte {
	return s.mem
}

// Close unmaps the segment.
func (s *Segment) Close() error {
	if s.mem == nil {
		return nil
	}
	mem := s.mem
	s.mem = nil
	return unix.Munmap(mem)
}

func pathOf(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.ContainsRune(name, '/') || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return filepath.Join(Dir, name), nil
}
