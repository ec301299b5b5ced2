// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunkq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Pool.Get: every chunk of the pool is in use
// For Semaphore.TryWait: the semaphore count is zero
//
// Push and Pop on a [ChunkQueue] report full and empty as plain boolean
// results instead, keeping the hot path free of error values.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

var (
	// ErrSemaphoreAlreadySet is returned by AttachSemaphore when the queue
	// storage already has a semaphore. The existing attachment is kept.
	ErrSemaphoreAlreadySet = errors.New("chunkq: semaphore already set")

	// ErrForeignArena is returned when an object from one arena is handed
	// to an object living in another.
	ErrForeignArena = errors.New("chunkq: object belongs to another arena")

	// ErrArenaTooSmall is returned when a region cannot hold the arena header.
	ErrArenaTooSmall = errors.New("chunkq: arena region too small")

	// ErrArenaMisaligned is returned when a region is not 8-byte aligned.
	ErrArenaMisaligned = errors.New("chunkq: arena region misaligned")

	// ErrArenaCorrupt is returned when attaching to a region that does not
	// carry a valid arena header.
	ErrArenaCorrupt = errors.New("chunkq: arena header corrupt")

	// ErrArenaExhausted is returned when the arena has no room left.
	ErrArenaExhausted = errors.New("chunkq: arena exhausted")

	// ErrBadOffset is returned when an offset does not name an object of the
	// expected kind inside the arena.
	ErrBadOffset = errors.New("chunkq: bad offset")

	// ErrTimeout is returned by Semaphore.TimedWait when the wait expires.
	ErrTimeout = errors.New("chunkq: timeout")
)

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
