// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package chunkq

import (
	"time"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
)

// futexWait polls *addr with adaptive backoff while it equals val, for at
// most d.
func futexWait(addr *uint32, val uint32, d time.Duration) {
	word := (*atomix.Uint32)(unsafe.Pointer(addr))
	deadline := time.Now().Add(d)
	var bo iox.Backoff
	for word.LoadAcquire() == val && time.Now().Before(deadline) {
		bo.Wait()
	}
}

// futexWake is a no-op: pollers observe the count change themselves.
func futexWake(addr *uint32, n int) {}
