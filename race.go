// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package chunkq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests whose slot payloads are guarded
// by sequence numbers, which the detector reports as false positives.
const RaceEnabled = true
