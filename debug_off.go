// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !chunkq_debug

package chunkq

import "log/slog"

// debugEnabled is false in release builds; logging and quiescence
// assertions compile away.
const debugEnabled = false

// SetLogger sets the logger used for arena, pool and queue lifecycle events.
// Release builds do not log; build with -tags chunkq_debug to enable it.
func SetLogger(l *slog.Logger) {}

func logDebug(msg string, args ...any) {}

func logInfo(msg string, args ...any) {}
