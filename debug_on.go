// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build chunkq_debug

package chunkq

import (
	"log/slog"
	"os"
)

// debugEnabled turns on lifecycle logging and quiescence assertions.
const debugEnabled = true

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

// SetLogger sets the logger used for arena, pool and queue lifecycle events.
func SetLogger(l *slog.Logger) {
	if l == nil {
		panic("chunkq: nil logger")
	}
	logger = l
}

func logDebug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

func logInfo(msg string, args ...any) {
	logger.Info(msg, args...)
}
