// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command chunkqd creates a shared-memory chunk channel and consumes it.
//
// It lays out a chunk pool, a queue and a wake-up semaphore in a named
// segment, then pops chunks until interrupted, verifying each payload
// frame. On exit it prints a JSON stats report and removes the segment.
//
// Usage:
//
//	chunkqd [-l level] [-m on|off] [-s segment] [-c capacity] [-n chunks] [-z chunk-size]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"code.hybscloud.com/chunkq"
	"code.hybscloud.com/chunkq/config"
	"github.com/sugawarayuuta/sonnet"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, config.ParseAll, stderr)
	if err != nil {
		return 2
	}
	if !cfg.Run {
		return 0
	}
	log := newLogger(cfg.LogLevel, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := createArena(cfg, log)
	if err != nil {
		log.Error("create segment", "segment", cfg.Segment, "err", err)
		return 1
	}
	defer func() {
		a.Close()
		if err := chunkq.UnlinkSharedArena(cfg.Segment); err != nil {
			log.Warn("unlink segment", "segment", cfg.Segment, "err", err)
		}
	}()

	d, err := newDaemon(cfg, log, a)
	if err != nil {
		log.Error("build channel", "err", err)
		return 1
	}
	log.Info("ready",
		"segment", cfg.Segment,
		"capacity", cfg.Capacity,
		"chunks", cfg.Chunks,
		"chunkSize", cfg.ChunkSize,
		"monitoring", cfg.MonitoringMode.String(),
	)

	stats := d.serve(ctx)
	report, err := sonnet.Marshal(stats)
	if err != nil {
		log.Error("encode stats", "err", err)
		return 1
	}
	fmt.Fprintln(stdout, string(report))
	return 0
}

func newLogger(level config.LogLevel, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.SlogLevel()}))
}

// createArena creates the shared segment sized for cfg. A segment left
// behind by a previous run is removed and created again.
func createArena(cfg config.Config, log *slog.Logger) (*chunkq.Arena, error) {
	size := layout(cfg).Size()
	a, err := chunkq.CreateSharedArena(cfg.Segment, size)
	if errors.Is(err, os.ErrExist) {
		log.Warn("removing stale segment", "segment", cfg.Segment)
		if err := chunkq.UnlinkSharedArena(cfg.Segment); err != nil {
			return nil, err
		}
		a, err = chunkq.CreateSharedArena(cfg.Segment, size)
	}
	return a, err
}

func layout(cfg config.Config) *chunkq.Builder {
	return chunkq.New(cfg.Capacity).Pool(cfg.ChunkSize, cfg.Chunks).Semaphore()
}
