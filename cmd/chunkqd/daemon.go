// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"log/slog"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"

	"code.hybscloud.com/chunkq"
	"code.hybscloud.com/chunkq/config"
	"code.hybscloud.com/chunkq/internal/frame"
)

// stageCapacity bounds the chunks handed from the receiver to the verifier.
const stageCapacity = 64

// Stats is the report printed when the daemon exits.
type Stats struct {
	Segment        string `json:"segment"`
	MonitoringMode string `json:"monitoringMode"`
	Received       uint64 `json:"received"`
	Verified       uint64 `json:"verified"`
	Corrupt        uint64 `json:"corrupt"`
	PoolAvailable  int    `json:"poolAvailable"`
	PoolChunks     int    `json:"poolChunks"`
}

type daemon struct {
	cfg config.Config
	log *slog.Logger
	ch  *chunkq.Channel

	// Receiver → verifier pipeline stage
	stage *lfq.SPSC[chunkq.Chunk]

	received atomix.Uint64
	verified atomix.Uint64
	corrupt  atomix.Uint64
}

func newDaemon(cfg config.Config, log *slog.Logger, a *chunkq.Arena) (*daemon, error) {
	ch, err := layout(cfg).Build(a)
	if err != nil {
		return nil, err
	}
	return &daemon{
		cfg:   cfg,
		log:   log,
		ch:    ch,
		stage: lfq.NewSPSC[chunkq.Chunk](stageCapacity),
	}, nil
}

// serve consumes the queue until ctx is done, then drains the stage and
// returns the stats.
func (d *daemon) serve(ctx context.Context) Stats {
	var wg sync.WaitGroup
	var finished atomix.Bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.verify(&finished)
	}()

	d.receive(ctx)
	finished.StoreRelease(true)
	wg.Wait()

	return Stats{
		Segment:        d.cfg.Segment,
		MonitoringMode: d.cfg.MonitoringMode.String(),
		Received:       d.received.Load(),
		Verified:       d.verified.Load(),
		Corrupt:        d.corrupt.Load(),
		PoolAvailable:  d.ch.Pool.Available(),
		PoolChunks:     d.ch.Pool.NumChunks(),
	}
}

// receive sleeps on the queue semaphore and forwards every popped chunk to
// the stage.
func (d *daemon) receive(ctx context.Context) {
	backoff := iox.Backoff{}
	for {
		c, err := d.ch.Queue.PopWait(ctx)
		if err != nil {
			d.log.Debug("receiver stopped", "err", err)
			return
		}
		d.received.Add(1)
		for d.stage.Enqueue(&c) != nil {
			backoff.Wait()
		}
		backoff.Reset()
	}
}

// verify checks and releases chunks from the stage until finished is set
// and the stage is empty.
func (d *daemon) verify(finished *atomix.Bool) {
	backoff := iox.Backoff{}
	for {
		c, err := d.stage.Dequeue()
		if err != nil {
			if !finished.LoadAcquire() {
				backoff.Wait()
				continue
			}
			if c, err = d.stage.Dequeue(); err != nil {
				return
			}
		}
		backoff.Reset()
		d.check(c)
	}
}

func (d *daemon) check(c chunkq.Chunk) {
	defer c.Release()
	data, err := frame.Verify(c.Payload())
	if err != nil {
		d.corrupt.Add(1)
		d.log.Warn("corrupt chunk", "offset", c.Offset(), "err", err)
		return
	}
	d.verified.Add(1)
	d.log.Debug("chunk", "offset", c.Offset(), "bytes", len(data))
}
