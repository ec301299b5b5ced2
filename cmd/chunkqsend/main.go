// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command chunkqsend pushes framed messages into a channel created by
// chunkqd.
//
// Usage:
//
//	chunkqsend [-s segment] [-n count] [-t timeout] [-l level] [message...]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/chunkq"
	"code.hybscloud.com/chunkq/config"
	"code.hybscloud.com/chunkq/internal/frame"
)

var errTooLarge = errors.New("message does not fit a chunk")

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("chunkqsend", flag.ContinueOnError)
	fs.SetOutput(stderr)
	segment := fs.String("s", config.Default().Segment, "shared memory segment name")
	count := fs.Int("n", 1, "number of messages to send")
	timeout := fs.Duration("t", 5*time.Second, "give up when the pool or queue stays full this long")
	level := fs.String("l", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	lvl, err := config.ParseLogLevel(*level)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl.SlogLevel()}))

	msg := []byte(strings.Join(fs.Args(), " "))
	if len(msg) == 0 {
		msg = []byte("hello")
	}

	a, err := chunkq.OpenSharedArena(*segment)
	if err != nil {
		log.Error("open segment", "segment", *segment, "err", err)
		return 1
	}
	defer a.Close()
	ch, err := chunkq.Open(a)
	if err != nil {
		log.Error("open channel", "err", err)
		return 1
	}

	for i := range *count {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		err := send(ctx, ch, msg)
		cancel()
		if err != nil {
			log.Error("send", "seq", i, "err", err)
			return 1
		}
		log.Debug("sent", "seq", i, "bytes", len(msg))
	}
	log.Info("done", "count", *count, "queued", ch.Queue.Size())
	return 0
}

// send frames msg into a pool chunk and pushes it. It backs off while the
// pool is exhausted or the queue is full.
func send(ctx context.Context, ch *chunkq.Channel, msg []byte) error {
	if frame.HeaderSize+len(msg) > ch.Pool.ChunkSize() {
		return errTooLarge
	}

	var backoff iox.Backoff
	c, err := ch.Pool.Get()
	for chunkq.IsWouldBlock(err) {
		if err := ctx.Err(); err != nil {
			return err
		}
		backoff.Wait()
		c, err = ch.Pool.Get()
	}
	if err != nil {
		return err
	}
	if _, err := frame.Encode(c.Payload(), msg); err != nil {
		c.Release()
		return err
	}

	backoff.Reset()
	for !ch.Queue.Push(c) {
		if err := ctx.Err(); err != nil {
			c.Release()
			return err
		}
		backoff.Wait()
	}
	return nil
}
