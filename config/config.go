// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config parses the command line of the chunkq daemon.
//
// Parse is a pure function over an argument list: it returns a Config
// value and writes usage or version text only to the writer it is given.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"code.hybscloud.com/chunkq"
)

// Version is reported by -v/--version.
const Version = "0.1.0"

// LogLevel selects the daemon's log verbosity.
type LogLevel int

const (
	LogOff LogLevel = iota
	LogFatal
	LogError
	LogWarn
	LogInfo
	LogDebug
	LogTrace
)

var logLevelNames = [...]string{"off", "fatal", "error", "warn", "info", "debug", "trace"}

// String returns the canonical name of l.
func (l LogLevel) String() string {
	if l < LogOff || l > LogTrace {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return logLevelNames[l]
}

// ParseLogLevel parses a level name. "warning" and "verbose" are accepted
// as aliases of warn and trace.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "warning":
		return LogWarn, nil
	case "verbose":
		return LogTrace, nil
	}
	for i, name := range logLevelNames {
		if strings.EqualFold(s, name) {
			return LogLevel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: log level %q", ErrInvalidValue, s)
}

// Levels beyond the standard slog range.
const (
	slogTrace = slog.LevelDebug - 4
	slogFatal = slog.LevelError + 4
	slogOff   = slog.Level(1 << 30)
)

// SlogLevel maps l onto a slog level threshold. LogOff maps to a level no
// record reaches.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogOff:
		return slogOff
	case LogFatal:
		return slogFatal
	case LogError:
		return slog.LevelError
	case LogWarn:
		return slog.LevelWarn
	case LogInfo:
		return slog.LevelInfo
	case LogDebug:
		return slog.LevelDebug
	default:
		return slogTrace
	}
}

// MonitoringMode controls process liveness monitoring in the daemon.
//
// With MonitoringOn, dead processes are detected and their resources
// reclaimed. With MonitoringOff nothing is monitored, and a restarted
// process cannot register again.
type MonitoringMode int

const (
	MonitoringOn MonitoringMode = iota
	MonitoringOff
)

// String returns "on" or "off".
func (m MonitoringMode) String() string {
	switch m {
	case MonitoringOn:
		return "on"
	case MonitoringOff:
		return "off"
	}
	return fmt.Sprintf("MonitoringMode(%d)", int(m))
}

// ParseMonitoringMode parses "on" or "off".
func ParseMonitoringMode(s string) (MonitoringMode, error) {
	switch strings.ToLower(s) {
	case "on":
		return MonitoringOn, nil
	case "off":
		return MonitoringOff, nil
	}
	return 0, fmt.Errorf("%w: monitoring mode %q", ErrInvalidValue, s)
}

// ParseMode selects how much of the argument list Parse consumes.
type ParseMode int

const (
	ParseAll ParseMode = iota // Every option
	ParseOne                  // Only the first option
)

// Config is the daemon configuration.
type Config struct {
	Run            bool // False when the daemon should exit right away
	LogLevel       LogLevel
	MonitoringMode MonitoringMode

	// Segment layout
	Segment   string
	Capacity  int
	Chunks    int
	ChunkSize int
}

// Default returns the configuration used for options not given.
func Default() Config {
	return Config{
		Run:            true,
		LogLevel:       LogWarn,
		MonitoringMode: MonitoringOn,
		Segment:        "chunkq",
		Capacity:       chunkq.MaxCapacity,
		Chunks:         512,
		ChunkSize:      4096,
	}
}

var (
	// ErrInvalidValue is returned for an option value out of its domain.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrUnexpectedArgument is returned for positional arguments.
	ErrUnexpectedArgument = errors.New("config: unexpected argument")
)

// Parse parses args (without the program name) into a Config.
//
// -h/--help and -v/--version write to out and return a Config with Run
// false. On a parse error the error is returned, Run is false, and the
// error and usage are written to out.
func Parse(args []string, mode ParseMode, out io.Writer) (Config, error) {
	cfg := Default()
	var help, version bool

	fs := flag.NewFlagSet("chunkqd", flag.ContinueOnError)
	fs.SetOutput(out)
	boolVar(fs, &help, "h", "help", "print this help and exit")
	boolVar(fs, &version, "v", "version", "print the version and exit")
	funcVar(fs, "l", "log-level", "log level: off, fatal, error, warn, info, debug, trace (default warn)", func(s string) error {
		l, err := ParseLogLevel(s)
		if err != nil {
			return err
		}
		cfg.LogLevel = l
		return nil
	})
	funcVar(fs, "m", "monitoring-mode", "process monitoring: on, off (default on)", func(s string) error {
		m, err := ParseMonitoringMode(s)
		if err != nil {
			return err
		}
		cfg.MonitoringMode = m
		return nil
	})
	stringVar(fs, &cfg.Segment, "s", "segment", "shared-memory segment name")
	intVar(fs, &cfg.Capacity, "c", "capacity", "queue capacity")
	intVar(fs, &cfg.Chunks, "n", "chunks", "number of pool chunks")
	intVar(fs, &cfg.ChunkSize, "z", "chunk-size", "chunk payload size in bytes")

	if mode == ParseOne {
		args = firstOption(fs, args)
	}
	if err := fs.Parse(args); err != nil {
		cfg.Run = false
		if errors.Is(err, flag.ErrHelp) {
			return cfg, nil
		}
		return cfg, err
	}
	if fs.NArg() > 0 {
		cfg.Run = false
		fmt.Fprintf(out, "unexpected argument %q\n", fs.Arg(0))
		fs.Usage()
		return cfg, fmt.Errorf("%w: %q", ErrUnexpectedArgument, fs.Arg(0))
	}

	switch {
	case help:
		cfg.Run = false
		fs.Usage()
		return cfg, nil
	case version:
		cfg.Run = false
		fmt.Fprintf(out, "chunkqd %s\n", Version)
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		cfg.Run = false
		fmt.Fprintln(out, err)
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the segment layout values.
func (c Config) Validate() error {
	switch {
	case c.Segment == "" || strings.ContainsRune(strings.TrimPrefix(c.Segment, "/"), '/'):
		return fmt.Errorf("%w: segment %q", ErrInvalidValue, c.Segment)
	case c.Capacity <= 0 || c.Capacity > chunkq.MaxCapacity:
		return fmt.Errorf("%w: capacity %d not in [1, %d]", ErrInvalidValue, c.Capacity, chunkq.MaxCapacity)
	case c.Chunks <= 0:
		return fmt.Errorf("%w: chunks %d", ErrInvalidValue, c.Chunks)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size %d", ErrInvalidValue, c.ChunkSize)
	}
	return nil
}

// firstOption returns the leading option of args together with its value
// argument, if it takes one.
func firstOption(fs *flag.FlagSet, args []string) []string {
	if len(args) == 0 {
		return args
	}
	name := strings.TrimLeft(args[0], "-")
	if name == args[0] || strings.Contains(name, "=") || len(args) < 2 {
		return args[:1]
	}
	if f := fs.Lookup(name); f != nil {
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			return args[:1]
		}
		return args[:2]
	}
	return args[:1]
}

func boolVar(fs *flag.FlagSet, p *bool, short, long, usage string) {
	fs.BoolVar(p, short, false, usage)
	fs.BoolVar(p, long, false, usage)
}

func stringVar(fs *flag.FlagSet, p *string, short, long, usage string) {
	fs.StringVar(p, short, *p, usage)
	fs.StringVar(p, long, *p, usage)
}

func intVar(fs *flag.FlagSet, p *int, short, long, usage string) {
	fs.IntVar(p, short, *p, usage)
	fs.IntVar(p, long, *p, usage)
}

func funcVar(fs *flag.FlagSet, short, long, usage string, fn func(string) error) {
	fs.Func(short, usage, fn)
	fs.Func(long, usage, fn)
}
