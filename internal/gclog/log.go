// Package gclog wires the collector's gc-dump/gc-dev-verbose/gc-stats
// tunables to structured logging instead of bare println calls.
package gclog

import (
	"time"

	"go.uber.org/zap"

	"github.com/swiperlang/swipergc/internal/gcconfig"
)

// Logger gates zap logging behind the gc-dump and gc-dev-verbose tunables,
// so the hot allocation path never pays for log-message construction when
// neither flag is set.
type Logger struct {
	flags gcconfig.Flags
	zap   *zap.Logger
}

// New builds a Logger. base may be nil, in which case a no-op zap logger
// is used, safe for tests and for embedders that don't care about GC
// logging at all.
func New(flags gcconfig.Flags, base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{flags: flags, zap: base}
}

// Dump logs a one-line cycle summary, gated on gc-dump.
func (l *Logger) Dump(msg string, fields ...zap.Field) {
	if !l.flags.GCDump {
		return
	}
	l.zap.Info(msg, fields...)
}

// Phase logs a per-phase line, gated on gc-dev-verbose.
func (l *Logger) Phase(msg string) {
	if !l.flags.GCDevVerbose {
		return
	}
	l.zap.Debug(msg)
}

// Cycle logs a completed collection cycle's duration, gated on gc-dump,
// with the duration attached as a structured field rather than formatted
// into the message.
func (l *Logger) Cycle(reason string, dur time.Duration) {
	l.Dump("gc: collect garbage",
		zap.String("reason", reason),
		zap.Duration("duration", dur),
	)
}

// StatsEnabled reports whether timers should run at all (gc-dump also
// implies timing, since Cycle needs a duration to log).
func (l *Logger) StatsEnabled() bool {
	return l.flags.GCStats || l.flags.GCDump
}
