// Package logging wraps zerolog behind the small level-named surface the
// rest of this codebase calls, so no component needs to import zerolog
// directly or depend on a package-level logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin, concurrency-safe facade over a zerolog.Logger.
// One instance is constructed in cmd/smallfile and passed down by
// dependency injection to every component that needs to report progress.
type Logger struct {
	zl zerolog.Logger
}

// Options controls where and how log output is rendered.
type Options struct {
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
	// Pretty enables zerolog's human-readable console writer instead of
	// raw JSON lines. Meant for interactive terminal use; JSON is the
	// default so coordinator/worker output can be collected and parsed.
	Pretty bool
	// Debug enables debug-level output.
	Debug bool
	// Fields are static key/value pairs attached to every line, used to
	// tag worker/host identity (worker_id, host) on every line a
	// per-worker logger emits.
	Fields map[string]string
}

// New builds a Logger from Options.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	for k, v := range opts.Fields {
		ctx = ctx.Str(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// With returns a child Logger with additional static fields merged in,
// used to scope a logger to one worker or one host without mutating
// the parent, so no component needs a package-global logger.
func (l *Logger) With(fields map[string]string) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Str(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debugf(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zl.Error().Msgf(format, args...) }

// Err logs an error with its message attached as a structured field,
// rather than interpolating it into the message string.
func (l *Logger) Err(err error, msg string) {
	l.zl.Error().Err(err).Msg(msg)
}

// Zerolog exposes the underlying logger for components that want structured fields beyond the Printf-style convenience methods.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}
