// Package logger provides a zerolog wrapper with opinionated defaults and
// run-scoped logging support
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"emolens/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the logger
type Options struct {
	Level        string
	Format       string
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv builds Options using the logging-free raw config view (no cycles)
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       rc.Lower("LEVEL", "debug"),
		Format:      rc.Lower("FORMAT", "console"),
		Service:     rc.String("SERVICE", "emolens"),
		Component:   rc.String("COMPONENT", ""),
		WithCaller:  rc.Bool("CALLER", false),
		SampleEvery: rc.Int("SAMPLE_EVERY", 0),
	}
}

var (
	once    sync.Once
	root    atomic.Pointer[Logger]
	rootOut atomic.Pointer[io.Writer] // shared with run logs
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Get returns the root logger, initialising it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Init builds the root logger. Only the first call has any effect.
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		l, w := build(opt)
		rootOut.Store(&w)
		root.Store(l)
	})
}

// build returns the configured logger and the writer it emits to
func build(opt Options) (*Logger, io.Writer) {
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	fields := map[string]any{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fields["go_version"] = bi.GoVersion
	}
	for k, v := range opt.StaticFields {
		fields[k] = v
	}
	if opt.Service != "" {
		fields["service"] = opt.Service
	}
	if opt.Component != "" {
		fields["component"] = opt.Component
	}

	zc := zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp().Fields(fields)
	if opt.WithCaller {
		zc = zc.Caller()
	}
	l := zc.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return &l, w
}

// ParseLevel maps a level name to zerolog, accepting "warning" for warn.
// Blank or unknown names give debug.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.DebugLevel
	}
	return lvl
}

type ctxKey struct{ name string }

var (
	keyLogger      = ctxKey{"logger"}
	keyRunID       = ctxKey{"run_id"}
	keySessionID   = ctxKey{"session_id"}
	keyInterviewID = ctxKey{"interview_id"}
)

// WithRun annotates ctx with the identifiers of one analysis run
func WithRun(ctx context.Context, runID, sessionID, interviewID string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, keyRunID, runID)
	}
	if sessionID != "" {
		ctx = context.WithValue(ctx, keySessionID, sessionID)
	}
	if interviewID != "" {
		ctx = context.WithValue(ctx, keyInterviewID, interviewID)
	}
	return ctx
}

// RunID returns the run id carried by ctx, if any
func RunID(ctx context.Context) string {
	s, _ := ctx.Value(keyRunID).(string)
	return s
}

// WithLogger makes l the base logger for C(ctx) in everything downstream of ctx
func WithLogger(ctx context.Context, l *Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, l)
}

// C returns a child logger enriched from ctx (run_id, session_id, interview_id).
// The base is the logger attached with WithLogger, or the root logger.
func C(ctx context.Context) *Logger {
	l, _ := ctx.Value(keyLogger).(*Logger)
	if l == nil {
		l = Get()
	}
	builder := l.With()
	for _, k := range []ctxKey{keyRunID, keySessionID, keyInterviewID} {
		if s, ok := ctx.Value(k).(string); ok && s != "" {
			builder = builder.Str(k.name, s)
		}
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
