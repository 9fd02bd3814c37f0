package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emolens/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one statement round trip
type QueryEvent struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer receives an event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// maxArgLen bounds how much of a bind argument reaches the log; result payloads are large JSON
const maxArgLen = 160

// Tracer logs every statement through root, regardless of the root level.
// Slow statements and failures log at warn.
func Tracer(root logger.Logger) QueryTracer {
	return logTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type logTracer struct{ log logger.Logger }

func (z logTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow || ev.Err != nil {
		evt = z.log.Warn()
	}
	if id := logger.RunID(ctx); id != "" {
		evt = evt.Str("run_id", id)
	}
	evt.Dur("elapsed_ms", ev.Elapsed).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", clipArgs(ev.Args)).
		Err(ev.Err).
		Msg("pg query")
}

func clipArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			out[i] = clip(v)
		case []byte:
			out[i] = clip(string(v))
		default:
			out[i] = a
		}
	}
	return out
}

func clip(s string) string {
	if len(s) <= maxArgLen {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:maxArgLen], len(s))
}

// compact folds every whitespace run to one space and trims the ends
func compact(s string) string { return strings.Join(strings.Fields(s), " ") }
