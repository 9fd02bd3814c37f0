package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"emolens/internal/platform/config/raw"

	"github.com/rs/zerolog"
)

// Uploader persists a finished run log somewhere durable (object storage in production)
type Uploader interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// DefaultRunLogMax caps a single run log buffer; RUNLOG_MAX_BYTES overrides it
const DefaultRunLogMax = 8 << 20

// RunLog is a buffered log sink scoped to one run. Every line written through its
// logger also reaches the root writer. The buffer is shipped with Flush when the run ends.
type RunLog struct {
	key string
	max int

	mu      sync.Mutex
	buf     bytes.Buffer
	dropped int

	log Logger
}

// RunLogName builds a timestamped object name like "videoLog_2024_03_01_14.05.09"
func RunLogName(prefix string, t time.Time) string {
	return prefix + "Log_" + t.UTC().Format("2006_01_02_15.04.05")
}

// NewRunLog returns a run log that will be uploaded under key
func NewRunLog(key string) *RunLog {
	r := &RunLog{
		key: key,
		max: raw.New().Prefix("RUNLOG_").Int("MAX_BYTES", DefaultRunLogMax),
	}

	base := Get()
	var out io.Writer = r
	if w := rootOut.Load(); w != nil {
		out = zerolog.MultiLevelWriter(*w, r)
	}
	// a run log keeps every line; sampling only applies to the root stream
	r.log = base.Output(out).Sample(nil)
	return r
}

// Key returns the object key the log is flushed to
func (r *RunLog) Key() string { return r.key }

// Logger returns the run logger
func (r *RunLog) Logger() *Logger { return &r.log }

// WithContext attaches the run logger so logger.C(ctx) writes into this run log
func (r *RunLog) WithContext(ctx context.Context) context.Context {
	return WithLogger(ctx, &r.log)
}

// Write implements io.Writer; lines past the cap are counted and dropped
func (r *RunLog) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && r.buf.Len()+len(p) > r.max {
		r.dropped++
		return len(p), nil
	}
	return r.buf.Write(p)
}

// Len returns the buffered size in bytes
func (r *RunLog) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}

// Flush uploads the buffered lines and resets the buffer. An empty buffer uploads nothing.
func (r *RunLog) Flush(ctx context.Context, up Uploader) error {
	r.mu.Lock()
	if r.buf.Len() == 0 {
		r.mu.Unlock()
		return nil
	}
	if r.dropped > 0 {
		fmt.Fprintf(&r.buf, "{\"level\":\"warn\",\"message\":\"run log truncated\",\"dropped_lines\":%d}\n", r.dropped)
	}
	body := bytes.Clone(r.buf.Bytes())
	r.buf.Reset()
	r.dropped = 0
	r.mu.Unlock()

	if up == nil {
		return nil
	}
	return up.Put(ctx, r.key, bytes.NewReader(body), int64(len(body)), "text/plain")
}
