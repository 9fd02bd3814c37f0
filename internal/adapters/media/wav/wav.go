// Package wav exposes a WAV file as a seekable mono PCM stream. Units are sample offsets,
// and unit i decodes the window of interval seconds starting at sample i, so a sampled
// window starts exactly at its segment start. Decoding is done by beep; every window is
// mixed down to mono float32 in [-1, 1].
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"emolens/internal/core/sampling"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Stream reads windows of Window samples starting at any sample offset
type Stream struct {
	s      beep.StreamSeekCloser
	format beep.Format
	window int
	buf    [][2]float64
	pos    int
	end    int
}

var (
	_ sampling.Stream  = (*Stream)(nil)
	_ sampling.Skipper = (*Stream)(nil)
	_ sampling.Limiter = (*Stream)(nil)
)

// Open decodes path with windows of interval seconds
func Open(path string, interval float64) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav: open: %w", err)
	}
	st, err := New(f, interval)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return st, nil
}

// New decodes r; r is closed by Close when it implements io.Closer
func New(r io.ReadSeeker, interval float64) (*Stream, error) {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return nil, fmt.Errorf("wav: interval must be > 0, got %v", interval)
	}
	s, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("wav: decode: %w", err)
	}
	window := max(1, int(math.Round(interval*float64(format.SampleRate))))
	return &Stream{
		s:      s,
		format: format,
		window: window,
		buf:    make([][2]float64, window),
		end:    s.Len(),
	}, nil
}

// Format returns the decoded WAV format
func (w *Stream) Format() beep.Format { return w.format }

// Window returns the number of samples decoded per unit
func (w *Stream) Window() int { return w.window }

// Units returns the number of sample offsets in the file
func (w *Stream) Units() int { return w.s.Len() }

// Rate is the sample rate; one unit per sample
func (w *Stream) Rate() float64 { return float64(w.format.SampleRate) }

// Limit clips windows so none reads at or past sample end. Values outside the file reset
// the limit to the file length.
func (w *Stream) Limit(end int) {
	if end <= 0 || end > w.s.Len() {
		end = w.s.Len()
	}
	w.end = end
}

// Seek moves to sample pos. Positions past the end leave the stream at EOF.
func (w *Stream) Seek(pos int) error {
	if pos < 0 {
		return fmt.Errorf("wav: negative seek %d", pos)
	}
	if err := w.s.Seek(min(pos, w.s.Len())); err != nil {
		return fmt.Errorf("wav: seek %d: %w", pos, err)
	}
	w.pos = pos
	return nil
}

// Skip passes over n units without decoding
func (w *Stream) Skip(n int) error {
	if n < 0 {
		return fmt.Errorf("wav: negative skip %d", n)
	}
	w.pos += n
	return nil
}

// Next returns the window starting at the current unit and advances by one unit.
// Windows that reach the limit or the end of file are shorter.
func (w *Stream) Next() (sampling.Unit, error) {
	pos := w.pos
	if pos >= w.end {
		return sampling.Unit{}, io.EOF
	}
	if w.s.Position() != pos {
		if err := w.s.Seek(pos); err != nil {
			return sampling.Unit{}, fmt.Errorf("wav: seek %d: %w", pos, err)
		}
	}
	n := readFull(w.s, w.buf[:min(w.window, w.end-pos)])
	if n == 0 {
		if err := w.s.Err(); err != nil {
			return sampling.Unit{}, fmt.Errorf("wav: read: %w", err)
		}
		return sampling.Unit{}, io.EOF
	}
	w.pos++

	mono := make([]float32, n)
	for i := range n {
		v := (w.buf[i][0] + w.buf[i][1]) / 2
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return sampling.Unit{}, fmt.Errorf("wav: window at %d sample %d: %w", pos, i, sampling.ErrUndecodable)
		}
		mono[i] = float32(v)
	}
	return sampling.Unit{Pos: pos, Audio: mono, SampleRate: int(w.format.SampleRate)}, nil
}

// Close releases the decoder and the underlying reader
func (w *Stream) Close() error {
	if w == nil || w.s == nil {
		return nil
	}
	err := w.s.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// readFull keeps streaming until buf is full or the streamer is drained
func readFull(s beep.Streamer, buf [][2]float64) int {
	total := 0
	for total < len(buf) {
		n, ok := s.Stream(buf[total:])
		total += n
		if !ok || n == 0 {
			break
		}
	}
	return total
}
