// Package sampling picks the units of a media stream that get scored inside a time window.
//
// A stream is a sequence of units (video frames, audio sample offsets) at a constant
// rate. For a window [start,end) the sampler scores one unit every step units starting at
// floor(start*rate) where step = max(1, round(rate*interval)).
package sampling

import (
	"errors"
	"fmt"
	"image"
	"io"
	"iter"
	"math"

	perr "emolens/internal/platform/errors"
)

// ErrUndecodable marks a unit that failed to decode while the stream can go on
var ErrUndecodable = errors.New("sampling: undecodable unit")

// Unit is one decoded piece of media. Exactly one of Image or Audio is set.
type Unit struct {
	Pos        int
	Image      image.Image
	Audio      []float32
	SampleRate int
}

// Stream is a seekable, sequential unit reader
type Stream interface {
	// Rate is units per second
	Rate() float64
	// Seek positions the stream so the next call to Next returns unit pos
	Seek(pos int) error
	// Next returns io.EOF at end of stream and an error wrapping ErrUndecodable for a bad unit
	Next() (Unit, error)
}

// Skipper is implemented by streams that can pass over units without decoding them.
// The sampler skips between boundaries instead of reading, so no stand-ins are taken.
type Skipper interface {
	Skip(n int) error
}

// Limiter is implemented by streams whose units extend over later positions, such as
// audio windows. The sampler sets the exclusive end unit of the window before seeking.
type Limiter interface {
	Limit(end int)
}

// Window is a [Start,End) range in seconds from stream start
type Window struct {
	Start float64
	End   float64
}

// Valid reports whether the window is a finite non-empty range
func (w Window) Valid() bool {
	return !math.IsNaN(w.Start) && !math.IsInf(w.Start, 0) &&
		!math.IsNaN(w.End) && !math.IsInf(w.End, 0) &&
		w.Start >= 0 && w.Start < w.End
}

// Sample is one scored instant inside a window
type Sample struct {
	Index  int
	Pos    int
	Offset float64
	// StandIn marks a unit scored in place of an undecodable or missing boundary unit
	StandIn bool
	Unit    Unit
}

// StreamError reports a failed seek or read; the iteration that yielded it has stopped
type StreamError struct {
	Op  string
	Pos int
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("sampling: %s at unit %d: %v", e.Op, e.Pos, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

func streamErr(op string, pos int, err error) error {
	return perr.Wrap(&StreamError{Op: op, Pos: pos, Err: err}, perr.ErrorCodeStreamOpen, "sampling")
}

// Sampler holds the sampling interval in seconds
type Sampler struct {
	Interval float64
}

// New returns a sampler for interval seconds
func New(interval float64) Sampler { return Sampler{Interval: interval} }

// Step returns the number of units between scored samples at rate
func (s Sampler) Step(rate float64) int {
	st := int(math.Round(rate * s.Interval))
	if st < 1 {
		return 1
	}
	return st
}

// Bounds returns the first unit, the exclusive end unit and the step for w at rate
func (s Sampler) Bounds(w Window, rate float64) (start, end, step int) {
	start = int(math.Floor(w.Start * rate))
	end = int(math.Floor(w.End * rate))
	return max(start, 0), end, s.Step(rate)
}

// Positions lists the boundary units of w at rate
func (s Sampler) Positions(w Window, rate float64) []int {
	if !validRate(rate) {
		return nil
	}
	start, end, step := s.Bounds(w, rate)
	var out []int
	for p := start; p < end; p += step {
		out = append(out, p)
	}
	return out
}

// Samples lazily yields the scored samples of w. Each iteration seeks to the window start
// and reads forward, so the sequence can be ranged over again. A boundary unit that fails
// to decode is replaced by the latest decoded unit since the previous boundary; a stream
// that ends early stops the sequence quietly. Seek and read failures are yielded once as
// a StreamError. Streams that implement Skipper are only read at boundaries. Not safe for
// concurrent iteration over one stream.
func (s Sampler) Samples(st Stream, w Window) iter.Seq2[Sample, error] {
	return func(yield func(Sample, error) bool) {
		rate := st.Rate()
		if !validRate(rate) {
			yield(Sample{}, streamErr("rate", 0, fmt.Errorf("invalid rate %v", rate)))
			return
		}
		start, end, step := s.Bounds(w, rate)
		if start >= end {
			return
		}
		if l, ok := st.(Limiter); ok {
			l.Limit(end)
		}
		skip, _ := st.(Skipper)
		if err := st.Seek(start); err != nil {
			yield(Sample{}, streamErr("seek", start, err))
			return
		}

		var (
			next    = start
			index   int
			pending *Unit
		)
		emit := func(pos int, u Unit, standIn bool) bool {
			smp := Sample{Index: index, Pos: pos, Offset: float64(pos) / rate, StandIn: standIn, Unit: u}
			index++
			return yield(smp, nil)
		}

		for pos := start; pos < end; pos++ {
			if skip != nil && pos < next {
				n := min(next, end) - pos
				if err := skip.Skip(n); err != nil {
					yield(Sample{}, streamErr("skip", pos, err))
					return
				}
				if pos += n; pos >= end {
					return
				}
			}
			u, err := st.Next()
			if errors.Is(err, io.EOF) {
				if pending != nil && next < end {
					emit(next, *pending, true)
				}
				return
			}
			if err != nil && !errors.Is(err, ErrUndecodable) {
				yield(Sample{}, streamErr("read", pos, err))
				return
			}
			decoded := err == nil

			if pos != next {
				if decoded {
					pending = &u
				}
				continue
			}

			next += step
			switch {
			case decoded:
				pending = nil
				if !emit(pos, u, false) {
					return
				}
			case pending != nil:
				stand := *pending
				pending = nil
				if !emit(pos, stand, true) {
					return
				}
			}
		}
	}
}

func validRate(r float64) bool { return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r) }
