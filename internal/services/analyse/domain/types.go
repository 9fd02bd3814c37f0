// Package domain holds the job, state and report types of an analysis run
package domain

import (
	"errors"
	"strconv"

	"github.com/google/uuid"

	"emolens/internal/core/emotion"
	perr "emolens/internal/platform/errors"
	segdom "emolens/internal/services/segments/domain"
)

// Mode selects which media track is analysed
type Mode string

// Modes
const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool { return m == ModeVideo || m == ModeAudio }

// Column is the results column a mode writes into
func (m Mode) Column() segdom.Column {
	if m == ModeAudio {
		return segdom.ColumnAudio
	}
	return segdom.ColumnVideo
}

// Reduce says how a segment's samples become the persisted payload
type Reduce string

// Reductions
const (
	// ReduceSamples persists every sample's distribution keyed by sample id
	ReduceSamples Reduce = "samples"
	// ReduceMean persists the mean distribution of the segment
	ReduceMean Reduce = "mean"
)

// Valid reports whether r is a known reduction
func (r Reduce) Valid() bool { return r == ReduceSamples || r == ReduceMean }

// Apply reduces an aggregate and normalizes the outcome
func (r Reduce) Apply(g emotion.Aggregate) any {
	if r == ReduceMean {
		return emotion.Normalize(g.Mean())
	}
	return g.Normalized()
}

// Job is one analysis request
type Job struct {
	RunID       uuid.UUID
	SessionID   int64
	InterviewID int64
	Mode        Mode
}

// Ref is the interview the job targets
func (j Job) Ref() segdom.Ref {
	return segdom.Ref{SessionID: j.SessionID, InterviewID: j.InterviewID}
}

// Validate checks ids and mode
func (j Job) Validate() error {
	switch {
	case j.SessionID <= 0:
		return perr.WithField(perr.InvalidArgf("analyse: session id must be positive"), "session_id")
	case j.InterviewID <= 0:
		return perr.WithField(perr.InvalidArgf("analyse: interview id must be positive"), "interview_id")
	case !j.Mode.Valid():
		return perr.WithField(perr.InvalidArgf("analyse: unknown mode %q", j.Mode), "mode")
	}
	return nil
}

// Session renders the session id as it appears in object keys
func (j Job) Session() string { return strconv.FormatInt(j.SessionID, 10) }

// Interview renders the interview id as it appears in object keys
func (j Job) Interview() string { return strconv.FormatInt(j.InterviewID, 10) }

// State is the lifecycle of one segment inside a run
type State uint8

// States, in order; Failed is reachable from Sampling and Scoring
const (
	StatePending State = iota
	StateSampling
	StateScoring
	StateAggregating
	StateDone
	StateFailed
)

var stateNames = [...]string{"PENDING", "SAMPLING", "SCORING", "AGGREGATING", "DONE", "FAILED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "STATE(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// SegmentReport is the outcome of one segment
type SegmentReport struct {
	Segment segdom.Segment
	State   State
	Scored  int
	Skipped int
	// Payload is what was (or would have been) persisted; nil unless the segment reached DONE
	Payload []byte
	Err     error
}

// RunReport summarizes a run
type RunReport struct {
	Job      Job
	Segments []SegmentReport
}

// Count returns the number of segments in state s
func (r RunReport) Count(s State) int {
	n := 0
	for _, sr := range r.Segments {
		if sr.State == s {
			n++
		}
	}
	return n
}

// Samples returns scored and skipped sample totals
func (r RunReport) Samples() (scored, skipped int) {
	for _, sr := range r.Segments {
		scored += sr.Scored
		skipped += sr.Skipped
	}
	return scored, skipped
}

// ErrNoSegmentDone is returned when segments existed and none reached DONE
var ErrNoSegmentDone = errors.New("analyse: no segment completed")
