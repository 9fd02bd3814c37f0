// Package domain holds the segment and result types shared by segment sources and result sinks
package domain

import (
	"cmp"
	"fmt"
	"slices"

	"emolens/internal/core/sampling"
)

// Ref names one interview of one session
type Ref struct {
	SessionID   int64
	InterviewID int64
}

// Segment is one diarized stretch of a single speaker, in seconds from media start.
// ID is the results row id when the segment came from the database, 0 otherwise.
type Segment struct {
	ID          int64
	InterviewID int64
	SpeakerID   int
	Part        int
	Start       float64
	End         float64
}

// Window returns the sampling window of the segment
func (s Segment) Window() sampling.Window { return sampling.Window{Start: s.Start, End: s.End} }

// Valid reports whether Start < End with both finite and non-negative
func (s Segment) Valid() bool { return s.Window().Valid() }

// Key identifies where the segment's result is stored
func (s Segment) Key() Key {
	return Key{ID: s.ID, InterviewID: s.InterviewID, SpeakerID: s.SpeakerID, Part: s.Part}
}

// Key addresses one results row; ID wins when set
type Key struct {
	ID          int64
	InterviewID int64
	SpeakerID   int
	Part        int
}

func (k Key) String() string {
	if k.ID > 0 {
		return fmt.Sprintf("results#%d", k.ID)
	}
	return fmt.Sprintf("interview %d speaker %d part %d", k.InterviewID, k.SpeakerID, k.Part)
}

// Column is a results column holding an emotion payload
type Column string

// Columns written by the analysers
const (
	ColumnVideo Column = "video_emotions"
	ColumnAudio Column = "audio_emotions"
)

// Valid reports whether c is a known column
func (c Column) Valid() bool { return c == ColumnVideo || c == ColumnAudio }

// Order keeps speakers in first-seen order and sorts parts ascending within a speaker.
// The sort is stable so equal parts keep their input order.
func Order(segs []Segment) []Segment {
	rank := map[int]int{}
	for _, s := range segs {
		if _, ok := rank[s.SpeakerID]; !ok {
			rank[s.SpeakerID] = len(rank)
		}
	}
	out := slices.Clone(segs)
	slices.SortStableFunc(out, func(a, b Segment) int {
		if c := cmp.Compare(rank[a.SpeakerID], rank[b.SpeakerID]); c != 0 {
			return c
		}
		return cmp.Compare(a.Part, b.Part)
	})
	return out
}
