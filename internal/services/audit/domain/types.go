// Package domain holds the per-sample audit record written for every scored sample
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"emolens/internal/core/emotion"
)

// Sample is one scored sample of one segment of a run
type Sample struct {
	RunID       uuid.UUID
	SessionID   int64
	InterviewID int64
	Mode        string
	SpeakerID   int
	Part        int
	SampleID    string
	Pos         int
	Offset      float64
	StandIn     bool
	Scores      emotion.Scores
	At          time.Time
}

// WriterPort appends audit samples; callers treat failures as best-effort
type WriterPort interface {
	WriteSamples(ctx context.Context, xs []Sample) error
}
