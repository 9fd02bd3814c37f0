package domain

import (
	"context"

	"emolens/internal/core/emotion"
	"emolens/internal/core/sampling"
)

// Predictor scores one media unit; implementations bound their own concurrency
type Predictor interface {
	Predict(ctx context.Context, u sampling.Unit) (emotion.RawPrediction, error)
	Vocabulary() emotion.Vocabulary
}

// Stream is a positioned media stream opened for one segment
type Stream interface {
	sampling.Stream
	Close() error
}

// Source is the run-scoped media of one job. Close releases temp files.
type Source interface {
	Stream(ctx context.Context) (Stream, error)
	Close() error
}

// MediaPort opens the media of a job
type MediaPort interface {
	Open(ctx context.Context, job Job) (Source, error)
}

// RunnerPort runs one job end to end
type RunnerPort interface {
	Run(ctx context.Context, job Job) (RunReport, error)
}
