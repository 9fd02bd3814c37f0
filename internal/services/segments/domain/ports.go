package domain

import (
	"context"
	"encoding/json"
)

// SourcePort lists the segments of an interview in processing order
type SourcePort interface {
	List(ctx context.Context, ref Ref) ([]Segment, error)
}

// SinkPort stores one emotion payload into a results row.
// A write that matches no row is a Persistence error.
type SinkPort interface {
	Update(ctx context.Context, key Key, col Column, payload json.RawMessage) error
}

