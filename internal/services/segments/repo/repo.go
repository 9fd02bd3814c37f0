// Package repo provides the results table source and sink for segments
package repo

import (
	"context"
	"encoding/json"

	"emolens/internal/modkit/repokit"
	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/store"
	"emolens/internal/services/segments/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the results repository
type Storage interface {
	List(ctx context.Context, interviewID int64) ([]domain.Segment, error)
	Update(ctx context.Context, key domain.Key, col domain.Column, payload json.RawMessage) error
}

const listSQL = `SELECT id, interview_id, speaker, part, start_s, end_s
	FROM results
	WHERE interview_id = $1
	ORDER BY speaker, part, id`

// List implements Storage; rows come back grouped by speaker with parts ascending
func (s *pg) List(ctx context.Context, interviewID int64) ([]domain.Segment, error) {
	out, err := store.Many(ctx, s.q, scanSegment, listSQL, interviewID)
	if err != nil {
		return nil, perr.FromPostgresf(err, "segments: list interview %d", interviewID)
	}
	return out, nil
}

func scanSegment(r store.Row) (domain.Segment, error) {
	var sg domain.Segment
	err := r.Scan(&sg.ID, &sg.InterviewID, &sg.SpeakerID, &sg.Part, &sg.Start, &sg.End)
	return sg, err
}

// Update implements Storage. The column name is never taken from input beyond the whitelist.
func (s *pg) Update(ctx context.Context, key domain.Key, col domain.Column, payload json.RawMessage) error {
	if !col.Valid() {
		return perr.InvalidArgf("segments: unknown column %q", col)
	}
	if !json.Valid(payload) {
		return perr.InvalidArgf("segments: payload for %s is not json", key)
	}

	var err error
	if key.ID > 0 {
		err = store.ExecOne(ctx, s.q,
			`UPDATE results SET `+string(col)+` = $1::jsonb WHERE id = $2`,
			string(payload), key.ID)
	} else {
		err = store.ExecOne(ctx, s.q,
			`UPDATE results SET `+string(col)+` = $1::jsonb WHERE interview_id = $2 AND speaker = $3 AND part = $4`,
			string(payload), key.InterviewID, key.SpeakerID, key.Part)
	}
	switch {
	case err == nil:
		return nil
	case perr.IsCode(err, perr.ErrorCodeNotFound):
		return perr.Persistencef("segments: no results row for %s", key)
	default:
		return perr.Wrapf(perr.FromPostgres(err, "update results"), perr.ErrorCodePersistence, "segments: write %s to %s", col, key)
	}
}
