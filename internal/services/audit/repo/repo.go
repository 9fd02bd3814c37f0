// Package repo writes audit samples to clickhouse
package repo

import (
	"context"

	"emolens/internal/platform/store"
	"emolens/internal/services/audit/domain"
)

// DefaultTable is the clickhouse table receiving one row per (sample, label)
const DefaultTable = "emotion_samples"

// CH is the clickhouse audit repo
type CH struct {
	db    store.Clickhouse
	table string
}

// NewCH binds the repo to a clickhouse seam
func NewCH(db store.Clickhouse, table string) *CH {
	if table == "" {
		table = DefaultTable
	}
	return &CH{db: db, table: table}
}

// Table returns the target table
func (c *CH) Table() string { return c.table }

// WriteBatch flattens samples to rows in table column order:
// run_id, session_id, interview_id, mode, speaker, part, sample_id, pos, offset_s, stand_in, label, score, created_at
func (c *CH) WriteBatch(ctx context.Context, xs []domain.Sample) error {
	rows := make([][]any, 0, len(xs)*4)
	for _, s := range xs {
		standIn := uint8(0)
		if s.StandIn {
			standIn = 1
		}
		for _, e := range s.Scores.Ranked() {
			rows = append(rows, []any{
				s.RunID.String(), s.SessionID, s.InterviewID, s.Mode,
				int32(s.SpeakerID), int32(s.Part), s.SampleID, int64(s.Pos), s.Offset, standIn,
				e.Label, e.Score, s.At.UTC(),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return c.db.Insert(ctx, c.table, rows)
}
