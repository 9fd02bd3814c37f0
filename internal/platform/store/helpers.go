package store

import (
	"context"
	"iter"

	perr "emolens/internal/platform/errors"
)

// ExecOne runs a write that must touch exactly one row.
// Zero rows is ErrNotFound so callers can tell a missing target from a driver failure.
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	switch n := tag.RowsAffected(); n {
	case 1:
		return nil
	case 0:
		return perr.ErrNotFound
	default:
		return perr.DBf("store: %d rows affected, want 1", n)
	}
}

// Each yields every row of rows through scan and closes rows when done.
// Iteration stops at the first scan or stream error, which is yielded last.
func Each[T any](rows Rows, scan func(Row) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer rows.Close()
		var zero T
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}

// Many runs a query and collects every row through scan
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	var out []T
	for item, err := range Each(rows, scan) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
