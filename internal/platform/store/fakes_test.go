package store

import (
	"context"
	"errors"
	"fmt"
)

// fakeTag satisfies CommandTag
type fakeTag int64

func (t fakeTag) String() string      { return fmt.Sprintf("UPDATE %d", int64(t)) }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

// fakeRows iterates over in-memory rows and copies values into scan targets
type fakeRows struct {
	cols   []string
	data   [][]any
	idx    int
	err    error
	closed bool
}

func newFakeRows(cols []string, data ...[]any) *fakeRows {
	return &fakeRows{cols: cols, data: data, idx: -1}
}

func (r *fakeRows) Next() bool {
	if r.idx+1 >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("scan out of range")
	}
	row := r.data[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d targets for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		var err error
		switch p := d.(type) {
		case *int64:
			err = assign(p, row[i])
		case *int:
			err = assign(p, row[i])
		case *float64:
			err = assign(p, row[i])
		case *string:
			err = assign(p, row[i])
		default:
			err = fmt.Errorf("scan: unsupported target %T", d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func assign[T any](dst *T, v any) error {
	x, ok := v.(T)
	if !ok {
		return fmt.Errorf("scan: cannot assign %T to %T", v, *dst)
	}
	*dst = x
	return nil
}

func (r *fakeRows) Err() error        { return r.err }
func (r *fakeRows) Close()            { r.closed = true }
func (r *fakeRows) Columns() []string { return r.cols }

type fakeRow struct{ rows *fakeRows }

func (r fakeRow) Scan(dest ...any) error {
	if !r.rows.Next() {
		return errors.New("no rows")
	}
	return r.rows.Scan(dest...)
}

// fakeQuerier records calls and replays canned results
type fakeQuerier struct {
	execTag  fakeTag
	execErr  error
	rows     *fakeRows
	queryErr error
	lastSQL  string
	lastArgs []any
	pingErr  error
	closed   bool
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.execTag, f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) Row {
	f.lastSQL, f.lastArgs = sql, args
	return fakeRow{rows: f.rows}
}

func (f *fakeQuerier) Tx(_ context.Context, fn func(q RowQuerier) error) error { return fn(f) }
func (f *fakeQuerier) Ping(context.Context) error                              { return f.pingErr }
func (f *fakeQuerier) Close() error                                             { f.closed = true; return nil }
