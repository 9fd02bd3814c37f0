package store

import (
	"context"
	"errors"
	"time"

	"emolens/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is what the pool and a transaction have in common
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier adapts pgx to RowQuerier and traces each statement through pg.PG
type querier struct {
	q  pgxQuerier
	pg *pg.PG
}

func (x querier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := x.q.Exec(ctx, sql, args...)
	x.pg.Trace(ctx, sql, args, start, err)
	return ct, err
}

// Query traces on Close so the event covers the scan of the whole result set
func (x querier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := x.q.Query(ctx, sql, args...)
	if err != nil {
		x.pg.Trace(ctx, sql, args, start, err)
		return nil, err
	}
	return rows{Rows: rs, done: func(err error) { x.pg.Trace(ctx, sql, args, start, err) }}, nil
}

func (x querier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return row{r: x.q.QueryRow(ctx, sql, args...), done: func(err error) { x.pg.Trace(ctx, sql, args, start, err) }}
}

// pgAdapter is the TxRunner over the pool
type pgAdapter struct{ querier }

func newPGAdapter(p *pg.PG) *pgAdapter { return &pgAdapter{querier{q: p.Pool, pg: p}} }

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.pg == nil || a.pg.Pool == nil {
		return errors.New("pg: not open")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error {
	a.pg.Close()
	return nil
}

// Tx runs fn in a transaction, rolling back when fn fails
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.pg.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(querier{q: tx, pg: a.pg}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

type row struct {
	r    pgx.Row
	done func(error)
}

func (x row) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	x.done(err)
	return err
}

// rows exposes pgx.Rows and reports completion once on Close
type rows struct {
	pgx.Rows
	done func(error)
}

func (x rows) Close() {
	x.Rows.Close()
	x.done(x.Rows.Err())
}

func (x rows) Columns() []string {
	fds := x.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}
