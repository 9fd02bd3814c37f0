// Package pg opens the pgx pool behind the results table and traces statements
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config for the pool
type Config struct {
	URL      string
	MaxConns int32
	// AppName is reported as application_name in pg_stat_activity
	AppName string
	// Slow marks traced statements at or above this duration; zero disables the mark
	Slow time.Duration
}

// PG holds the pool and the optional statement tracer
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	Slow   time.Duration
}

var newPool = pgxpool.NewWithConfig

// PoolConfig parses the DSN and layers cfg over it
func PoolConfig(cfg Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		params := pc.ConnConfig.RuntimeParams
		if params == nil {
			params = map[string]string{}
			pc.ConnConfig.RuntimeParams = params
		}
		params["application_name"] = cfg.AppName
	}
	return pc, nil
}

// Open builds the pool. tune, when set, sees the final pool config before connect.
func Open(ctx context.Context, cfg Config, tracer QueryTracer, tune func(*pgxpool.Config)) (*PG, error) {
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	if tune != nil {
		tune(pc)
	}
	pool, err := newPool(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool, Tracer: tracer, Slow: cfg.Slow}, nil
}

// Trace reports one finished statement to the tracer, if any
func (p *PG) Trace(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if p == nil || p.Tracer == nil {
		return
	}
	elapsed := time.Since(start)
	p.Tracer.OnQuery(ctx, QueryEvent{
		SQL:     sql,
		Args:    args,
		Elapsed: elapsed,
		Err:     err,
		Slow:    p.Slow > 0 && elapsed >= p.Slow,
	})
}

// Close closes the pool; safe on nil
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
