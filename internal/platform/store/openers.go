package store

import (
	"context"
	"time"

	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/logger"
	chx "emolens/internal/platform/store/ch"
	"emolens/internal/platform/store/pg"
)

const (
	defaultConnectRetries = 20
	defaultPingTimeout    = 3 * time.Second
	backoffStart          = 150 * time.Millisecond
	backoffCeiling        = 2 * time.Second
)

// sleep is swapped in tests so backoff does not wait
var sleep = func(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// waitReady pings until it succeeds, ctx ends or attempts run out.
// The delay doubles from backoffStart up to backoffCeiling.
func waitReady(ctx context.Context, log logger.Logger, name string, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultConnectRetries
	}
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	var err error
	delay := backoffStart
	for i := 1; i <= attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i == attempts {
			break
		}
		log.Warn().Err(err).Str("backend", name).Int("attempt", i).Dur("backoff", delay).Msg("backend not ready")
		sleep(ctx, delay)
		delay = min(delay*2, backoffCeiling)
	}
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s: not ready after %d attempts", name, attempts)
}

// openPG opens the pool and waits for postgres before handing out the adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		AppName:  cfg.AppName,
		Slow:     cfg.PG.SlowQuery,
	}, tracer, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "pg: open")
	}

	// ping the pool directly so startup retries stay out of the SQL trace
	if err := waitReady(ctx, s.Log, "pg", cfg.PG.ConnectRetries, cfg.PG.PingTimeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		URL:         cfg.CH.URL,
		Role:        cfg.AppName,
		DialTimeout: cfg.CH.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c), nil
}
