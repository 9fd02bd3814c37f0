package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"emolens/internal/platform/testkit"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPoolConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
		conns   int32
		app     string
	}{
		{"bad url", Config{URL: "://bad"}, true, 0, ""},
		{"dsn defaults", Config{URL: "postgres://u:p@h:5432/db?pool_max_conns=9"}, false, 9, ""},
		{"overrides", Config{URL: "postgres://u:p@h:5432/db?pool_max_conns=9", MaxConns: 2, AppName: "emolens-analyse"}, false, 2, "emolens-analyse"},
		{"dsn app name kept", Config{URL: "postgres://u:p@h:5432/db?application_name=psql"}, false, 0, "psql"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pc, err := PoolConfig(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tc.conns > 0 && pc.MaxConns != tc.conns {
				t.Errorf("MaxConns = %d, want %d", pc.MaxConns, tc.conns)
			}
			if got := pc.ConnConfig.RuntimeParams["application_name"]; got != tc.app {
				t.Errorf("application_name = %q, want %q", got, tc.app)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	testkit.Serial(t)

	t.Run("pool error", func(t *testing.T) {
		testkit.Swap(t, &newPool, func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
			return nil, errors.New("connection refused")
		})
		if _, err := Open(context.Background(), Config{URL: "postgres://u:p@h:5432/db"}, nil, nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("tune sees final config", func(t *testing.T) {
		fake := &pgxpool.Pool{}
		var seen *pgxpool.Config
		testkit.Swap(t, &newPool, func(_ context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
			seen = pc
			return fake, nil
		})

		p, err := Open(context.Background(), Config{URL: "postgres://u:p@h:5432/db", MaxConns: 3, Slow: time.Second}, nil,
			func(pc *pgxpool.Config) { pc.MinConns = 1 })
		if err != nil {
			t.Fatal(err)
		}
		if p.Pool != fake || p.Slow != time.Second {
			t.Fatalf("pg = %+v", p)
		}
		if seen.MaxConns != 3 || seen.MinConns != 1 {
			t.Fatalf("pool config = %d/%d", seen.MaxConns, seen.MinConns)
		}
	})
}

type recTracer struct{ evs []QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev QueryEvent) { r.evs = append(r.evs, ev) }

func TestTrace(t *testing.T) {
	t.Parallel()

	rec := &recTracer{}
	p := &PG{Tracer: rec, Slow: time.Hour}
	p.Trace(context.Background(), "SELECT 1", nil, time.Now(), nil)
	p.Slow = time.Nanosecond
	p.Trace(context.Background(), "SELECT 2", []any{1}, time.Now().Add(-time.Millisecond), errors.New("x"))
	p.Slow = 0
	p.Trace(context.Background(), "SELECT 3", nil, time.Now().Add(-time.Hour), nil)

	if len(rec.evs) != 3 {
		t.Fatalf("events = %d", len(rec.evs))
	}
	if rec.evs[0].Slow || !rec.evs[1].Slow || rec.evs[2].Slow {
		t.Fatalf("slow marks = %v %v %v", rec.evs[0].Slow, rec.evs[1].Slow, rec.evs[2].Slow)
	}
	if rec.evs[1].Err == nil || rec.evs[1].Elapsed < time.Millisecond {
		t.Fatalf("event = %+v", rec.evs[1])
	}

	testkit.MustNotPanic(t, func() {
		var nilPG *PG
		nilPG.Trace(context.Background(), "SELECT 1", nil, time.Now(), nil)
		(&PG{}).Trace(context.Background(), "SELECT 1", nil, time.Now(), nil)
		nilPG.Close()
		(&PG{}).Close()
	})
}
