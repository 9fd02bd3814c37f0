package repokit

import (
	"context"
	"errors"
	"testing"

	"emolens/internal/platform/store"
	kit "emolens/internal/platform/testkit"
)

type fakeQ struct{}

func (f *fakeQ) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (f *fakeQ) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeQ) QueryRow(context.Context, string, ...any) store.Row { return nil }

// fakeTxRunner records calls and forwards to the provided fn with its q
type fakeTxRunner struct {
	q      Queryer
	err    error
	called int
}

func (f *fakeTxRunner) Tx(ctx context.Context, fn func(q Queryer) error) error {
	f.called++
	if fn != nil {
		if err := fn(f.q); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeTxRunner) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	if f.q != nil {
		return f.q.Exec(ctx, sql, args...)
	}
	var z store.CommandTag
	return z, nil
}

func (f *fakeTxRunner) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	if f.q != nil {
		return f.q.Query(ctx, sql, args...)
	}
	var z store.Rows
	return z, nil
}

func (f *fakeTxRunner) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	if f.q != nil {
		return f.q.QueryRow(ctx, sql, args...)
	}
	var z store.Row
	return z
}

type resultsRepo struct{ q Queryer }

func TestBinders(t *testing.T) {
	t.Parallel()

	b := BindFunc[*resultsRepo](func(q Queryer) *resultsRepo { return &resultsRepo{q: q} })
	q := &fakeQ{}
	if r := MustBind[*resultsRepo](b, q); r.q != q {
		t.Fatal("MustBind did not pass the queryer through")
	}
	kit.MustPanic(t, func() { MustBind[*resultsRepo](b, nil) })
}

func TestWithTx(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		txErr error
		fnErr error
		want  error
	}{
		{"ok", nil, nil, nil},
		{"fn error", nil, errFn, errFn},
		{"commit error", errTx, nil, errTx},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ftx := &fakeTxRunner{q: &fakeQ{}, err: tc.txErr}
			var seen Queryer
			err := WithTx(context.Background(), ftx, func(q Queryer) error {
				seen = q
				return tc.fnErr
			})
			if !errors.Is(err, tc.want) || (tc.want == nil && err != nil) {
				t.Fatalf("err = %v want %v", err, tc.want)
			}
			if ftx.called != 1 || seen != ftx.q {
				t.Fatalf("called = %d seen = %v", ftx.called, seen)
			}
		})
	}
}

var (
	errFn = errors.New("update results: no row")
	errTx = errors.New("commit: connection reset")
)
