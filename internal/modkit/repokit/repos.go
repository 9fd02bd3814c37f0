// Package repokit holds the glue between services and their SQL repos: the query surface
// aliases, binders that attach a repo to a pool or a tx, and transaction hooks.
package repokit

import (
	"context"

	"emolens/internal/platform/store"
)

type (
	// Queryer is what a bound repo runs statements on, a pool or an open tx
	Queryer = store.RowQuerier
	// TxRunner opens transactions; services hold one and bind repos inside it
	TxRunner = store.TxRunner
	// Rows are the result set of a query
	Rows = store.Rows
	// Row is a single row result
	Row = store.Row
	// CommandTag reports what a write touched
	CommandTag = store.CommandTag
)

// Binder attaches a repo of type T to a Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a plain function into a Binder, handy for fakes in service tests
type BindFunc[T any] func(Queryer) T

// Bind implements Binder
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind binds b to q and panics on a nil q, which is always a wiring bug
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: bind on nil Queryer")
	}
	return b.Bind(q)
}

// WithTx runs fn in one transaction of tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}
