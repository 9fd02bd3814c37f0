package repokit

import (
	"context"
	"errors"
	"time"

	perr "emolens/internal/platform/errors"
)

// DefaultPingTimeout bounds a readiness ping when ctx carries no deadline
const DefaultPingTimeout = 5 * time.Second

// Pinger is a dependency that can report readiness
type Pinger interface {
	Ping(context.Context) error
}

// Guarder checks several backends at once, like store.Store
type Guarder interface {
	Guard(context.Context) error
}

// Ping checks one named dependency. Failures are Unavailable errors naming the dependency.
func Ping(ctx context.Context, name string, p Pinger) error {
	if p == nil {
		return perr.Newf(perr.ErrorCodeUnavailable, "%s: not configured", name)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s: ping failed", name)
	}
	return nil
}

// Ready pings every dependency and joins the failures
func Ready(ctx context.Context, deps map[string]Pinger) error {
	var errs []error
	for name, p := range deps {
		if err := Ping(ctx, name, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MustGuard runs g.Guard and panics on failure; for process startup only
func MustGuard(ctx context.Context, g Guarder) {
	if err := g.Guard(ctx); err != nil {
		panic(perr.Wrap(err, perr.ErrorCodeUnavailable, "dependency guard failed"))
	}
}
