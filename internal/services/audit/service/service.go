// Package service provides the audit writer
package service

import (
	"context"
	"time"

	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/logger"
	dom "emolens/internal/services/audit/domain"
	"emolens/internal/services/audit/repo"
)

// Config for the audit service
type Config struct {
	Enabled bool
}

// Service implements domain.WriterPort against the clickhouse repo
type Service struct {
	Storage *repo.CH
	Cfg     Config

	now func() time.Time
}

// New constructs the audit service; a nil storage disables writes
func New(storage *repo.CH, cfg Config) *Service {
	if storage == nil {
		cfg.Enabled = false
	}
	return &Service{Storage: storage, Cfg: cfg, now: time.Now}
}

// WriteSamples implements domain.WriterPort
func (s *Service) WriteSamples(ctx context.Context, xs []dom.Sample) error {
	if !s.Cfg.Enabled || len(xs) == 0 {
		return nil
	}
	now := s.now()
	for i := range xs {
		if xs[i].At.IsZero() {
			xs[i].At = now
		}
	}
	if err := s.Storage.WriteBatch(ctx, xs); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "audit: write %d samples to %s", len(xs), s.Storage.Table())
	}
	logger.C(ctx).Debug().Int("samples", len(xs)).Str("table", s.Storage.Table()).Msg("audit samples written")
	return nil
}
