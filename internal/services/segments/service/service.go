// Package service provides the segments service implementation
package service

import (
	"context"
	"encoding/json"
	"time"

	"emolens/internal/modkit/repokit"
	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/logger"
	"emolens/internal/services/segments/domain"
	"emolens/internal/services/segments/repo"
)

// Source names where segments are read from
type Source string

// Sources understood by the service
const (
	SourceDB       Source = "db"
	SourceSpeakers Source = "speakers"
)

// Config for the segments service
type Config struct {
	Source Source

	// WriteTimeout bounds each results update statement
	WriteTimeout time.Duration
}

// Service implements domain.SourcePort and domain.SinkPort.
// Results are always written to the results table; segments come from Config.Source.
type Service struct {
	DB       repokit.TxRunner
	Binder   repokit.Binder[repo.Storage]
	Speakers domain.SourcePort
	Cfg      Config
}

// New constructs a new segments service. speakers may be nil unless Source is speakers.
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage], speakers domain.SourcePort, cfg Config) *Service {
	if db == nil || b == nil {
		panic("segments.service.New: nil db or binder")
	}
	if cfg.Source == "" {
		cfg.Source = SourceDB
	}
	if cfg.Source == SourceSpeakers && speakers == nil {
		panic("segments.service.New: speakers source without object store")
	}
	if cfg.WriteTimeout > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(cfg.WriteTimeout))
	}
	return &Service{DB: db, Binder: b, Speakers: speakers, Cfg: cfg}
}

// List implements domain.SourcePort
func (s *Service) List(ctx context.Context, ref domain.Ref) ([]domain.Segment, error) {
	var segs []domain.Segment
	switch s.Cfg.Source {
	case SourceSpeakers:
		var err error
		if segs, err = s.Speakers.List(ctx, ref); err != nil {
			return nil, err
		}
	case SourceDB:
		var err error
		if segs, err = repokit.MustBind(s.Binder, s.DB).List(ctx, ref.InterviewID); err != nil {
			return nil, err
		}
	default:
		return nil, perr.InvalidArgf("segments: unknown source %q", s.Cfg.Source)
	}

	segs = domain.Order(segs)
	logger.C(ctx).Debug().
		Str("source", string(s.Cfg.Source)).
		Int("segments", len(segs)).
		Msg("segments listed")
	return segs, nil
}

// Update implements domain.SinkPort; each write is its own transaction
func (s *Service) Update(ctx context.Context, key domain.Key, col domain.Column, payload json.RawMessage) error {
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		return repokit.MustBind(s.Binder, q).Update(ctx, key, col, payload)
	})
	if err != nil && !perr.IsCode(err, perr.ErrorCodePersistence) && !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		err = perr.Wrapf(err, perr.ErrorCodePersistence, "segments: update %s", key)
	}
	return err
}
