// Package service drives an analysis run: segments are sampled, every sample is scored
// by the model, and each segment's distribution is reduced and written to the results sink.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"emolens/internal/core/emotion"
	"emolens/internal/core/sampling"
	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/logger"
	auditdom "emolens/internal/services/audit/domain"
	dom "emolens/internal/services/analyse/domain"
	segdom "emolens/internal/services/segments/domain"
)

// Config for the analyse service
type Config struct {
	// Interval is the sampling interval in seconds
	Interval    float64
	VideoReduce dom.Reduce
	AudioReduce dom.Reduce
}

// Reduce returns the reduction configured for mode
func (c Config) Reduce(m dom.Mode) dom.Reduce {
	if m == dom.ModeAudio {
		return c.AudioReduce
	}
	return c.VideoReduce
}

// Service implements the pipeline driver. Segments run one after another with one
// stream open at a time.
type Service struct {
	Source segdom.SourcePort
	Sink   segdom.SinkPort
	Media  dom.MediaPort
	Model  dom.Predictor
	Audit  auditdom.WriterPort
	Cfg    Config

	sampler sampling.Sampler
}

// New constructs the driver; audit may be nil
func New(src segdom.SourcePort, sink segdom.SinkPort, media dom.MediaPort, model dom.Predictor, audit auditdom.WriterPort, cfg Config) *Service {
	if src == nil || sink == nil || media == nil || model == nil {
		panic("analyse.service.New: nil source, sink, media or model")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1
	}
	if !cfg.VideoReduce.Valid() {
		cfg.VideoReduce = dom.ReduceSamples
	}
	if !cfg.AudioReduce.Valid() {
		cfg.AudioReduce = dom.ReduceMean
	}
	return &Service{
		Source:  src,
		Sink:    sink,
		Media:   media,
		Model:   model,
		Audit:   audit,
		Cfg:     cfg,
		sampler: sampling.New(cfg.Interval),
	}
}

// Run processes every segment of the job. Per-segment failures are recorded in the report;
// the returned error is set when listing segments fails, a result could not be persisted,
// ctx was canceled, or segments existed and none completed.
func (s *Service) Run(ctx context.Context, job dom.Job) (dom.RunReport, error) {
	report := dom.RunReport{Job: job}
	if err := job.Validate(); err != nil {
		return report, err
	}
	log := logger.C(ctx).With().Str("mode", string(job.Mode)).Logger()

	segs, err := s.Source.List(ctx, job.Ref())
	if err != nil {
		return report, perr.WithOp(err, "analyse.Run")
	}
	report.Segments = make([]dom.SegmentReport, len(segs))
	for i, sg := range segs {
		report.Segments[i] = dom.SegmentReport{Segment: sg, State: dom.StatePending}
	}
	log.Info().
		Int("segments", len(segs)).
		Float64("interval", s.Cfg.Interval).
		Str("reduce", string(s.Cfg.Reduce(job.Mode))).
		Msg("run started")
	if len(segs) == 0 {
		log.Warn().Msg("no segments for interview")
		return report, nil
	}

	src, err := s.Media.Open(ctx, job)
	if err != nil {
		for i := range report.Segments {
			s.transition(ctx, &report.Segments[i], dom.StateSampling)
			s.fail(ctx, &report.Segments[i], err)
		}
		return report, errors.Join(err, dom.ErrNoSegmentDone)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("media cleanup failed")
		}
	}()

	var persistErrs []error
	canceled := false
	for i := range report.Segments {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		sr := &report.Segments[i]
		s.segment(ctx, job, src, sr)
		if sr.State == dom.StateFailed && ctx.Err() != nil {
			canceled = true
			break
		}
		if sr.State != dom.StateDone {
			continue
		}
		if ctx.Err() != nil {
			canceled = true
			break
		}
		if sr.Scored == 0 {
			// keep whatever the column already holds
			s.segLog(ctx, sr).Warn().Int("skipped", sr.Skipped).Msg("no samples scored, result not written")
			continue
		}
		if err := s.persist(ctx, job, sr); err != nil {
			sr.Err = err
			persistErrs = append(persistErrs, err)
		}
	}

	scored, skipped := report.Samples()
	done := report.Count(dom.StateDone)
	log.Info().
		Int("done", done).
		Int("failed", report.Count(dom.StateFailed)).
		Int("pending", report.Count(dom.StatePending)).
		Int("scored", scored).
		Int("skipped", skipped).
		Int("persist_errors", len(persistErrs)).
		Msg("run finished")

	var errs []error
	if canceled {
		errs = append(errs, ctx.Err())
	}
	errs = append(errs, persistErrs...)
	if !canceled && done == 0 {
		errs = append(errs, dom.ErrNoSegmentDone)
	}
	return report, errors.Join(errs...)
}

// segment moves one segment from PENDING to DONE or FAILED
func (s *Service) segment(ctx context.Context, job dom.Job, src dom.Source, sr *dom.SegmentReport) {
	seg := sr.Segment
	s.transition(ctx, sr, dom.StateSampling)
	if !seg.Valid() {
		s.fail(ctx, sr, perr.InvalidArgf("analyse: segment [%v, %v) is empty or out of range", seg.Start, seg.End))
		return
	}

	st, err := src.Stream(ctx)
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodeStreamOpen) && ctx.Err() == nil {
			err = perr.Wrap(err, perr.ErrorCodeStreamOpen, "analyse: open stream")
		}
		s.fail(ctx, sr, err)
		return
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.C(ctx).Debug().Err(cerr).Msg("stream close")
		}
	}()

	s.transition(ctx, sr, dom.StateScoring)
	vocab := s.Model.Vocabulary()
	agg := emotion.NewAggregator()
	var audits []auditdom.Sample

	for smp, err := range s.sampler.Samples(st, seg.Window()) {
		if err != nil {
			s.fail(ctx, sr, err)
			return
		}
		scores, err := s.score(ctx, vocab, smp.Unit)
		if err != nil {
			if ctx.Err() != nil {
				s.fail(ctx, sr, ctx.Err())
				return
			}
			sr.Skipped++
			code := perr.CodeOf(err)
			l := s.segLog(ctx, sr)
			ev := l.Warn()
			if code.SampleLevel() {
				ev = l.Info()
			}
			ev.Err(err).Str("code", code.String()).Int("pos", smp.Pos).Msg("sample skipped")
			continue
		}

		id := agg.Add(smp.Pos, scores)
		sr.Scored++
		top, _ := scores.Top()
		s.segLog(ctx, sr).Debug().
			Str("sample", id).
			Int("pos", smp.Pos).
			Bool("stand_in", smp.StandIn).
			Str("top", top.Label).
			Float64("score", top.Score).
			Msg("sample scored")
		audits = append(audits, auditdom.Sample{
			RunID:       job.RunID,
			SessionID:   job.SessionID,
			InterviewID: job.InterviewID,
			Mode:        string(job.Mode),
			SpeakerID:   seg.SpeakerID,
			Part:        seg.Part,
			SampleID:    id,
			Pos:         smp.Pos,
			Offset:      smp.Offset,
			StandIn:     smp.StandIn,
			Scores:      scores,
		})

		if ctx.Err() != nil {
			s.fail(ctx, sr, ctx.Err())
			return
		}
	}

	s.transition(ctx, sr, dom.StateAggregating)
	payload, err := json.Marshal(s.Cfg.Reduce(job.Mode).Apply(agg.Result()))
	if err != nil {
		s.fail(ctx, sr, perr.Wrap(err, perr.ErrorCodeUnknown, "analyse: encode payload"))
		return
	}
	sr.Payload = payload
	s.transition(ctx, sr, dom.StateDone)

	if s.Audit != nil && len(audits) > 0 {
		if err := s.Audit.WriteSamples(ctx, audits); err != nil {
			s.segLog(ctx, sr).Warn().Err(err).Msg("audit write failed")
		}
	}
}

// score runs the model and combines its output; both failures are sample level
func (s *Service) score(ctx context.Context, vocab emotion.Vocabulary, u sampling.Unit) (emotion.Scores, error) {
	raw, err := s.Model.Predict(ctx, u)
	if err != nil {
		return nil, err
	}
	return emotion.Combine(raw, vocab)
}

func (s *Service) persist(ctx context.Context, job dom.Job, sr *dom.SegmentReport) error {
	start := time.Now()
	err := s.Sink.Update(ctx, sr.Segment.Key(), job.Mode.Column(), sr.Payload)
	if err != nil {
		if !perr.IsCode(err, perr.ErrorCodePersistence) {
			err = perr.Wrapf(err, perr.ErrorCodePersistence, "analyse: persist %s", sr.Segment.Key())
		}
		s.segLog(ctx, sr).Error().Err(err).Msg("result not persisted")
		return err
	}
	s.segLog(ctx, sr).Info().
		Str("column", string(job.Mode.Column())).
		Int("bytes", len(sr.Payload)).
		Dur("took", time.Since(start)).
		Msg("result persisted")
	return nil
}

func (s *Service) transition(ctx context.Context, sr *dom.SegmentReport, to dom.State) {
	from := sr.State
	sr.State = to
	l := s.segLog(ctx, sr)
	var ev *zerolog.Event
	if to.Terminal() {
		ev = l.Info().Int("scored", sr.Scored).Int("skipped", sr.Skipped)
	} else {
		ev = l.Debug()
	}
	ev.Str("from", from.String()).Str("to", to.String()).Msg("segment state")
}

func (s *Service) fail(ctx context.Context, sr *dom.SegmentReport, err error) {
	sr.Err = err
	s.segLog(ctx, sr).Warn().Err(err).Str("code", perr.CodeOf(err).String()).Msg("segment failed")
	s.transition(ctx, sr, dom.StateFailed)
}

func (s *Service) segLog(ctx context.Context, sr *dom.SegmentReport) *logger.Logger {
	l := logger.C(ctx).With().
		Int("speaker", sr.Segment.SpeakerID).
		Int("part", sr.Segment.Part).
		Logger()
	return &l
}
