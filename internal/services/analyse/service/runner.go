package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"emolens/internal/platform/logger"
	"emolens/internal/platform/objstore"
	dom "emolens/internal/services/analyse/domain"
)

// flushTimeout bounds the run log upload, which happens even after ctx is canceled
const flushTimeout = 30 * time.Second

// Runner wraps the driver with a run id and a run-scoped log that is uploaded when the
// run ends, on success and on failure
type Runner struct {
	svc *Service
	up  logger.Uploader
	now func() time.Time
}

// NewRunner constructs a runner; a nil uploader keeps run logs local only
func NewRunner(svc *Service, up logger.Uploader) *Runner {
	if svc == nil {
		panic("analyse.service.NewRunner: nil service")
	}
	return &Runner{svc: svc, up: up, now: time.Now}
}

// LogKey is the object key of a run's log
func LogKey(job dom.Job, at time.Time) string {
	name := logger.RunLogName(string(job.Mode), at) + "_" + job.RunID.String()[:8] + ".log"
	return objstore.Interview{Session: job.Session(), Interview: job.Interview()}.Logs(name)
}

// Run implements domain.RunnerPort
func (r *Runner) Run(ctx context.Context, job dom.Job) (dom.RunReport, error) {
	if job.RunID == uuid.Nil {
		job.RunID = uuid.New()
	}
	rl := logger.NewRunLog(LogKey(job, r.now()))
	ctx = logger.WithRun(rl.WithContext(ctx), job.RunID.String(), job.Session(), job.Interview())

	report, err := r.svc.Run(ctx, job)
	if err != nil {
		logger.C(ctx).Error().Err(err).Msg("run failed")
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if ferr := rl.Flush(fctx, r.up); ferr != nil {
		logger.Named("analyse").Warn().Err(ferr).Str("key", rl.Key()).Msg("run log upload failed")
	}
	return report, err
}
