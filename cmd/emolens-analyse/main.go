package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"emolens/internal/adapters/model"
	"emolens/internal/core/version"
	"emolens/internal/modkit"
	"emolens/internal/modkit/module"
	"emolens/internal/modkit/repokit"
	"emolens/internal/platform/config"
	"emolens/internal/platform/logger"
	"emolens/internal/platform/objstore"
	"emolens/internal/platform/store"

	andom "emolens/internal/services/analyse/domain"
	anmod "emolens/internal/services/analyse/module"
	auditmod "emolens/internal/services/audit/module"
	segmod "emolens/internal/services/segments/module"
)

const service = "emolens-analyse"

// required are checked before anything connects
var required = []string{"SERVICE_PGSQL_DBURL", "SERVICE_STORAGE_BUCKET", "CORE_MODEL_ID"}

func main() {
	var (
		fSession   = flag.Int64("session", 0, "session id")
		fInterview = flag.Int64("interview", 0, "interview id")
		fMode      = flag.String("mode", "video", "analysis mode: video | audio")
		fEnv       = flag.String("env", ".env", "dotenv file loaded before reading config")
	)
	flag.Parse()

	if _, err := config.LoadDotenv(*fEnv); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv: %v\n", err)
		os.Exit(2)
	}
	if missing := config.New().Missing(required...); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "missing required environment: %s\n", strings.Join(missing, ", "))
		os.Exit(2)
	}
	job := andom.Job{SessionID: *fSession, InterviewID: *fInterview, Mode: andom.Mode(*fMode)}
	if err := job.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, job)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, job andom.Job) int {
	root := config.New()
	l := logger.Get()
	bi := version.Info(service)
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Msg("starting")

	st, err := store.Open(ctx, store.ConfigFromEnv(root, service), store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	objCfg := objstore.ConfigFromEnv(root)
	if err := objCfg.Validate(); err != nil {
		l.Error().Err(err).Msg("object storage config")
		return 1
	}
	obj, err := objstore.Open(ctx, objCfg)
	if err != nil {
		l.Error().Err(err).Msg("objstore.Open failed")
		return 1
	}
	if err := repokit.Ready(ctx, map[string]repokit.Pinger{"objstore": obj}); err != nil {
		l.Error().Err(err).Msg("dependencies not ready")
		return 1
	}

	mcfg := model.ConfigFromEnv(root)
	mcfg.UserAgent = service + "/" + bi.Version
	m, err := model.Load(ctx, mcfg)
	if err != nil {
		l.Error().Err(err).Msg("model load failed")
		return 1
	}

	deps := modkit.Deps{
		Log:     *l,
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Objects: obj,
	}

	// Build dependency modules first
	seg := segmod.New(deps)
	aud := auditmod.New(deps)
	an := anmod.New(deps, m, anmod.WithDepsModules(seg, aud))

	module.RegisterAll(seg, aud, an)
	l.Debug().Strs("modules", module.Names()).Msg("modules wired")

	ports, _ := module.PortsAs[anmod.Ports](an.Name())
	report, err := ports.Runner.Run(ctx, job)
	printSummary(report)
	if err != nil {
		l.Error().Err(err).Msg("analysis failed")
		return 1
	}
	return 0
}

func printSummary(r andom.RunReport) {
	scored, skipped := r.Samples()
	fmt.Printf("run %s session=%d interview=%d mode=%s\n", r.Job.RunID, r.Job.SessionID, r.Job.InterviewID, r.Job.Mode)
	for _, sr := range r.Segments {
		line := fmt.Sprintf("  speaker %d part %d [%.2f, %.2f) %s scored=%d skipped=%d",
			sr.Segment.SpeakerID, sr.Segment.Part, sr.Segment.Start, sr.Segment.End, sr.State, sr.Scored, sr.Skipped)
		if sr.Err != nil {
			line += " err=" + sr.Err.Error()
		}
		fmt.Println(line)
	}
	fmt.Printf("done=%d failed=%d pending=%d scored=%d skipped=%d\n",
		r.Count(andom.StateDone), r.Count(andom.StateFailed), r.Count(andom.StatePending), scored, skipped)
}
