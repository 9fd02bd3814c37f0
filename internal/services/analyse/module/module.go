// Package module implements the analyse module
package module

import (
	"emolens/internal/adapters/media/ffmpeg"
	"emolens/internal/modkit"
	mmodule "emolens/internal/modkit/module"
	"emolens/internal/platform/logger"
	"emolens/internal/services/analyse/domain"
	"emolens/internal/services/analyse/media"
	"emolens/internal/services/analyse/service"
	auditdom "emolens/internal/services/audit/domain"
	segdom "emolens/internal/services/segments/domain"
)

// Ports exposed by the analyse module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	name  string
	ports Ports
}

// New constructs the analyse module around a loaded model
func New(deps modkit.Deps, model domain.Predictor, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("analyse"),
	}, opts...)...)

	dm, ok := modkit.PortsAs[DepsModules](b)
	if !ok || dm.Segments == nil {
		panic("analyse module: expected WithDepsModules(segments, audit)")
	}
	if model == nil {
		panic("analyse module: nil model")
	}
	src := mmodule.MustPortsOf[segdom.SourcePort](dm.Segments)
	sink := mmodule.MustPortsOf[segdom.SinkPort](dm.Segments)

	var audit auditdom.WriterPort
	if dm.Audit != nil {
		audit, _ = mmodule.PortsOf[auditdom.WriterPort](dm.Audit)
	}

	cfg := FromConfig(deps.Cfg)
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	mp := dm.Media
	if mp == nil {
		if deps.Objects == nil {
			panic("analyse module: object store required for media")
		}
		mp = media.New(deps.Objects, ffmpeg.ToolsFromEnv(deps.Cfg), media.Config{
			Filename:  cfg.Filename,
			AudioRate: cfg.AudioRate,
			Interval:  cfg.Interval,
			TempDir:   cfg.TempDir,
		})
	}

	svc := service.New(src, sink, mp, model, audit, service.Config{
		Interval:    cfg.Interval,
		VideoReduce: domain.Reduce(cfg.VideoReduce),
		AudioReduce: domain.Reduce(cfg.AudioReduce),
	})

	var up logger.Uploader
	if deps.Objects != nil {
		up = deps.Objects
	}

	m := &Module{deps: deps, name: b.Name}
	m.ports = Ports{Runner: service.NewRunner(svc, up)}
	return m
}

// Name implements modkit.Module
func (m *Module) Name() string { return m.name }

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.ports }
