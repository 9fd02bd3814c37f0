// Package module provides the segments module
package module

import (
	"emolens/internal/modkit"
	"emolens/internal/modkit/repokit"
	"emolens/internal/services/segments/domain"
	"emolens/internal/services/segments/repo"
	"emolens/internal/services/segments/service"
)

// Ports exposed by the segments module
type Ports struct {
	Source domain.SourcePort
	Sink   domain.SinkPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new segments module
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	var speakers domain.SourcePort
	if deps.Objects != nil {
		speakers = repo.NewSpeakers(deps.Objects)
	}
	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), speakers, service.Config{
		Source:       opts.Source,
		WriteTimeout: opts.WriteTimeout,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Source: svc, Sink: svc}
	return m
}

// Name implements modkit.Module
func (m *Module) Name() string { return "segments" }

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.ports }
