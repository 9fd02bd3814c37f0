// Package module implements the audit service module
package module

import (
	"emolens/internal/modkit"
	"emolens/internal/services/audit/domain"
	"emolens/internal/services/audit/repo"
	"emolens/internal/services/audit/service"
)

// Ports exposed by the audit module
type Ports struct {
	Writer domain.WriterPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the audit module. Without clickhouse the writer accepts and drops samples.
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	var storage *repo.CH
	if deps.HasAudit() {
		storage = repo.NewCH(deps.CH, opts.Table)
	}
	svc := service.New(storage, service.Config{Enabled: opts.Enabled})

	m := &Module{deps: deps}
	m.ports = Ports{Writer: svc}
	return m
}

// Name implements modkit.Module
func (m *Module) Name() string { return "audit" }

// Ports implements modkit.Module
func (m *Module) Ports() any { return m.ports }
