package module

import (
	modkit "emolens/internal/modkit"
	mmodule "emolens/internal/modkit/module"
	"emolens/internal/services/analyse/domain"
)

// DepsModules carries the modules the analyser reads from and writes to.
// Audit is optional. Media replaces the object store backed shim when set.
type DepsModules struct {
	Segments mmodule.Module
	Audit    mmodule.Module
	Media    domain.MediaPort
}

// WithDepsModules passes dependency modules without exposing port lookups in main
func WithDepsModules(segments, audit mmodule.Module) modkit.Option {
	return modkit.WithPorts(DepsModules{Segments: segments, Audit: audit})
}
