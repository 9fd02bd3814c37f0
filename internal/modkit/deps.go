// Package modkit provides module wiring and core deps
package modkit

import (
	"emolens/internal/modkit/repokit"
	"emolens/internal/platform/config"
	"emolens/internal/platform/logger"
	"emolens/internal/platform/objstore"
	"emolens/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Objects *objstore.Store
}

// HasAudit reports whether a clickhouse backend is wired
func (d Deps) HasAudit() bool { return d.CH != nil }
