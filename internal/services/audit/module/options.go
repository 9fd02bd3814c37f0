package module

import (
	"emolens/internal/platform/config"
	"emolens/internal/services/audit/repo"
)

// Options holds configuration settings for the audit module
type Options struct {
	Enabled bool
	Table   string
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	af := cfg.Prefix("CORE_ANALYSE_")
	return Options{
		Enabled: af.MayBool("AUDIT", true),
		Table:   af.MayString("AUDIT_TABLE", repo.DefaultTable),
	}
}
