package module

import (
	"time"

	"emolens/internal/platform/config"
	"emolens/internal/services/segments/service"
)

// Options holds configuration settings for the segments module
type Options struct {
	Source       service.Source
	WriteTimeout time.Duration
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	af := cfg.Prefix("CORE_ANALYSE_")
	return Options{
		Source:       service.Source(af.MayEnum("SEGMENT_SOURCE", string(service.SourceDB), string(service.SourceDB), string(service.SourceSpeakers))),
		WriteTimeout: af.MayDuration("WRITE_TIMEOUT", 10*time.Second),
	}
}
