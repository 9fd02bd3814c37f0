package model

import (
	"time"

	"emolens/internal/platform/config"
	"emolens/internal/platform/validate"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxInFlight = 1
	defaultUA          = "emolens"
)

// Config selects the model and where it is served
type Config struct {
	URL         string        `env:"CORE_MODEL_URL" validate:"required,url"`
	ID          string        `env:"CORE_MODEL_ID" validate:"required"`
	Device      string        `env:"CORE_MODEL_DEVICE" validate:"oneof=cpu gpu"`
	Timeout     time.Duration `env:"CORE_MODEL_TIMEOUT" validate:"gt=0"`
	MaxInFlight int           `env:"CORE_MODEL_MAX_INFLIGHT" validate:"min=1"`
	UserAgent   string        `env:"-"`
}

// ConfigFromEnv reads CORE_MODEL_*
func ConfigFromEnv(c config.Conf) Config {
	m := c.Prefix("CORE_MODEL_")
	return Config{
		URL:         m.MayString("URL", "http://localhost:8080"),
		ID:          m.MayString("ID", ""),
		Device:      m.MayEnum("DEVICE", "cpu", "cpu", "gpu"),
		Timeout:     m.MayDuration("TIMEOUT", defaultTimeout),
		MaxInFlight: m.MayInt("MAX_INFLIGHT", defaultMaxInFlight),
	}
}

// Validate checks the config
func (c Config) Validate() error { return validate.Struct(c) }
