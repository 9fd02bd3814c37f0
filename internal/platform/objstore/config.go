package objstore

import (
	"emolens/internal/platform/config"
	"emolens/internal/platform/validate"
)

// DefaultRegion is used when SERVICE_STORAGE_REGION is unset
const DefaultRegion = "us-east-1"

// Config holds S3 (or S3-compatible) connectivity
type Config struct {
	Bucket    string `env:"SERVICE_STORAGE_BUCKET" validate:"required"`
	Region    string `env:"SERVICE_STORAGE_REGION" validate:"required"`
	Endpoint  string `env:"SERVICE_STORAGE_ENDPOINT" validate:"omitempty,url"`
	AccessKey string `env:"SERVICE_STORAGE_ACCESS_KEY" validate:"required_with=SecretKey"`
	SecretKey string `env:"SERVICE_STORAGE_SECRET_KEY" validate:"required_with=AccessKey"`
	// PathStyle forces path-style addressing; always on with a custom endpoint (MinIO and friends)
	PathStyle bool `env:"SERVICE_STORAGE_PATH_STYLE"`
}

// ConfigFromEnv reads SERVICE_STORAGE_* variables
func ConfigFromEnv(c config.Conf) Config {
	s := c.Prefix("SERVICE_STORAGE_")
	return Config{
		Bucket:    s.MayString("BUCKET", ""),
		Region:    s.MayString("REGION", DefaultRegion),
		Endpoint:  s.MayString("ENDPOINT", ""),
		AccessKey: s.MayString("ACCESS_KEY", ""),
		SecretKey: s.MayString("SECRET_KEY", ""),
		PathStyle: s.MayBool("PATH_STYLE", false),
	}
}

// Validate checks required fields
func (c Config) Validate() error { return validate.Struct(c) }
