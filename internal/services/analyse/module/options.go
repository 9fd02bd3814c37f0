package module

import (
	"emolens/internal/adapters/media/ffmpeg"
	"emolens/internal/platform/config"
	"emolens/internal/platform/validate"
	"emolens/internal/services/analyse/domain"
)

// Options holds configuration settings for the analyse module
type Options struct {
	Interval    float64 `env:"CORE_ANALYSE_INTERVAL" validate:"gt=0"`
	Filename    string  `env:"CORE_ANALYSE_FILENAME" validate:"required,objkey"`
	VideoReduce string  `env:"CORE_ANALYSE_VIDEO_REDUCE" validate:"oneof=samples mean"`
	AudioReduce string  `env:"CORE_ANALYSE_AUDIO_REDUCE" validate:"oneof=samples mean"`
	AudioRate   int     `env:"CORE_ANALYSE_AUDIO_RATE" validate:"min=8000,max=192000"`
	TempDir     string  `env:"CORE_ANALYSE_TEMP_DIR"`
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	af := cfg.Prefix("CORE_ANALYSE_")
	return Options{
		Interval:    af.MayFloat64("INTERVAL", 1),
		Filename:    af.MayString("FILENAME", "video.mp4"),
		VideoReduce: af.MayString("VIDEO_REDUCE", string(domain.ReduceSamples)),
		AudioReduce: af.MayString("AUDIO_REDUCE", string(domain.ReduceMean)),
		AudioRate:   af.MayInt("AUDIO_RATE", ffmpeg.DefaultAudioRate),
		TempDir:     af.MayString("TEMP_DIR", ""),
	}
}

// Validate checks the options
func (o Options) Validate() error { return validate.Struct(o) }
