// Package media holds the adapter shim that turns a job into per-segment streams:
// the raw recording is downloaded once per run, video is decoded through ffmpeg and
// audio is extracted once to a mono WAV decoded with beep.
package media

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"emolens/internal/adapters/media/ffmpeg"
	"emolens/internal/adapters/media/wav"
	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/logger"
	"emolens/internal/platform/objstore"
	"emolens/internal/services/analyse/domain"
)

// Fetcher downloads an object into a temp file
type Fetcher interface {
	Fetch(ctx context.Context, key, dir, pattern string) (path string, cleanup func(), err error)
}

// Tools is the ffmpeg surface the shim needs
type Tools interface {
	Probe(ctx context.Context, path string) (ffmpeg.Info, error)
	ExtractAudio(ctx context.Context, in, out string, rate int) error
}

// Config for media handling
type Config struct {
	// Filename is the raw recording under {session}/{interview}/raw/
	Filename  string
	AudioRate int
	// Interval sizes the audio windows, one window per sampling interval
	Interval float64
	// TempDir holds downloads; empty means os.TempDir
	TempDir string
}

type videoOpener func(ctx context.Context, path string, info ffmpeg.Info) (domain.Stream, error)

// Media implements domain.MediaPort
type Media struct {
	obj   Fetcher
	tools Tools
	cfg   Config

	openVideo videoOpener
}

// New constructs the media shim over the object store and ffmpeg
func New(obj Fetcher, tools ffmpeg.Tools, cfg Config) *Media {
	m := newMedia(obj, tools, cfg)
	m.openVideo = func(ctx context.Context, path string, info ffmpeg.Info) (domain.Stream, error) {
		st, err := tools.OpenVideo(ctx, path, info)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return m
}

func newMedia(obj Fetcher, tools Tools, cfg Config) *Media {
	if obj == nil {
		panic("analyse.media.New: nil object store")
	}
	if cfg.Filename == "" {
		cfg.Filename = "video.mp4"
	}
	if cfg.AudioRate <= 0 {
		cfg.AudioRate = ffmpeg.DefaultAudioRate
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1
	}
	return &Media{obj: obj, tools: tools, cfg: cfg}
}

// Open implements domain.MediaPort. Every error is a StreamOpen error.
func (m *Media) Open(ctx context.Context, job domain.Job) (domain.Source, error) {
	key := objstore.Interview{Session: job.Session(), Interview: job.Interview()}.Raw(m.cfg.Filename)
	path, cleanup, err := m.obj.Fetch(ctx, key, m.cfg.TempDir, "emolens-*"+filepath.Ext(m.cfg.Filename))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStreamOpen, "media: fetch %s", key)
	}
	rel := &release{fns: []func(){cleanup}}
	log := logger.C(ctx)

	switch job.Mode {
	case domain.ModeVideo:
		info, err := m.tools.Probe(ctx, path)
		if err != nil {
			rel.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeStreamOpen, "media: probe %s", key)
		}
		log.Info().
			Str("key", key).
			Int("width", info.Width).
			Int("height", info.Height).
			Float64("fps", info.FPS).
			Float64("duration", info.Duration).
			Msg("video ready")
		return &videoSource{release: rel, path: path, info: info, open: m.openVideo}, nil

	case domain.ModeAudio:
		out := path + ".wav"
		rel.fns = append(rel.fns, func() { _ = os.Remove(out) })
		if err := m.tools.ExtractAudio(ctx, path, out, m.cfg.AudioRate); err != nil {
			rel.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeStreamOpen, "media: extract audio from %s", key)
		}
		log.Info().Str("key", key).Int("rate", m.cfg.AudioRate).Msg("audio ready")
		return &audioSource{release: rel, path: out, interval: m.cfg.Interval}, nil

	default:
		rel.Close()
		return nil, perr.Newf(perr.ErrorCodeStreamOpen, "media: unknown mode %q", job.Mode)
	}
}

// release runs cleanups once
type release struct {
	once sync.Once
	fns  []func()
}

func (r *release) Close() error {
	r.once.Do(func() {
		for _, fn := range r.fns {
			fn()
		}
	})
	return nil
}

type videoSource struct {
	*release
	path string
	info ffmpeg.Info
	open videoOpener
}

func (v *videoSource) Stream(ctx context.Context) (domain.Stream, error) {
	st, err := v.open(ctx, v.path, v.info)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStreamOpen, "media: open video")
	}
	return st, nil
}

type audioSource struct {
	*release
	path     string
	interval float64
}

func (a *audioSource) Stream(ctx context.Context) (domain.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := wav.Open(a.path, a.interval)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStreamOpen, "media: open audio")
	}
	return st, nil
}
