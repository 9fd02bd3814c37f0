// Package model is a client for an inference server speaking the KServe v2 JSON protocol.
// A Model is loaded once: its metadata supplies the class vocabulary, after which Predict
// sends one frame or audio window per call and returns logits plus per-class attentions.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emolens/internal/core/emotion"
	"emolens/internal/core/sampling"
	perr "emolens/internal/platform/errors"
	"emolens/internal/platform/logger"
)

// Info describes a loaded model
type Info struct {
	ID       string
	Name     string
	Platform string
	Device   string
	Labels   []string
}

// Model is safe for concurrent use; in-flight requests are bounded by MaxInFlight
type Model struct {
	cfg   Config
	base  string
	http  *http.Client
	vocab emotion.Vocabulary
	info  Info
	sem   chan struct{}
	log   logger.Logger
}

// Option customizes Load
type Option func(*Model)

// WithHTTPClient swaps the transport, mainly for tests
func WithHTTPClient(c *http.Client) Option {
	return func(m *Model) {
		if c != nil {
			m.http = c
		}
	}
}

// Load validates cfg, fetches model metadata and builds the vocabulary
func Load(ctx context.Context, cfg Config, opts ...Option) (*Model, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUA
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		cfg:  cfg,
		base: strings.TrimRight(cfg.URL, "/") + "/v2/models/" + url.PathEscape(cfg.ID),
		http: &http.Client{Timeout: cfg.Timeout},
		sem:  make(chan struct{}, cfg.MaxInFlight),
		log:  *logger.Named("model"),
	}
	for _, o := range opts {
		o(m)
	}

	var meta metadataResponse
	if err := m.do(ctx, http.MethodGet, m.base, nil, &meta); err != nil {
		return nil, perr.WithOp(err, "model.Load")
	}
	vocab, err := emotion.FromID2Label(meta.Parameters.ID2Label)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "model %s: bad id2label", cfg.ID)
	}
	m.vocab = vocab
	m.info = Info{
		ID:       cfg.ID,
		Name:     meta.Name,
		Platform: meta.Platform,
		Device:   cfg.Device,
		Labels:   vocab.Labels(),
	}
	if d := meta.Parameters.Device; d != "" && d != cfg.Device {
		m.log.Warn().Str("requested", cfg.Device).Str("served", d).Msg("model device differs from request")
		m.info.Device = d
	}
	m.log.Info().
		Str("model", cfg.ID).
		Str("platform", meta.Platform).
		Str("device", m.info.Device).
		Int("classes", vocab.Len()).
		Msg("model loaded")
	return m, nil
}

// Info returns the loaded model description
func (m *Model) Info() Info { return m.info }

// Vocabulary returns the class labels in logit order
func (m *Model) Vocabulary() emotion.Vocabulary { return m.vocab }

// Predict runs inference on one unit. Input that cannot be encoded and responses with
// the wrong shape are SampleFormat errors; transport failures are Unavailable.
func (m *Model) Predict(ctx context.Context, u sampling.Unit) (emotion.RawPrediction, error) {
	in, err := encodeUnit(u)
	if err != nil {
		return emotion.RawPrediction{}, err
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return emotion.RawPrediction{}, ctx.Err()
	}
	defer func() { <-m.sem }()

	req := inferRequest{
		Parameters: map[string]any{"device": m.cfg.Device},
		Inputs:     []tensor{in},
		Outputs:    []outputSpec{{Name: outLogits}, {Name: outAttentions}},
	}
	var resp inferResponse
	start := time.Now()
	if err := m.do(ctx, http.MethodPost, m.base+"/infer", req, &resp); err != nil {
		return emotion.RawPrediction{}, err
	}
	logger.C(ctx).Debug().Int("pos", u.Pos).Dur("latency", time.Since(start)).Msg("model infer")

	return decodePrediction(resp, m.vocab.Len())
}

// do sends body as JSON (when non nil) and decodes a 200 response into out
func (m *Model) do(ctx context.Context, method, u string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeSampleFormat, "model: encode request")
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "model: new request")
	}
	req.Header.Set("User-Agent", m.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "model: %s %s", method, u)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.Wrap(err, perr.ErrorCodeSampleFormat, "model: decode response")
	}
	return nil
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(b))
	var e errorResponse
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return perr.NotFoundf("model: %s", msg)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return perr.SampleFormatf("model: rejected input: %s", msg)
	case resp.StatusCode >= 500:
		return perr.Unavailablef("model: status %d: %s", resp.StatusCode, msg)
	default:
		return perr.Newf(perr.ErrorCodeUnknown, "model: status %d: %s", resp.StatusCode, msg)
	}
}

// String is used in logs
func (i Info) String() string {
	return fmt.Sprintf("%s (%s) on %s: %s", i.ID, i.Platform, i.Device, strings.Join(i.Labels, ","))
}
