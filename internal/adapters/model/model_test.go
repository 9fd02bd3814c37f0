package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"emolens/internal/core/emotion"
	"emolens/internal/core/sampling"
	"emolens/internal/platform/config"
	perr "emolens/internal/platform/errors"
	kit "emolens/internal/platform/testkit"
)

// fakeServer serves metadata for "vit-emotions" with three classes and answers infer
// with fixed logits; attentions are 2 per class
type fakeServer struct {
	mu       sync.Mutex
	lastReq  inferRequest
	status   int
	body     string
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/models/vit-emotions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"vit-emotions","platform":"pytorch","parameters":{"id2label":{"0":"Angry","1":"Happy","2":"Sad"},"device":"cpu"}}`))
	})
	mux.HandleFunc("POST /v2/models/vit-emotions/infer", func(w http.ResponseWriter, r *http.Request) {
		n := f.inflight.Add(1)
		defer f.inflight.Add(-1)
		for {
			p := f.peak.Load()
			if n <= p || f.peak.CompareAndSwap(p, n) {
				break
			}
		}
		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		var req inferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.mu.Lock()
		f.lastReq = req
		status, body := f.status, f.body
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = w.Write([]byte(`{"model_name":"vit-emotions","outputs":[
			{"name":"logits","shape":[1,3],"datatype":"FP32","data":[0,1,0]},
			{"name":"attentions","shape":[3,2],"datatype":"FP32","data":[0.5,0.5,1,1,0.25,0.25]}]}`))
	})
	return mux
}

func load(t *testing.T, f *fakeServer, mut ...func(*Config)) (*Model, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	cfg := Config{URL: srv.URL, ID: "vit-emotions", Device: "cpu", Timeout: 5 * time.Second, MaxInFlight: 1}
	for _, m := range mut {
		m(&cfg)
	}
	m, err := Load(context.Background(), cfg, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, srv
}

func frame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	return img
}

func TestLoad_Vocabulary(t *testing.T) {
	t.Parallel()

	m, _ := load(t, &fakeServer{})
	info := m.Info()
	if info.Name != "vit-emotions" || info.Platform != "pytorch" || info.Device != "cpu" {
		t.Fatalf("info = %+v", info)
	}
	if strings.Join(info.Labels, ",") != "angry,happy,sad" {
		t.Fatalf("labels = %v", info.Labels)
	}
	kit.MustContain(t, info.String(), "angry,happy,sad")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer((&fakeServer{}).handler(t))
	defer srv.Close()

	_, err := Load(context.Background(), Config{URL: srv.URL, ID: "missing", Device: "cpu", Timeout: time.Second, MaxInFlight: 1})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("unknown model err = %v", err)
	}

	_, err = Load(context.Background(), Config{URL: srv.URL, ID: "vit-emotions", Device: "tpu", Timeout: time.Second, MaxInFlight: 1})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("bad device err = %v", err)
	}

	_, err = Load(context.Background(), Config{URL: "http://127.0.0.1:1", ID: "x", Device: "cpu", Timeout: time.Second, MaxInFlight: 1})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("unreachable err = %v", err)
	}
}

func TestPredict_ImageRoundTrip(t *testing.T) {
	t.Parallel()

	f := &fakeServer{}
	m, _ := load(t, f)

	raw, err := m.Predict(context.Background(), sampling.Unit{Pos: 7, Image: frame()})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(raw.Logits) != 3 || len(raw.Attentions) != 3 || len(raw.Attentions[1]) != 2 {
		t.Fatalf("raw = %+v", raw)
	}

	f.mu.Lock()
	req := f.lastReq
	f.mu.Unlock()
	if req.Parameters["device"] != "cpu" {
		t.Fatalf("device param = %v", req.Parameters)
	}
	in := req.Inputs[0]
	if in.Datatype != "BYTES" || in.Name != "image" {
		t.Fatalf("input = %+v", in)
	}
	var data []string
	if err := json.Unmarshal(in.Data, &data); err != nil || len(data) != 1 {
		t.Fatalf("data = %s", in.Data)
	}
	pngBytes, err := base64.StdEncoding.DecodeString(data[0])
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(strings.NewReader(string(pngBytes)))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	scores, err := emotion.Combine(raw, m.Vocabulary())
	if err != nil {
		t.Fatal(err)
	}
	kit.MustApprox(t, scores.Sum(), 100, 1e-6)
	if top, _ := scores.Top(); top.Label != "happy" {
		t.Fatalf("top = %+v", top)
	}
}

func TestPredict_Audio(t *testing.T) {
	t.Parallel()

	f := &fakeServer{}
	m, _ := load(t, f)

	if _, err := m.Predict(context.Background(), sampling.Unit{Audio: []float32{0.1, -0.2, 0.3}, SampleRate: 16000}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	f.mu.Lock()
	in := f.lastReq.Inputs[0]
	f.mu.Unlock()
	if in.Datatype != "FP32" || len(in.Shape) != 2 || in.Shape[1] != 3 {
		t.Fatalf("input = %+v", in)
	}
	if in.Parameters["sample_rate"] != float64(16000) {
		t.Fatalf("params = %v", in.Parameters)
	}
}

func TestPredict_SampleFormatErrors(t *testing.T) {
	t.Parallel()

	m, _ := load(t, &fakeServer{})
	units := map[string]sampling.Unit{
		"no media":    {Pos: 1},
		"empty frame": {Image: image.NewRGBA(image.Rect(0, 0, 0, 0))},
		"empty audio": {Audio: []float32{}},
		"nan audio":   {Audio: []float32{float32(math.NaN())}},
	}
	for name, u := range units {
		if _, err := m.Predict(context.Background(), u); !perr.IsCode(err, perr.ErrorCodeSampleFormat) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestPredict_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   perr.ErrorCode
	}{
		{http.StatusBadRequest, perr.ErrorCodeSampleFormat},
		{http.StatusServiceUnavailable, perr.ErrorCodeUnavailable},
		{http.StatusTeapot, perr.ErrorCodeUnknown},
	}
	for _, tc := range cases {
		f := &fakeServer{status: tc.status, body: `{"error":"nope"}`}
		m, _ := load(t, f)
		_, err := m.Predict(context.Background(), sampling.Unit{Image: frame()})
		if !perr.IsCode(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestDecodePrediction_Shapes(t *testing.T) {
	t.Parallel()

	mk := func(logits, att string) inferResponse {
		var r inferResponse
		if err := json.Unmarshal([]byte(`{"outputs":[`+logits+`,`+att+`]}`), &r); err != nil {
			t.Fatal(err)
		}
		return r
	}
	good := `{"name":"logits","shape":[1,2],"data":[1,2]}`
	tests := map[string]inferResponse{
		"missing attentions": {Outputs: []tensor{{Name: "logits", Shape: []int{1, 2}, Data: json.RawMessage(`[1,2]`)}}},
		"wrong class count":  mk(`{"name":"logits","shape":[1,3],"data":[1,2,3]}`, `{"name":"attentions","shape":[3,1],"data":[1,1,1]}`),
		"attention rows":     mk(good, `{"name":"attentions","shape":[3,1],"data":[1,1,1]}`),
		"attention values":   mk(good, `{"name":"attentions","shape":[2,2],"data":[1,1,1]}`),
		"non numeric":        mk(good, `{"name":"attentions","shape":[2,1],"data":["a","b"]}`),
	}
	for name, resp := range tests {
		if _, err := decodePrediction(resp, 2); !perr.IsCode(err, perr.ErrorCodeSampleFormat) {
			t.Errorf("%s: err = %v", name, err)
		}
	}

	raw, err := decodePrediction(mk(good, `{"name":"attentions","shape":[2,3],"data":[1,2,3,4,5,6]}`), 2)
	if err != nil {
		t.Fatal(err)
	}
	if raw.Attentions[1][2] != 6 {
		t.Fatalf("attentions = %v", raw.Attentions)
	}
}

func TestPredict_BoundsInflight(t *testing.T) {
	t.Parallel()

	f := &fakeServer{delay: 20 * time.Millisecond}
	m, _ := load(t, f, func(c *Config) { c.MaxInFlight = 2 })

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Predict(context.Background(), sampling.Unit{Image: frame()}); err != nil {
				t.Errorf("Predict: %v", err)
			}
		}()
	}
	wg.Wait()
	if p := f.peak.Load(); p > 2 {
		t.Fatalf("peak in-flight = %d, want <= 2", p)
	}
}

func TestPredict_CanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	m, _ := load(t, &fakeServer{})
	m.sem <- struct{}{} // occupy the only slot
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Predict(ctx, sampling.Unit{Image: frame()}); err != context.Canceled {
		t.Fatalf("err = %v", err)
	}
	<-m.sem
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CORE_MODEL_ID", "vit-emotions")
	t.Setenv("CORE_MODEL_DEVICE", "GPU")
	t.Setenv("CORE_MODEL_MAX_INFLIGHT", "3")

	cfg := ConfigFromEnv(config.New())
	if cfg.ID != "vit-emotions" || cfg.Device != "gpu" || cfg.MaxInFlight != 3 || cfg.Timeout != defaultTimeout {
		t.Fatalf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cfg.MaxInFlight = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero in-flight should fail")
	}
}
