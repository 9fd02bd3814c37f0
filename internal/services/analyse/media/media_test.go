package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"emolens/internal/adapters/media/ffmpeg"
	"emolens/internal/core/sampling"
	perr "emolens/internal/platform/errors"
	"emolens/internal/services/analyse/domain"
)

// fakeFetcher copies a local file into dir, as the object store would after a download
type fakeFetcher struct {
	src  string
	err  error
	keys []string
}

func (f *fakeFetcher) Fetch(_ context.Context, key, dir, pattern string) (string, func(), error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", func() {}, f.err
	}
	in, err := os.Open(f.src)
	if err != nil {
		return "", func() {}, err
	}
	defer in.Close()
	out, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", func() {}, err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return "", func() {}, err
	}
	name := out.Name()
	return name, func() { _ = os.Remove(name) }, nil
}

type fakeTools struct {
	info       ffmpeg.Info
	probeErr   error
	extractErr error
	rate       int
}

func (f *fakeTools) Probe(context.Context, string) (ffmpeg.Info, error) { return f.info, f.probeErr }

// ExtractAudio copies the input, which tests already write as WAV
func (f *fakeTools) ExtractAudio(_ context.Context, in, out string, rate int) error {
	f.rate = rate
	if f.extractErr != nil {
		return f.extractErr
	}
	b, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o600)
}

func writeTone(t *testing.T, rate, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for k := range samples {
			samples[k] = [2]float64{0.1, 0.1}
		}
		return len(samples), true
	})
	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Take(n, src), format); err != nil {
		t.Fatal(err)
	}
	return path
}

func job(mode domain.Mode) domain.Job {
	return domain.Job{RunID: uuid.New(), SessionID: 7, InterviewID: 42, Mode: mode}
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	m, err := filepath.Glob(filepath.Join(dir, "emolens-*"))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestOpen_Audio(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fetch := &fakeFetcher{src: writeTone(t, 8000, 8000*4)}
	tools := &fakeTools{}
	m := newMedia(fetch, tools, Config{Filename: "interview.mp4", Interval: 2, TempDir: dir})

	src, err := m.Open(context.Background(), job(domain.ModeAudio))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fetch.keys[0] != "7/42/raw/interview.mp4" || tools.rate != ffmpeg.DefaultAudioRate {
		t.Fatalf("key = %v rate = %d", fetch.keys, tools.rate)
	}
	if n := len(tempFiles(t, dir)); n != 2 {
		t.Fatalf("temp files = %d, want download and wav", n)
	}

	st, err := src.Stream(context.Background())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if st.Rate() != 8000 {
		t.Fatalf("rate = %v, want one unit per sample", st.Rate())
	}
	// 4s of audio; the second window is clipped at end of file
	var starts, sizes []int
	for smp, err := range sampling.New(2).Samples(st, sampling.Window{Start: 0.5, End: 8}) {
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		starts = append(starts, smp.Pos)
		sizes = append(sizes, len(smp.Unit.Audio))
	}
	if !slices.Equal(starts, []int{4000, 20000}) || !slices.Equal(sizes, []int{16000, 12000}) {
		t.Fatalf("window starts = %v sizes = %v", starts, sizes)
	}
	_ = st.Close()

	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	_ = src.Close()
	if left := tempFiles(t, dir); len(left) != 0 {
		t.Fatalf("temp files left: %v", left)
	}
}

func TestOpen_Video(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fetch := &fakeFetcher{src: writeTone(t, 8000, 10)}
	info := ffmpeg.Info{Width: 2, Height: 2, FPS: 25, HasVideo: true}
	m := newMedia(fetch, &fakeTools{info: info}, Config{TempDir: dir})

	var gotPath string
	m.openVideo = func(_ context.Context, path string, in ffmpeg.Info) (domain.Stream, error) {
		gotPath = path
		if in != info {
			t.Errorf("info = %+v", in)
		}
		return nil, errors.New("no decoder in tests")
	}

	src, err := m.Open(context.Background(), job(domain.ModeVideo))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fetch.keys[0] != "7/42/raw/video.mp4" || gotPath != "" {
		t.Fatalf("key = %v, opened before Stream: %q", fetch.keys, gotPath)
	}
	_, err = src.Stream(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeStreamOpen) {
		t.Fatalf("Stream err = %v", err)
	}
	if filepath.Ext(gotPath) != ".mp4" {
		t.Fatalf("path = %q", gotPath)
	}
	_ = src.Close()
	if left := tempFiles(t, dir); len(left) != 0 {
		t.Fatalf("temp files left: %v", left)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	tone := writeTone(t, 8000, 10)
	cases := map[string]struct {
		fetch *fakeFetcher
		tools *fakeTools
		mode  domain.Mode
	}{
		"missing object": {&fakeFetcher{err: perr.NotFoundf("objstore: no such key")}, &fakeTools{}, domain.ModeVideo},
		"probe fails":    {&fakeFetcher{src: tone}, &fakeTools{probeErr: errors.New("moov atom not found")}, domain.ModeVideo},
		"extract fails":  {&fakeFetcher{src: tone}, &fakeTools{extractErr: errors.New("no audio stream")}, domain.ModeAudio},
		"unknown mode":   {&fakeFetcher{src: tone}, &fakeTools{}, domain.Mode("text")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			m := newMedia(tc.fetch, tc.tools, Config{TempDir: dir})
			if _, err := m.Open(context.Background(), job(tc.mode)); !perr.IsCode(err, perr.ErrorCodeStreamOpen) {
				t.Fatalf("err = %v", err)
			}
			if left := tempFiles(t, dir); len(left) != 0 {
				t.Fatalf("temp files left: %v", left)
			}
		})
	}
}
