package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	kit "emolens/internal/platform/testkit"
	dom "emolens/internal/services/analyse/domain"
)

type memUploader struct {
	key   string
	ctype string
	body  bytes.Buffer
	err   error
	calls int
}

func (m *memUploader) Put(ctx context.Context, key string, body io.Reader, _ int64, contentType string) error {
	m.calls++
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.key, m.ctype = key, contentType
	_, _ = io.Copy(&m.body, body)
	return m.err
}

func TestLogKey(t *testing.T) {
	job := dom.Job{
		RunID:       uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"),
		SessionID:   7,
		InterviewID: 42,
		Mode:        dom.ModeVideo,
	}
	at := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)
	if got := LogKey(job, at); got != "7/42/logs/videoLog_2024_03_01_14.05.09_0f8fad5b.log" {
		t.Fatalf("LogKey = %q", got)
	}
}

func TestRunner_UploadsRunLog(t *testing.T) {
	r := newRig(t, seg(1, 0, 0, 0, 2))
	up := &memUploader{}
	run := NewRunner(r.svc, up)
	run.now = func() time.Time { return time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC) }

	rep, err := run.Run(context.Background(), dom.Job{SessionID: 7, InterviewID: 42, Mode: dom.ModeAudio})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Job.RunID == uuid.Nil {
		t.Fatal("run id not assigned")
	}
	want := "7/42/logs/audioLog_2024_03_01_14.05.09_" + rep.Job.RunID.String()[:8] + ".log"
	if up.calls != 1 || up.key != want || up.ctype != "text/plain" {
		t.Fatalf("upload = %d %q %q", up.calls, up.key, up.ctype)
	}
	body := up.body.String()
	kit.MustContain(t, body, "run started")
	kit.MustContain(t, body, "result persisted")
	kit.MustContain(t, body, rep.Job.RunID.String())
}

func TestRunner_UploadsOnFailureAndCancel(t *testing.T) {
	r := newRig(t, seg(1, 0, 0, 2, 2))
	up := &memUploader{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(r.svc, up).Run(ctx, dom.Job{SessionID: 7, InterviewID: 42, Mode: dom.ModeVideo})
	if err == nil {
		t.Fatal("expected error")
	}
	if up.calls != 1 || !strings.Contains(up.body.String(), "run failed") {
		t.Fatalf("upload calls = %d body = %q", up.calls, up.body.String())
	}
}

func TestRunner_UploadErrorKeepsRunResult(t *testing.T) {
	r := newRig(t, seg(1, 0, 0, 0, 2))
	up := &memUploader{err: errors.New("bucket gone")}

	rep, err := NewRunner(r.svc, up).Run(context.Background(), dom.Job{SessionID: 7, InterviewID: 42, Mode: dom.ModeVideo})
	if err != nil || rep.Count(dom.StateDone) != 1 {
		t.Fatalf("rep = %+v err = %v", rep, err)
	}

	kit.MustNotPanic(t, func() {
		_, _ = NewRunner(r.svc, nil).Run(context.Background(), dom.Job{SessionID: 7, InterviewID: 42, Mode: dom.ModeVideo})
	})
	kit.MustPanic(t, func() { NewRunner(nil, up) })
}
