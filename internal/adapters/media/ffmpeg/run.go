// Package ffmpeg wraps the ffmpeg and ffprobe binaries: probing media, piping raw RGBA
// video frames from a seek point and extracting mono PCM audio to WAV.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"emolens/internal/platform/config"
)

// Tools holds the binary paths
type Tools struct {
	FFmpeg  string
	FFprobe string
	// GracePeriod is how long a canceled process gets between SIGTERM and SIGKILL
	GracePeriod time.Duration
}

// ToolsFromEnv reads MEDIA_FFMPEG and MEDIA_FFPROBE, defaulting to names on PATH
func ToolsFromEnv(c config.Conf) Tools {
	m := c.Prefix("MEDIA_")
	return Tools{
		FFmpeg:      m.MayString("FFMPEG", "ffmpeg"),
		FFprobe:     m.MayString("FFPROBE", "ffprobe"),
		GracePeriod: m.MayDuration("GRACE", 2*time.Second),
	}
}

func (t Tools) grace() time.Duration {
	if t.GracePeriod <= 0 {
		return 2 * time.Second
	}
	return t.GracePeriod
}

// command builds a process in its own group so cancel reaches the whole tree
func (t Tools) command(ctx context.Context, bin string, args ...string) *exec.Cmd {
	c := exec.CommandContext(ctx, bin, args...) //nolint:gosec // args are built here, not user input
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = t.grace()
	return c
}

// run executes bin to completion and returns stdout; stderr is folded into the error
func (t Tools) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	if bin == "" {
		return nil, fmt.Errorf("ffmpeg: binary is required")
	}
	c := t.command(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	c.Stdout, c.Stderr = &stdout, &stderr

	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg: %s killed by context: %w", bin, ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg: %s exit %d: %w: %s", bin, c.ProcessState.ExitCode(), err, tail(stderr.String(), 512))
	}
	return stdout.Bytes(), nil
}

// pipe starts bin and returns its stdout; Close kills the process and reaps it
type pipe struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	cancel context.CancelFunc
}

func (t Tools) startPipe(ctx context.Context, bin string, args ...string) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	c := t.command(ctx, bin, args...)
	out, err := c.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := c.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg: start %s: %w", bin, err)
	}
	return &pipe{cmd: c, out: out, cancel: cancel}, nil
}

func (p *pipe) Read(b []byte) (int, error) { return p.out.Read(b) }

func (p *pipe) Close() error {
	p.cancel()
	_ = p.out.Close()
	_ = p.cmd.Wait()
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
