package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	"emolens/internal/core/sampling"
)

// opener starts a process and returns its stdout; tests swap it for canned frames
type opener func(ctx context.Context, bin string, args ...string) (io.ReadCloser, error)

// VideoStream decodes frames as RGBA through an ffmpeg pipe. Seek restarts ffmpeg at
// the frame's timestamp; Next reads one width*height*4 frame.
type VideoStream struct {
	ctx   context.Context
	tools Tools
	path  string
	info  Info
	open  opener

	rc  io.ReadCloser
	pos int
}

var _ sampling.Stream = (*VideoStream)(nil)

// OpenVideo returns a frame stream over path. info usually comes from Probe.
func (t Tools) OpenVideo(ctx context.Context, path string, info Info) (*VideoStream, error) {
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("ffmpeg: %s has no decodable video stream", path)
	}
	if !(info.FPS > 0) {
		return nil, fmt.Errorf("ffmpeg: %s has unknown frame rate", path)
	}
	return &VideoStream{ctx: ctx, tools: t, path: path, info: info, open: t.startPipe}, nil
}

// Rate is frames per second
func (v *VideoStream) Rate() float64 { return v.info.FPS }

// Info returns the probed stream info
func (v *VideoStream) Info() Info { return v.info }

func (v *VideoStream) frameSize() int { return v.info.Width * v.info.Height * 4 }

// args seeks on input so ffmpeg skips to the nearest keyframe and decodes forward
func (v *VideoStream) args(pos int) []string {
	ts := float64(pos) / v.info.FPS
	return []string{
		"-nostdin", "-v", "error",
		"-ss", strconv.FormatFloat(ts, 'f', 6, 64),
		"-i", v.path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-fps_mode", "passthrough",
		"pipe:1",
	}
}

// Seek restarts decoding at frame pos
func (v *VideoStream) Seek(pos int) error {
	if pos < 0 {
		return fmt.Errorf("ffmpeg: negative seek %d", pos)
	}
	if err := v.closePipe(); err != nil {
		return err
	}
	rc, err := v.open(v.ctx, v.tools.FFmpeg, v.args(pos)...)
	if err != nil {
		return err
	}
	v.rc, v.pos = rc, pos
	return nil
}

// Next reads the next frame. A truncated trailing frame counts as end of stream.
func (v *VideoStream) Next() (sampling.Unit, error) {
	if v.rc == nil {
		if err := v.Seek(v.pos); err != nil {
			return sampling.Unit{}, err
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, v.info.Width, v.info.Height))
	if _, err := io.ReadFull(v.rc, img.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if cerr := v.ctx.Err(); cerr != nil {
				return sampling.Unit{}, cerr
			}
			return sampling.Unit{}, io.EOF
		}
		return sampling.Unit{}, fmt.Errorf("ffmpeg: read frame %d: %w", v.pos, err)
	}
	u := sampling.Unit{Pos: v.pos, Image: img}
	v.pos++
	return u, nil
}

// Close stops the decoder
func (v *VideoStream) Close() error { return v.closePipe() }

func (v *VideoStream) closePipe() error {
	if v.rc == nil {
		return nil
	}
	err := v.rc.Close()
	v.rc = nil
	return err
}
