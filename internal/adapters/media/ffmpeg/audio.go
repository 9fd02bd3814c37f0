package ffmpeg

import (
	"context"
	"strconv"
)

// DefaultAudioRate is the sample rate speech models expect
const DefaultAudioRate = 16000

// ExtractAudio writes the first audio stream of in to out as mono 16-bit PCM WAV at rate Hz
func (t Tools) ExtractAudio(ctx context.Context, in, out string, rate int) error {
	if rate <= 0 {
		rate = DefaultAudioRate
	}
	_, err := t.run(ctx, t.FFmpeg, audioArgs(in, out, rate)...)
	return err
}

func audioArgs(in, out string, rate int) []string {
	return []string{
		"-nostdin", "-v", "error", "-y",
		"-i", in,
		"-map", "0:a:0",
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		out,
	}
}
