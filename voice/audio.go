package voice

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/pkg/errors"
)

// AudioSource supplies 16-bit little-endian PCM samples at 48 kHz to the
// audio sender. ReadFrame fills buf with up to one 20ms frame and returns
// the number of bytes written; it returns 0 at end of stream. IsStereo
// selects the frame's channel count, and therefore its sample count: 960
// samples for mono, 1920 for stereo.
type AudioSource interface {
	ReadFrame(buf []byte) (int, error)
	IsStereo() bool
	Close() error
}

// FFmpegSource decodes an arbitrary media file into raw PCM by spawning an
// ffmpeg subprocess and reading its stdout.
type FFmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stereo bool
}

// NewFFmpegSource spawns ffmpeg against path, applying volume gain v (1.0
// is unchanged) and decoding to the given channel count (1 or 2).
func NewFFmpegSource(ctx context.Context, path string, v float64, channels int) (*FFmpegSource, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-af", fmt.Sprintf("volume=%f", v),
		"-f", "s16le",
		"-ac", fmt.Sprintf("%d", channels),
		"-ar", "48000",
		"-acodec", "pcm_s16le",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "voice: failed to open ffmpeg stdout")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "voice: failed to start ffmpeg")
	}

	return &FFmpegSource{cmd: cmd, stdout: stdout, stereo: channels == 2}, nil
}

// ReadFrame fills buf from ffmpeg's stdout.
func (f *FFmpegSource) ReadFrame(buf []byte) (int, error) {
	n, err := io.ReadFull(f.stdout, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, nil
	}
	return n, err
}

// IsStereo reports the channel count ffmpeg was configured to decode to.
func (f *FFmpegSource) IsStereo() bool { return f.stereo }

// Close kills and reaps the ffmpeg subprocess, avoiding a zombie if the
// voice connection tears down before the stream ends naturally.
func (f *FFmpegSource) Close() error {
	_ = f.stdout.Close()
	if f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
	return f.cmd.Wait()
}
