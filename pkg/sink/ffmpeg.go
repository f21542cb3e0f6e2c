package sink

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/internal/proc"
	"github.com/askiada/go-upscalin/pkg/frame"
)

const DefaultFFmpeg = "ffmpeg"

const (
	gifFilter = "[0:v]split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse[gif]"
	gifOutput = "[gif]"
)

// EncoderConfig holds the video encoder settings. GIF outputs ignore it.
type EncoderConfig struct {
	Codec       string `yaml:"codec"`
	Preset      string `yaml:"preset"`
	Tune        string `yaml:"tune"`
	PixelFormat string `yaml:"pixel_format"`
	CRF         int    `yaml:"crf"`
}

// DefaultEncoder is H.264, preset slow, tuned for film, CRF 18, yuv420p.
func DefaultEncoder() EncoderConfig {
	return EncoderConfig{
		Codec:       "libx264",
		Preset:      "slow",
		Tune:        "film",
		CRF:         18,
		PixelFormat: "yuv420p",
	}
}

func (e EncoderConfig) args() []string {
	args := []string{"-c:v", e.Codec}

	if e.Preset != "" {
		args = append(args, "-preset", e.Preset)
	}

	if e.Tune != "" {
		args = append(args, "-tune", e.Tune)
	}

	if e.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(e.CRF))
	}

	if e.PixelFormat != "" {
		args = append(args, "-pix_fmt", e.PixelFormat)
	}

	return args
}

// FFmpeg pipes raw frames into an ffmpeg encoder writing Output. When AudioFrom is set, its audio
// stream, if any, is copied into the output.
type FFmpeg struct {
	Output    string
	AudioFrom string
	Binary    string
	Encoder   EncoderConfig

	guard  guard
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *proc.Tail
	buf    []byte
}

var _ Sink = (*FFmpeg)(nil)

// NewFFmpeg returns an encoder sink with the default encoder settings.
func NewFFmpeg(output, audioFrom string) *FFmpeg {
	return &FFmpeg{
		Output:    output,
		AudioFrom: audioFrom,
		Binary:    DefaultFFmpeg,
		Encoder:   DefaultEncoder(),
	}
}

func isGIF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gif")
}

// Args returns the ffmpeg arguments for format.
func (f *FFmpeg) Args(format Format) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", format.Resolution().String(),
	}

	if format.FrameRate > 0 {
		args = append(args, "-r", strconv.FormatFloat(format.FrameRate, 'f', -1, 64))
	}

	args = append(args, "-i", "-")

	if isGIF(f.Output) {
		return append(args, "-filter_complex", gifFilter, "-map", gifOutput, "-loop", "0", f.Output)
	}

	if f.AudioFrom != "" {
		args = append(args, "-i", f.AudioFrom, "-map", "0:v:0", "-map", "1:a?", "-c:a", "copy", "-shortest")
	} else {
		args = append(args, "-map", "0:v:0")
	}

	encoder := f.Encoder
	if encoder.Codec == "" {
		encoder = DefaultEncoder()
	}

	args = append(args, encoder.args()...)

	return append(args, f.Output)
}

// Open starts the encoder. It is stopped when ctx is done.
func (f *FFmpeg) Open(ctx context.Context, format Format) error {
	err := f.guard.Open(format)
	if err != nil {
		return err
	}

	binary := f.Binary
	if binary == "" {
		binary = DefaultFFmpeg
	}

	stderr := proc.NewTail(0)
	cmd := exec.CommandContext(ctx, binary, f.Args(format)...) //nolint:gosec
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		f.guard.Close()

		return &Failure{Op: "open", Index: -1, Cause: errors.Wrap(err, "unable to open encoder input")}
	}

	err = cmd.Start()
	if err != nil {
		f.guard.Close()

		return &Failure{Op: "open", Index: -1, Cause: proc.Wrap(err, binary, stderr)}
	}

	f.cmd, f.stdin, f.stderr = cmd, stdin, stderr

	logger.Debugf(ctx, "encoder started for %s at %s", f.Output, format.Resolution())

	f.buf = make([]byte, 0, format.Resolution().RawSize())

	return nil
}

func (f *FFmpeg) Write(_ context.Context, frm *frame.Frame) error {
	err := f.guard.Check(frm)
	if err != nil {
		return err
	}

	f.buf = frm.AppendRGB24(f.buf[:0])

	_, err = f.stdin.Write(f.buf)
	if err != nil {
		return &Failure{Op: "write", Index: frm.Index, Cause: proc.Wrap(err, f.cmd.Path, f.stderr)}
	}

	f.guard.Written()

	return nil
}

// Close ends the encoder input and waits for the encoder to exit.
func (f *FFmpeg) Close(ctx context.Context) error {
	if f.cmd == nil {
		return nil
	}

	cmd := f.cmd
	f.cmd = nil
	f.guard.Close()

	closeErr := f.stdin.Close()
	waitErr := cmd.Wait()

	if waitErr != nil {
		return &Failure{Op: "close", Index: -1, Cause: proc.Wrap(waitErr, cmd.Path, f.stderr)}
	}

	if closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
		return &Failure{Op: "close", Index: -1, Cause: closeErr}
	}

	logger.Debugf(ctx, "encoder finished %s", f.Output)

	return nil
}
