package source

import (
	"context"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/askiada/go-upscalin/internal/proc"
	"github.com/askiada/go-upscalin/pkg/frame"
)

const (
	DefaultFFprobe = "ffprobe"
	DefaultFFmpeg  = "ffmpeg"
)

// FFmpeg decodes the first video stream of a file with the ffmpeg executables.
type FFmpeg struct {
	Path    string
	FFprobe string
	FFmpeg  string

	mu     sync.Mutex
	info   *Info
	failed atomic.Bool
}

var _ Source = (*FFmpeg)(nil)

// NewFFmpeg returns a source for path using the executables found in PATH.
func NewFFmpeg(path string) *FFmpeg {
	return &FFmpeg{Path: path, FFprobe: DefaultFFprobe, FFmpeg: DefaultFFmpeg}
}

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		RFrameRate    string `json:"r_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
		Duration      string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (s *FFmpeg) probeArgs() []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate,nb_frames,nb_read_packets,duration:format=duration",
		"-of", "json",
		s.Path,
	}
}

// Probe runs ffprobe once and caches the result.
func (s *FFmpeg) Probe(ctx context.Context) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info != nil {
		return *s.info, nil
	}

	binary := orDefault(s.FFprobe, DefaultFFprobe)
	stderr := proc.NewTail(0)

	cmd := exec.CommandContext(ctx, binary, s.probeArgs()...) //nolint:gosec
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		return Info{}, probeFailure(proc.Wrap(err, binary, stderr))
	}

	info, err := ParseProbe(out)
	if err != nil {
		return Info{}, probeFailure(err)
	}

	logger.Debugf(ctx, "probed %s: %d frames, %dx%d at %.3f fps", s.Path, info.TotalFrames, info.Width, info.Height, info.FrameRate)

	s.info = &info

	return info, nil
}

// ParseProbe reads the JSON printed by ffprobe. The frame rate is the number of frames divided
// by the duration; when the duration is unknown the declared average rate is used.
func ParseProbe(data []byte) (Info, error) {
	var out probeOutput

	err := sonic.Unmarshal(data, &out)
	if err != nil {
		return Info{}, errors.Wrap(err, "unable to decode ffprobe output")
	}

	if len(out.Streams) == 0 {
		return Info{}, ErrNoVideoStream
	}

	stream := out.Streams[0]
	info := Info{Width: stream.Width, Height: stream.Height}

	if !info.Resolution().Valid() {
		return Info{}, errors.Wrapf(ErrInvalidProbe, "resolution %s", info.Resolution())
	}

	declared := parseRate(stream.AvgFrameRate)
	if declared == 0 {
		declared = parseRate(stream.RFrameRate)
	}

	duration := parseFloat(stream.Duration)
	if duration == 0 {
		duration = parseFloat(out.Format.Duration)
	}

	info.TotalFrames = int(parseFloat(stream.NbReadPackets))
	if info.TotalFrames == 0 {
		info.TotalFrames = int(parseFloat(stream.NbFrames))
	}

	if info.TotalFrames == 0 {
		info.TotalFrames = int(math.Round(duration * declared))
	}

	if duration > 0 && info.TotalFrames > 0 {
		info.FrameRate = float64(info.TotalFrames) / duration
	} else {
		info.FrameRate = declared
	}

	if info.FrameRate <= 0 {
		return Info{}, errors.Wrap(ErrInvalidProbe, "unknown frame rate")
	}

	return info, nil
}

// parseRate reads "num/den" or a plain number. It returns 0 when s is not a valid rate.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}

	d := parseFloat(den)
	if d == 0 {
		return 0
	}

	return parseFloat(num) / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}

func (s *FFmpeg) decodeArgs() []string {
	return []string{
		"-v", "error",
		"-nostdin",
		"-i", s.Path,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	}
}

// Frames decodes the stream into rgb24 frames at the probed resolution.
func (s *FFmpeg) Frames(ctx context.Context, out chan<- *frame.Frame) error {
	if s.failed.Load() {
		return ErrNotRestartable
	}

	err := s.frames(ctx, out)
	if err != nil {
		s.failed.Store(true)
	}

	return err
}

func (s *FFmpeg) frames(ctx context.Context, out chan<- *frame.Frame) error {
	info, err := s.Probe(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	binary := orDefault(s.FFmpeg, DefaultFFmpeg)
	stderr := proc.NewTail(0)

	cmd := exec.CommandContext(ctx, binary, s.decodeArgs()...) //nolint:gosec
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return decodeFailure(0, errors.Wrap(err, "unable to open decoder output"))
	}

	err = cmd.Start()
	if err != nil {
		return decodeFailure(0, proc.Wrap(err, binary, stderr))
	}

	count, readErr := ReadRaw(ctx, stdout, info.Resolution(), out)
	if readErr != nil {
		cancel()
	}

	waitErr := cmd.Wait()

	switch {
	case readErr != nil:
		return readErr
	case ctx.Err() != nil:
		return ctx.Err()
	case waitErr != nil:
		return decodeFailure(count, proc.Wrap(waitErr, binary, stderr))
	}

	if count != info.TotalFrames {
		logger.Debugf(ctx, "%s decoded %d frames, probe counted %d", s.Path, count, info.TotalFrames)
	}

	return nil
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}

	return value
}
