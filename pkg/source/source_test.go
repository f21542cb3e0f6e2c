package source_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-upscalin/pkg/frame"
	"github.com/askiada/go-upscalin/pkg/source"
)

func collect(t *testing.T, run func(out chan<- *frame.Frame) error) ([]*frame.Frame, error) {
	t.Helper()

	out := make(chan *frame.Frame)
	errC := make(chan error, 1)

	go func() {
		defer close(out)

		errC <- run(out)
	}()

	frames := []*frame.Frame{}
	for frm := range out {
		frames = append(frames, frm)
	}

	return frames, <-errC
}

func rawStream(res frame.Resolution, total int) []byte {
	buf := make([]byte, 0, res.RawSize()*total)
	for i := range total {
		buf = append(buf, bytes.Repeat([]byte{byte(i)}, res.RawSize())...)
	}

	return buf
}

func TestParseProbe(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		data    string
		want    source.Info
		wantErr error
	}{
		"counted packets": {
			data: `{"streams":[{"width":1920,"height":1080,"avg_frame_rate":"30/1","nb_read_packets":"300","duration":"10.000000"}]}`,
			want: source.Info{TotalFrames: 300, Width: 1920, Height: 1080, FrameRate: 30},
		},
		"rate from duration": {
			data: `{"streams":[{"width":100,"height":100,"avg_frame_rate":"25/1","nb_frames":"50"}],"format":{"duration":"4.0"}}`,
			want: source.Info{TotalFrames: 50, Width: 100, Height: 100, FrameRate: 12.5},
		},
		"count estimated": {
			data: `{"streams":[{"width":64,"height":48,"avg_frame_rate":"0/0","r_frame_rate":"10/1"}],"format":{"duration":"2.5"}}`,
			want: source.Info{TotalFrames: 25, Width: 64, Height: 48, FrameRate: 10},
		},
		"still image": {
			data: `{"streams":[{"width":64,"height":48,"avg_frame_rate":"0/0","r_frame_rate":"25/1","nb_read_packets":"1"}],"format":{}}`,
			want: source.Info{TotalFrames: 1, Width: 64, Height: 48, FrameRate: 25},
		},
		"no stream": {
			data:    `{"streams":[]}`,
			wantErr: source.ErrNoVideoStream,
		},
		"no resolution": {
			data:    `{"streams":[{"width":0,"height":0}]}`,
			wantErr: source.ErrInvalidProbe,
		},
		"no rate": {
			data:    `{"streams":[{"width":10,"height":10}]}`,
			wantErr: source.ErrInvalidProbe,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := source.ParseProbe([]byte(tc.data))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want.TotalFrames, got.TotalFrames)
			assert.Equal(t, tc.want.Resolution(), got.Resolution())
			assert.InDelta(t, tc.want.FrameRate, got.FrameRate, 1e-9)
		})
	}
}

func TestParseProbeInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := source.ParseProbe([]byte("not json"))
	require.Error(t, err)
}

func TestReadRaw(t *testing.T) {
	t.Parallel()

	res := frame.Resolution{Width: 4, Height: 2}

	frames, err := collect(t, func(out chan<- *frame.Frame) error {
		count, err := source.ReadRaw(t.Context(), iotest.HalfReader(bytes.NewReader(rawStream(res, 5))), res, out)
		assert.Equal(t, 5, count)

		return err
	})
	require.NoError(t, err)
	require.Len(t, frames, 5)

	for i, frm := range frames {
		assert.Equal(t, i, frm.Index)
		assert.Equal(t, res, frm.Size())
		assert.Equal(t, color.RGBA{R: byte(i), G: byte(i), B: byte(i), A: 0xff}, frm.Image.RGBAAt(3, 1))
	}
}

func TestReadRawTruncated(t *testing.T) {
	t.Parallel()

	res := frame.Resolution{Width: 4, Height: 2}
	stream := rawStream(res, 3)

	frames, err := collect(t, func(out chan<- *frame.Frame) error {
		_, err := source.ReadRaw(t.Context(), bytes.NewReader(stream[:len(stream)-5]), res, out)

		return err
	})

	var failure *source.Failure

	require.ErrorAs(t, err, &failure)
	require.ErrorIs(t, err, source.ErrTruncatedFrame)
	assert.Equal(t, 2, failure.Index)
	assert.Equal(t, "decode", failure.Op)
	assert.Len(t, frames, 2)
}

func TestReadRawReadError(t *testing.T) {
	t.Parallel()

	res := frame.Resolution{Width: 2, Height: 2}

	_, err := collect(t, func(out chan<- *frame.Frame) error {
		_, err := source.ReadRaw(t.Context(), iotest.ErrReader(assert.AnError), res, out)

		return err
	})
	require.ErrorIs(t, err, assert.AnError)
}

func TestReadRawInvalidResolution(t *testing.T) {
	t.Parallel()

	_, err := source.ReadRaw(t.Context(), bytes.NewReader(nil), frame.Resolution{}, make(chan *frame.Frame))
	require.ErrorIs(t, err, source.ErrInvalidProbe)
}

func TestReadRawCancel(t *testing.T) {
	t.Parallel()

	res := frame.Resolution{Width: 2, Height: 2}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	count, err := source.ReadRaw(ctx, bytes.NewReader(rawStream(res, 3)), res, make(chan *frame.Frame))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count)
}

func TestSlice(t *testing.T) {
	t.Parallel()

	images := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 8, 6)),
		image.NewGray(image.Rect(0, 0, 8, 6)),
		image.NewRGBA(image.Rect(2, 2, 10, 8)),
	}
	src := &source.Slice{Images: images, FrameRate: 24}

	info, err := src.Probe(t.Context())
	require.NoError(t, err)
	assert.Equal(t, source.Info{TotalFrames: 3, Width: 8, Height: 6, FrameRate: 24}, info)

	frames, err := collect(t, func(out chan<- *frame.Frame) error {
		return src.Frames(t.Context(), out)
	})
	require.NoError(t, err)
	require.Len(t, frames, 3)

	for i, frm := range frames {
		assert.Equal(t, i, frm.Index)
		assert.Equal(t, frame.Resolution{Width: 8, Height: 6}, frm.Size())
	}
}

func TestSliceErrors(t *testing.T) {
	t.Parallel()

	_, err := (&source.Slice{}).Probe(t.Context())
	require.ErrorIs(t, err, source.ErrNoVideoStream)

	src := &source.Slice{Images: []image.Image{
		image.NewRGBA(image.Rect(0, 0, 8, 6)),
		image.NewRGBA(image.Rect(0, 0, 6, 8)),
	}}

	frames, err := collect(t, func(out chan<- *frame.Frame) error {
		return src.Frames(t.Context(), out)
	})

	var failure *source.Failure

	require.ErrorAs(t, err, &failure)
	require.ErrorIs(t, err, source.ErrResolution)
	assert.Equal(t, 1, failure.Index)
	assert.Len(t, frames, 1)
}

func TestFailureError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "source probe: "+assert.AnError.Error(), (&source.Failure{Op: "probe", Index: -1, Cause: assert.AnError}).Error())
	assert.Equal(t, "source decode frame 4: "+assert.AnError.Error(), (&source.Failure{Op: "decode", Index: 4, Cause: assert.AnError}).Error())
}

func TestFFmpegNotRestartable(t *testing.T) {
	t.Parallel()

	src := &source.FFmpeg{Path: "missing.mp4", FFprobe: "/nonexistent/ffprobe", FFmpeg: "/nonexistent/ffmpeg"}

	_, err := collect(t, func(out chan<- *frame.Frame) error {
		return src.Frames(t.Context(), out)
	})

	var failure *source.Failure

	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "probe", failure.Op)

	_, err = collect(t, func(out chan<- *frame.Frame) error {
		return src.Frames(t.Context(), out)
	})
	require.ErrorIs(t, err, source.ErrNotRestartable)
}
