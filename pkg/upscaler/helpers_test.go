package upscaler_test

import (
	"context"
	"image"
	"image/color"
	"math/rand/v2"
	"time"

	"go.uber.org/atomic"

	"github.com/askiada/go-upscalin/pkg/frame"
	"github.com/askiada/go-upscalin/pkg/sink"
	"github.com/askiada/go-upscalin/pkg/transform"
)

func solidImages(total, width, height int) []image.Image {
	images := make([]image.Image, total)

	for i := range images {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = byte(i), byte(i*7), byte(255-i), 0xff
		}

		images[i] = img
	}

	return images
}

// jitter is an identity stage sleeping a random time, so frames complete out of order.
type jitter struct {
	max time.Duration
}

func (jitter) Name() string { return "jitter" }

func (jitter) OutputSize(width, height int) (int, int) { return width, height }

func (j jitter) Apply(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Duration(rand.Int64N(int64(j.max) + 1))):
		return in, nil
	}
}

func (j jitter) Clone() transform.Transform { return j }

// failOn fails on one frame index.
type failOn struct {
	index int
}

func (failOn) Name() string { return "fail-on" }

func (failOn) OutputSize(width, height int) (int, int) { return width, height }

func (f failOn) Apply(_ context.Context, in *frame.Frame) (*frame.Frame, error) {
	if in.Index == f.index {
		return nil, errFrame
	}

	return in, nil
}

func (f failOn) Clone() transform.Transform { return f }

// liar announces a doubled resolution and does not double.
type liar struct{}

func (liar) Name() string { return "liar" }

func (liar) OutputSize(width, height int) (int, int) { return 2 * width, 2 * height }

func (liar) Apply(_ context.Context, in *frame.Frame) (*frame.Frame, error) { return in, nil }

// gauge records how many instances run Apply at the same time.
type gauge struct {
	active *atomic.Int64
	peak   *atomic.Int64
}

func newGauge() gauge {
	return gauge{active: atomic.NewInt64(0), peak: atomic.NewInt64(0)}
}

func (gauge) Name() string { return "gauge" }

func (gauge) OutputSize(width, height int) (int, int) { return width, height }

func (g gauge) Apply(_ context.Context, in *frame.Frame) (*frame.Frame, error) {
	current := g.active.Inc()
	defer g.active.Dec()

	for {
		old := g.peak.Load()
		if current <= old || g.peak.CompareAndSwap(old, current) {
			break
		}
	}

	time.Sleep(time.Millisecond)

	return in, nil
}

func (g gauge) Clone() transform.Transform { return g }

// failingSink rejects the frame at index.
type failingSink struct {
	sink.Memory
	index int
}

func (s *failingSink) Write(ctx context.Context, frm *frame.Frame) error {
	if frm.Index == s.index {
		return &sink.Failure{Op: "write", Index: frm.Index, Cause: errBrokenPipe}
	}

	return s.Memory.Write(ctx, frm)
}

func pixel(frm *frame.Frame) color.RGBA {
	return frm.Image.RGBAAt(0, 0)
}
