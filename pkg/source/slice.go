package source

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
)

// Slice is a source over images already in memory.
type Slice struct {
	Images    []image.Image
	FrameRate float64
}

var _ Source = (*Slice)(nil)

// Probe reports the resolution of the first image.
func (s *Slice) Probe(_ context.Context) (Info, error) {
	if len(s.Images) == 0 {
		return Info{}, probeFailure(ErrNoVideoStream)
	}

	bounds := s.Images[0].Bounds()

	return Info{
		TotalFrames: len(s.Images),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		FrameRate:   s.FrameRate,
	}, nil
}

// Frames sends every image. All images must share the resolution of the first one.
func (s *Slice) Frames(ctx context.Context, out chan<- *frame.Frame) error {
	info, err := s.Probe(ctx)
	if err != nil {
		return err
	}

	for index, img := range s.Images {
		frm := frame.FromImage(index, img)
		if frm.Size() != info.Resolution() {
			return decodeFailure(index, errors.Wrapf(ErrResolution, "got %s, stream is %s", frm.Size(), info.Resolution()))
		}

		err := send(ctx, out, frm)
		if err != nil {
			return err
		}
	}

	return nil
}
