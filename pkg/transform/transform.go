// Package transform provides the image stages ("upscalers") applied to every frame and the chain
// that composes them.
//
// A Transform must honour one contract to be pipeline-safe: the resolution it announces through
// OutputSize is the resolution of every frame it returns from Apply. The chain checks this on each
// stage, because the encoder is opened with the announced resolution before any frame exists.
//
// Transforms are not required to be safe for concurrent use. Stages implementing Cloner are copied
// once per worker; the other ones are shared and serialized, see Chain.Replicate.
package transform

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
)

var (
	ErrNilTransform  = errors.New("transform must be set")
	ErrNilFrame      = errors.New("transform returned no frame")
	ErrSizeMismatch  = errors.New("output resolution differs from announced resolution")
	ErrIndexChanged  = errors.New("transform changed the frame index")
	ErrUnknownKind   = errors.New("unknown transform kind")
	ErrInvalidOption = errors.New("invalid transform option")
)

// Transform is one opaque image stage.
type Transform interface {
	// Name identifies the stage in logs and failures.
	Name() string
	// OutputSize returns the resolution produced from a width x height input. It must be pure.
	OutputSize(width, height int) (int, int)
	// Apply processes one frame and returns a frame with the same index.
	Apply(ctx context.Context, in *frame.Frame) (*frame.Frame, error)
}

// Cloner is implemented by transforms that can hand out an independent instance per worker.
type Cloner interface {
	Clone() Transform
}

// Failure reports a stage that rejected or could not process a frame.
type Failure struct {
	Cause error
	Name  string
	Stage int
	Index int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("transform stage %d (%s) failed on frame %d: %v", f.Stage, f.Name, f.Index, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

func outputResolution(t Transform, res frame.Resolution) frame.Resolution {
	w, h := t.OutputSize(res.Width, res.Height)

	return frame.Resolution{Width: w, Height: h}
}
