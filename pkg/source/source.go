// Package source produces the ordered frames of one input stream.
package source

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
)

var (
	ErrNotRestartable = errors.New("source failed and cannot be restarted")
	ErrNoVideoStream  = errors.New("no video stream")
	ErrInvalidProbe   = errors.New("invalid probe result")
	ErrTruncatedFrame = errors.New("stream ended inside a frame")
	ErrResolution     = errors.New("frame resolution differs from the stream")
)

// Info describes a stream before it is decoded.
type Info struct {
	TotalFrames int
	Width       int
	Height      int
	FrameRate   float64
}

// Resolution returns the nominal frame resolution.
func (i Info) Resolution() frame.Resolution {
	return frame.Resolution{Width: i.Width, Height: i.Height}
}

// Source is a finite stream of frames.
//
// Frames sends every frame to out with increasing indices starting at 0, and returns once the
// stream is exhausted or ctx is done. It does not close out. Frames is not resumable: after a
// failure it returns ErrNotRestartable.
type Source interface {
	Probe(ctx context.Context) (Info, error)
	Frames(ctx context.Context, out chan<- *frame.Frame) error
}

// Failure is a probe or decode error. Index is the frame being read, or -1.
type Failure struct {
	Cause error
	Op    string
	Index int
}

func (f *Failure) Error() string {
	if f.Index < 0 {
		return fmt.Sprintf("source %s: %v", f.Op, f.Cause)
	}

	return fmt.Sprintf("source %s frame %d: %v", f.Op, f.Index, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

func probeFailure(err error) error {
	return &Failure{Op: "probe", Index: -1, Cause: err}
}

func decodeFailure(index int, err error) error {
	return &Failure{Op: "decode", Index: index, Cause: err}
}

func send(ctx context.Context, out chan<- *frame.Frame, frm *frame.Frame) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- frm:
		return nil
	}
}
