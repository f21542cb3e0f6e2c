// Package sink writes committed frames, in order, to their final destination.
package sink

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
)

var (
	ErrOutOfOrder  = errors.New("frame written out of order")
	ErrResolution  = errors.New("frame resolution differs from the opened format")
	ErrNotOpen     = errors.New("sink is not open")
	ErrAlreadyOpen = errors.New("sink is already open")
	ErrFormat      = errors.New("invalid format")
	ErrNilFrame    = errors.New("nil frame")
)

// Format is fixed when a sink is opened.
type Format struct {
	Width     int
	Height    int
	FrameRate float64
}

// Resolution returns the frame resolution of the format.
func (f Format) Resolution() frame.Resolution {
	return frame.Resolution{Width: f.Width, Height: f.Height}
}

// Sink consumes frames in index order. Write blocks while the destination is slow.
// Close flushes the destination and waits for it; it is safe to call after a failed Write.
type Sink interface {
	Open(ctx context.Context, format Format) error
	Write(ctx context.Context, frm *frame.Frame) error
	Close(ctx context.Context) error
}

// Failure is an error of the destination. Index is the frame being written, or -1.
type Failure struct {
	Cause error
	Op    string
	Index int
}

func (f *Failure) Error() string {
	if f.Index < 0 {
		return fmt.Sprintf("sink %s: %v", f.Op, f.Cause)
	}

	return fmt.Sprintf("sink %s frame %d: %v", f.Op, f.Index, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// guard checks that a sink receives a gapless sequence of frames at the opened resolution.
type guard struct {
	format Format
	next   int
	open   bool
}

func (g *guard) Open(format Format) error {
	if g.open {
		return &Failure{Op: "open", Index: -1, Cause: ErrAlreadyOpen}
	}

	if !format.Resolution().Valid() || format.FrameRate < 0 {
		return &Failure{Op: "open", Index: -1, Cause: errors.Wrapf(ErrFormat, "%s at %g fps", format.Resolution(), format.FrameRate)}
	}

	g.format = format
	g.next = 0
	g.open = true

	return nil
}

func (g *guard) Check(frm *frame.Frame) error {
	if frm == nil {
		return &Failure{Op: "write", Index: g.next, Cause: ErrNilFrame}
	}

	if !g.open {
		return &Failure{Op: "write", Index: frm.Index, Cause: ErrNotOpen}
	}

	if frm.Index != g.next {
		return &Failure{Op: "write", Index: frm.Index, Cause: errors.Wrapf(ErrOutOfOrder, "expected %d", g.next)}
	}

	if frm.Size() != g.format.Resolution() {
		return &Failure{Op: "write", Index: frm.Index, Cause: errors.Wrapf(ErrResolution, "got %s, opened %s", frm.Size(), g.format.Resolution())}
	}

	return nil
}

// Written advances the expected index once a frame was accepted.
func (g *guard) Written() {
	g.next++
}

func (g *guard) Close() {
	g.open = false
}
