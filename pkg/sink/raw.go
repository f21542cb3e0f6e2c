package sink

import (
	"context"
	"io"

	"github.com/askiada/go-upscalin/pkg/frame"
)

// Raw writes packed rgb24 frames to W and closes W on Close.
type Raw struct {
	W io.WriteCloser

	guard guard
	buf   []byte
}

var _ Sink = (*Raw)(nil)

func (r *Raw) Open(_ context.Context, format Format) error {
	err := r.guard.Open(format)
	if err != nil {
		return err
	}

	r.buf = make([]byte, 0, format.Resolution().RawSize())

	return nil
}

func (r *Raw) Write(_ context.Context, frm *frame.Frame) error {
	err := r.guard.Check(frm)
	if err != nil {
		return err
	}

	r.buf = frm.AppendRGB24(r.buf[:0])

	_, err = r.W.Write(r.buf)
	if err != nil {
		return &Failure{Op: "write", Index: frm.Index, Cause: err}
	}

	r.guard.Written()

	return nil
}

func (r *Raw) Close(_ context.Context) error {
	if !r.guard.open {
		return nil
	}

	r.guard.Close()

	err := r.W.Close()
	if err != nil {
		return &Failure{Op: "close", Index: -1, Cause: err}
	}

	return nil
}
