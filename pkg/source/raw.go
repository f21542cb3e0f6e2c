package source

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
)

// ReadRaw reads packed rgb24 frames of resolution res from r until EOF and sends them to out.
// It returns the number of frames sent. A stream ending inside a frame is a *Failure.
func ReadRaw(ctx context.Context, r io.Reader, res frame.Resolution, out chan<- *frame.Frame) (int, error) {
	if !res.Valid() {
		return 0, decodeFailure(0, errors.Wrapf(ErrInvalidProbe, "resolution %s", res))
	}

	buf := make([]byte, res.RawSize())

	for index := 0; ; index++ {
		_, err := io.ReadFull(r, buf)

		switch {
		case errors.Is(err, io.EOF):
			return index, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return index, decodeFailure(index, ErrTruncatedFrame)
		case err != nil:
			return index, decodeFailure(index, errors.Wrap(err, "unable to read frame"))
		}

		frm, err := frame.FromRGB24(index, res, buf)
		if err != nil {
			return index, decodeFailure(index, err)
		}

		err = send(ctx, out, frm)
		if err != nil {
			return index, err
		}
	}
}
