package frame_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-upscalin/pkg/frame"
)

func TestFromRGB24(t *testing.T) {
	t.Parallel()

	res := frame.Resolution{Width: 2, Height: 1}
	buf := []byte{10, 20, 30, 40, 50, 60}

	got, err := frame.FromRGB24(7, res, buf)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Index)
	assert.Equal(t, res, got.Size())
	assert.Equal(t, color.RGBA{R: 40, G: 50, B: 60, A: 0xff}, got.Image.RGBAAt(1, 0))
	assert.Equal(t, buf, got.AppendRGB24(nil))
}

func TestFromRGB24WrongSize(t *testing.T) {
	t.Parallel()

	_, err := frame.FromRGB24(0, frame.Resolution{Width: 2, Height: 2}, make([]byte, 5))
	require.ErrorIs(t, err, frame.ErrBufferSize)
}

func TestToRGBAOffsetBounds(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.SetRGBA(2, 3, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	got := frame.ToRGBA(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 4}, got.RGBAAt(0, 1))
	assert.Same(t, src, frame.ToRGBA(src))
}

func TestResolution(t *testing.T) {
	t.Parallel()

	res := frame.Resolution{Width: 100, Height: 50}
	assert.Equal(t, "100x50", res.String())
	assert.True(t, res.Valid())
	assert.Equal(t, 15000, res.RawSize())
	assert.False(t, frame.Resolution{Width: 0, Height: 5}.Valid())

	var nilFrame *frame.Frame
	assert.Equal(t, frame.Resolution{}, nilFrame.Size())
}
