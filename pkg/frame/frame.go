// Package frame defines the raster unit that flows through the upscaling pipeline.
//
// A Frame is owned by exactly one pipeline stage at a time. Stages hand frames over through
// channels and never mutate a frame they have already passed on.
package frame

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// BytesPerPixel is the size of one packed rgb24 pixel, the layout exchanged with the decoder and
// encoder processes.
const BytesPerPixel = 3

// ErrBufferSize is returned when a raw buffer does not match the declared resolution.
var ErrBufferSize = errors.New("buffer size does not match resolution")

// Resolution is a width/height pair in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// RawSize is the number of bytes of one rgb24 frame at this resolution.
func (r Resolution) RawSize() int {
	return r.Width * r.Height * BytesPerPixel
}

// Frame is an image plus its zero-based position in the stream.
type Frame struct {
	Image *image.RGBA
	Index int
}

// New wraps img as the frame at index.
func New(index int, img *image.RGBA) *Frame {
	return &Frame{Index: index, Image: img}
}

// FromImage converts any image into an RGBA frame anchored at the origin.
func FromImage(index int, img image.Image) *Frame {
	return New(index, ToRGBA(img))
}

// WithImage returns a frame at the same index holding img.
func (f *Frame) WithImage(img *image.RGBA) *Frame {
	return New(f.Index, img)
}

// Size returns the frame resolution.
func (f *Frame) Size() Resolution {
	if f == nil || f.Image == nil {
		return Resolution{}
	}

	bounds := f.Image.Bounds()

	return Resolution{Width: bounds.Dx(), Height: bounds.Dy()}
}

// ToRGBA returns img as an *image.RGBA whose bounds start at (0, 0), copying only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return rgba
}

// FromRGB24 builds a frame from a packed rgb24 buffer.
func FromRGB24(index int, res Resolution, buf []byte) (*Frame, error) {
	if len(buf) != res.RawSize() {
		return nil, errors.Wrapf(ErrBufferSize, "got %d bytes for %s", len(buf), res)
	}

	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	for src, dst := 0, 0; src < len(buf); src, dst = src+BytesPerPixel, dst+4 {
		img.Pix[dst] = buf[src]
		img.Pix[dst+1] = buf[src+1]
		img.Pix[dst+2] = buf[src+2]
		img.Pix[dst+3] = 0xff
	}

	return New(index, img), nil
}

// AppendRGB24 appends the frame pixels in packed rgb24 layout to dst.
func (f *Frame) AppendRGB24(dst []byte) []byte {
	res := f.Size()
	img := ToRGBA(f.Image)

	for y := 0; y < res.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+res.Width*4]
		for x := 0; x < len(row); x += 4 {
			dst = append(dst, row[x], row[x+1], row[x+2])
		}
	}

	return dst
}
