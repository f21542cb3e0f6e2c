package transform

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	bildtransform "github.com/anthonynsimon/bild/transform"
	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
)

const (
	maxResizeScale  = 16
	maxDenoiseRange = 10
)

var resizeFilters = map[string]bildtransform.ResampleFilter{
	"nearest":    bildtransform.NearestNeighbor,
	"box":        bildtransform.Box,
	"linear":     bildtransform.Linear,
	"gaussian":   bildtransform.Gaussian,
	"mitchell":   bildtransform.MitchellNetravali,
	"catmullrom": bildtransform.CatmullRom,
	"lanczos":    bildtransform.Lanczos,
}

// Identity returns every frame untouched.
type Identity struct{}

var (
	_ Transform = Identity{}
	_ Cloner    = Identity{}
)

func (Identity) Name() string { return "identity" }

func (Identity) OutputSize(width, height int) (int, int) { return width, height }

func (Identity) Apply(_ context.Context, in *frame.Frame) (*frame.Frame, error) { return in, nil }

func (i Identity) Clone() Transform { return i }

// ResizeConfig configures a plain resampling upscaler.
type ResizeConfig struct {
	Filter string  `yaml:"filter"`
	Scale  float64 `yaml:"scale"`
}

func (c *ResizeConfig) setDefaults() {
	if c.Scale == 0 {
		c.Scale = 2
	}

	if c.Filter == "" {
		c.Filter = "lanczos"
	}

	c.Filter = strings.ToLower(c.Filter)
}

// Validate checks the scale range and filter name.
func (c ResizeConfig) Validate() error {
	if c.Scale <= 0 || c.Scale > maxResizeScale {
		return errors.Wrapf(ErrInvalidOption, "resize scale %g out of (0, %d]", c.Scale, maxResizeScale)
	}

	if _, ok := resizeFilters[c.Filter]; !ok {
		return errors.Wrapf(ErrInvalidOption, "unknown resize filter %q", c.Filter)
	}

	return nil
}

// Resize resamples frames by a constant factor.
type Resize struct {
	filter bildtransform.ResampleFilter
	cfg    ResizeConfig
}

var (
	_ Transform = (*Resize)(nil)
	_ Cloner    = (*Resize)(nil)
)

// NewResize validates cfg and builds the stage.
func NewResize(cfg ResizeConfig) (*Resize, error) {
	cfg.setDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Resize{cfg: cfg, filter: resizeFilters[cfg.Filter]}, nil
}

func (r *Resize) Name() string {
	return fmt.Sprintf("resize(x%g, %s)", r.cfg.Scale, r.cfg.Filter)
}

func (r *Resize) OutputSize(width, height int) (int, int) {
	return scaleDimension(width, r.cfg.Scale), scaleDimension(height, r.cfg.Scale)
}

func (r *Resize) Apply(_ context.Context, in *frame.Frame) (*frame.Frame, error) {
	w, h := r.OutputSize(in.Size().Width, in.Size().Height)

	return in.WithImage(bildtransform.Resize(in.Image, w, h, r.filter)), nil
}

func (r *Resize) Clone() Transform { return r }

func scaleDimension(v int, scale float64) int {
	return max(1, int(math.Round(float64(v)*scale)))
}

// Sharpen applies an unsharp kernel, keeping the resolution.
type Sharpen struct{}

var (
	_ Transform = Sharpen{}
	_ Cloner    = Sharpen{}
)

func (Sharpen) Name() string { return "sharpen" }

func (Sharpen) OutputSize(width, height int) (int, int) { return width, height }

func (Sharpen) Apply(_ context.Context, in *frame.Frame) (*frame.Frame, error) {
	return in.WithImage(effect.Sharpen(in.Image)), nil
}

func (s Sharpen) Clone() Transform { return s }

// DenoiseConfig configures the median denoiser.
type DenoiseConfig struct {
	Radius float64 `yaml:"radius"`
}

// Validate checks the radius range.
func (c DenoiseConfig) Validate() error {
	if c.Radius <= 0 || c.Radius > maxDenoiseRange {
		return errors.Wrapf(ErrInvalidOption, "denoise radius %g out of (0, %d]", c.Radius, maxDenoiseRange)
	}

	return nil
}

// Denoise runs a median filter, keeping the resolution.
type Denoise struct {
	cfg DenoiseConfig
}

var (
	_ Transform = (*Denoise)(nil)
	_ Cloner    = (*Denoise)(nil)
)

// NewDenoise validates cfg and builds the stage. A zero radius defaults to 1.
func NewDenoise(cfg DenoiseConfig) (*Denoise, error) {
	if cfg.Radius == 0 {
		cfg.Radius = 1
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Denoise{cfg: cfg}, nil
}

func (d *Denoise) Name() string {
	return fmt.Sprintf("denoise(r=%g)", d.cfg.Radius)
}

func (d *Denoise) OutputSize(width, height int) (int, int) { return width, height }

func (d *Denoise) Apply(_ context.Context, in *frame.Frame) (*frame.Frame, error) {
	return in.WithImage(effect.Median(in.Image, d.cfg.Radius)), nil
}

func (d *Denoise) Clone() Transform { return d }
