package transform

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/internal/proc"
	"github.com/askiada/go-upscalin/pkg/frame"
)

const (
	inputPlaceholder  = "{input}"
	outputPlaceholder = "{output}"
)

// External runs an upscaling executable on every frame. The frame is written as a PNG file, the
// executable reads it and writes its result to another PNG file.
//
// The {input} and {output} arguments are replaced by the file paths. External is not a Cloner:
// these executables usually own a GPU context, so one instance is shared and serialized.
type External struct {
	name    string
	binary  string
	tempDir string
	args    []string
	scale   int
}

var _ Transform = (*External)(nil)

// NewExternal builds a stage that scales both dimensions by scale.
func NewExternal(name, binary string, scale int, args ...string) (*External, error) {
	if binary == "" {
		return nil, errors.Wrap(ErrInvalidOption, "binary must be set")
	}

	if scale < 1 {
		return nil, errors.Wrapf(ErrInvalidOption, "scale %d must be positive", scale)
	}

	return &External{
		name:   name,
		binary: binary,
		scale:  scale,
		args:   args,
	}, nil
}

// WithTempDir sets where the exchanged PNG files live. Empty means os.TempDir.
func (e *External) WithTempDir(dir string) *External {
	e.tempDir = dir

	return e
}

func (e *External) Name() string { return e.name }

func (e *External) OutputSize(width, height int) (int, int) {
	return width * e.scale, height * e.scale
}

func (e *External) Apply(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	dir, err := os.MkdirTemp(e.tempDir, "upscalin-")
	if err != nil {
		return nil, errors.Wrap(err, "unable to create work directory")
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "input.png")
	outputPath := filepath.Join(dir, "output.png")

	err = imgio.Save(inputPath, in.Image, imgio.PNGEncoder())
	if err != nil {
		return nil, errors.Wrap(err, "unable to write input image")
	}

	stderr := proc.NewTail(0)

	cmd := exec.CommandContext(ctx, e.binary, e.expandArgs(inputPath, outputPath)...) //nolint:gosec
	cmd.Stderr = stderr

	err = proc.Wrap(cmd.Run(), e.binary, stderr)
	if err != nil {
		return nil, err
	}

	img, err := imgio.Open(outputPath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read output image")
	}

	return frame.FromImage(in.Index, img), nil
}

func (e *External) expandArgs(inputPath, outputPath string) []string {
	args := make([]string, len(e.args))

	for i, arg := range e.args {
		arg = strings.ReplaceAll(arg, inputPlaceholder, inputPath)
		args[i] = strings.ReplaceAll(arg, outputPlaceholder, outputPath)
	}

	return args
}
