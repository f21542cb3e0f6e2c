package upscaler

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/internal/mediatype"
	"github.com/askiada/go-upscalin/pkg/frame"
	"github.com/askiada/go-upscalin/pkg/sink"
	"github.com/askiada/go-upscalin/pkg/source"
)

const (
	upscaledSuffix = "-upscaled"
	jpegQuality    = 95
)

// ErrSameFile is returned when the output path is the input path.
var ErrSameFile = errors.New("output would overwrite the input")

var imageExtensions = map[string]imgio.Encoder{
	".png":  imgio.PNGEncoder(),
	".jpg":  imgio.JPEGEncoder(jpegQuality),
	".jpeg": imgio.JPEGEncoder(jpegQuality),
}

func imageEncoder(path string) imgio.Encoder {
	if enc, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return enc
	}

	return imgio.PNGEncoder()
}

// OutputPath returns where the upscaled input is written.
//
// With no output, the result goes next to the input as <stem>-upscaled<ext>. An existing
// directory output receives the input file name. Still images keep their extension when it can be
// encoded, otherwise they become PNG files.
func OutputPath(input, output string, kind mediatype.Kind) (string, error) {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)

	if kind == mediatype.Image {
		if _, ok := imageExtensions[strings.ToLower(ext)]; !ok {
			ext = ".png"
		}
	}

	switch stat, err := os.Stat(output); {
	case output == "":
		output = filepath.Join(filepath.Dir(input), stem+upscaledSuffix+ext)
	case err == nil && stat.IsDir():
		output = filepath.Join(output, stem+ext)
	}

	same, err := samePath(input, output)
	if err != nil {
		return "", err
	}

	if same {
		return "", errors.Wrapf(ErrSameFile, "%s", input)
	}

	return output, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, errors.Wrapf(err, "unable to resolve %s", a)
	}

	absB, err := filepath.Abs(b)
	if err != nil {
		return false, errors.Wrapf(err, "unable to resolve %s", b)
	}

	return absA == absB, nil
}

// UpscaleFile upscales one image, GIF or video file into output, see OutputPath.
func (u *Upscaler) UpscaleFile(ctx context.Context, input, output string) Result {
	ctx = belt.WithField(ctx, "run_id", uuid.NewString())
	ctx = belt.WithField(ctx, "input", input)

	res := Result{Input: input, State: Probing}

	kind, mime, err := mediatype.DetectFile(input)
	if err != nil {
		return res.fail(err)
	}

	res.Kind = kind

	output, err = OutputPath(input, output, kind)
	if err != nil {
		return res.fail(err)
	}

	res.Output = output

	logger.Infof(ctx, "upscaling %s (%s) into %s", input, mime, output)

	if kind == mediatype.Image {
		return u.imageFile(ctx, res)
	}

	src := &source.FFmpeg{Path: input, FFprobe: u.cfg.FFprobe, FFmpeg: u.cfg.FFmpeg}
	snk := &sink.FFmpeg{Output: output, AudioFrom: input, Binary: u.cfg.FFmpeg, Encoder: u.cfg.Encoder}

	streamRes := u.stream(ctx, input, src, snk)
	streamRes.Output = output
	streamRes.Kind = kind

	return streamRes
}

func (u *Upscaler) imageFile(ctx context.Context, res Result) Result {
	img, err := imgio.Open(res.Input)
	if err != nil {
		return res.fail(&source.Failure{Op: "decode", Index: 0, Cause: err})
	}

	res.Resolution = u.OutputResolution(frame.FromImage(0, img).Size())
	res.State = ResolutionComputed

	if !res.Resolution.Valid() {
		return res.fail(errors.Wrapf(ErrInvalidResolution, "%s", res.Resolution))
	}

	res.State = Streaming

	out, err := u.UpscaleImage(ctx, img)
	if err != nil {
		return res.fail(err)
	}

	res.State = Finalizing

	err = imgio.Save(res.Output, out, imageEncoder(res.Output))
	if err != nil {
		return res.fail(&sink.Failure{Op: "write", Index: 0, Cause: err})
	}

	res.Frames = 1
	res.State = Completed

	return res
}

// UpscalePath upscales input, or every file directly inside input when it is a directory. A
// directory output is created when needed. In a directory, files that are neither images nor videos
// are skipped, and so are earlier results when writing next to the inputs. A failing file does not
// stop the following ones.
func (u *Upscaler) UpscalePath(ctx context.Context, input, output string) ([]Result, error) {
	stat, err := os.Stat(input)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", input)
	}

	if !stat.IsDir() {
		return []Result{u.UpscaleFile(ctx, input, output)}, nil
	}

	if output != "" {
		err := os.MkdirAll(output, 0o755)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create %s", output)
		}
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", input)
	}

	results := []Result{}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		if output == "" && strings.HasSuffix(strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())), upscaledSuffix) {
			continue
		}

		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		path := filepath.Join(input, entry.Name())

		res := u.UpscaleFile(ctx, path, output)
		if res.Kind == mediatype.Unknown && errors.Is(res.Err, mediatype.ErrUnsupported) {
			logger.Infof(ctx, "skipping %s: %v", path, res.Err)

			continue
		}

		results = append(results, res)
	}

	return results, nil
}
