// Package upscaler runs one input through the transform chain: a still image directly, a video
// through the ordered frame pipeline between a source and a sink.
package upscaler

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/frame"
	"github.com/askiada/go-upscalin/pkg/pipeline"
	"github.com/askiada/go-upscalin/pkg/pipeline/model"
	"github.com/askiada/go-upscalin/pkg/progress"
	"github.com/askiada/go-upscalin/pkg/sink"
	"github.com/askiada/go-upscalin/pkg/source"
	"github.com/askiada/go-upscalin/pkg/transform"
)

const (
	decodeStepName  = "decode"
	upscaleStepName = "upscale"
	encodeStepName  = "encode"
)

// Config tunes the upscaler. Only Workers is required.
type Config struct {
	// Workers is how many frames are upscaled at the same time.
	Workers int
	// Window bounds the frames admitted but not yet written. Zero means 2 x Workers.
	Window int
	// ProgressInterval is the minimum time between two progress reports.
	ProgressInterval time.Duration
	// Reporter receives the progress of every stream. Nil logs it.
	Reporter progress.Reporter
	// PipelineOptions returns extra options for the pipeline of input, e.g. a measure or a drawer.
	PipelineOptions func(input string) ([]model.PipelineOption, error)

	FFmpeg  string
	FFprobe string
	Encoder sink.EncoderConfig
}

func (c *Config) validate(transforms []transform.Transform) error {
	switch {
	case len(transforms) == 0:
		return &ConfigurationError{Field: "transforms", Reason: "at least one transform is required"}
	case c.Workers < 1:
		return &ConfigurationError{Field: "workers", Reason: "must be positive"}
	case c.Window != 0 && c.Window < c.Workers:
		return &ConfigurationError{Field: "window", Reason: "must be at least the number of workers"}
	case c.ProgressInterval < 0:
		return &ConfigurationError{Field: "progress interval", Reason: "must not be negative"}
	}

	for _, t := range transforms {
		if t == nil {
			return &ConfigurationError{Field: "transforms", Reason: "nil transform"}
		}
	}

	return nil
}

// Upscaler applies one transform chain to any number of inputs, one stream at a time.
type Upscaler struct {
	cfg   Config
	chain transform.Chain
	// workers[slot] is the chain of pipeline worker slot; the last one serves still images.
	workers []transform.Chain
	running sync.Mutex
}

// New validates cfg and the chain.
func New(cfg Config, transforms ...transform.Transform) (*Upscaler, error) {
	err := cfg.validate(transforms)
	if err != nil {
		return nil, err
	}

	if cfg.Window == 0 {
		cfg.Window = 2 * cfg.Workers
	}

	chain, err := transform.NewChain(transforms...)
	if err != nil {
		return nil, &ConfigurationError{Field: "transforms", Reason: err.Error()}
	}

	return &Upscaler{
		cfg:     cfg,
		chain:   chain,
		workers: chain.Replicate(cfg.Workers + 1),
	}, nil
}

// Chain returns the configured chain.
func (u *Upscaler) Chain() transform.Chain {
	return u.chain
}

// OutputResolution returns the resolution of a res input after the chain.
func (u *Upscaler) OutputResolution(res frame.Resolution) frame.Resolution {
	return u.chain.OutputResolution(res)
}

func (u *Upscaler) imageChain() transform.Chain {
	return u.workers[len(u.workers)-1]
}

// UpscaleImage runs the chain once on img.
func (u *Upscaler) UpscaleImage(ctx context.Context, img image.Image) (*image.RGBA, error) {
	out, err := u.imageChain().Apply(ctx, frame.FromImage(0, img))
	if err != nil {
		return nil, err
	}

	return out.Image, nil
}

func (u *Upscaler) reporter(input string) progress.Reporter {
	rep := u.cfg.Reporter
	if rep == nil {
		rep = progress.Log(input)
	}

	return progress.Throttle(rep, u.cfg.ProgressInterval)
}

// UpscaleStream upscales every frame of src and writes them, in order, to snk. The sink is
// opened with the chain output resolution before the first frame is decoded, and closed before
// UpscaleStream returns when it was opened.
func (u *Upscaler) UpscaleStream(ctx context.Context, src source.Source, snk sink.Sink) Result {
	return u.stream(ctx, "stream", src, snk)
}

func (u *Upscaler) stream(ctx context.Context, input string, src source.Source, snk sink.Sink) Result {
	u.running.Lock()
	defer u.running.Unlock()

	res := Result{Input: input, State: Probing}

	info, err := src.Probe(ctx)
	if err != nil {
		return res.fail(err)
	}

	res.Resolution = u.OutputResolution(info.Resolution())
	res.State = ResolutionComputed

	if !res.Resolution.Valid() {
		return res.fail(errors.Wrapf(ErrInvalidResolution, "%s becomes %s", info.Resolution(), res.Resolution))
	}

	logger.Debugf(ctx, "%s: %d frames at %s becomes %s", input, info.TotalFrames, info.Resolution(), res.Resolution)

	err = snk.Open(ctx, sink.Format{Width: res.Resolution.Width, Height: res.Resolution.Height, FrameRate: info.FrameRate})
	if err != nil {
		return res.fail(err)
	}

	res.State = Streaming

	tracker := progress.NewTracker(ctx, info.TotalFrames, u.reporter(input))

	streamErr := u.run(ctx, input, src, snk, tracker)

	res.Frames = tracker.Committed()
	tracker.Final()

	res.State = Finalizing

	closeErr := snk.Close(ctx)

	switch {
	case streamErr != nil:
		return res.fail(streamErr)
	case closeErr != nil:
		return res.fail(closeErr)
	}

	res.State = Completed

	return res
}

func (u *Upscaler) options(input string, tracker *progress.Tracker) ([]model.PipelineOption, error) {
	opts := []model.PipelineOption{tracker}

	if u.cfg.PipelineOptions == nil {
		return opts, nil
	}

	extra, err := u.cfg.PipelineOptions(input)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build pipeline options")
	}

	return append(opts, extra...), nil
}

func (u *Upscaler) run(ctx context.Context, input string, src source.Source, snk sink.Sink, tracker *progress.Tracker) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts, err := u.options(input, tracker)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(ctx, opts...)
	if err != nil {
		return err
	}

	decoded, err := pipeline.AddRootStep(pipe, decodeStepName, func(ctx context.Context, rootChan chan<- *frame.Frame) error {
		return src.Frames(ctx, rootChan)
	})
	if err != nil {
		return err
	}

	upscaled, err := pipeline.AddOrderedStep(pipe, upscaleStepName, decoded,
		func(ctx context.Context, slot int, in *frame.Frame) (*frame.Frame, error) {
			return u.workers[slot].Apply(ctx, in)
		},
		pipeline.StepConcurrency[*frame.Frame](u.cfg.Workers),
		pipeline.StepWindow[*frame.Frame](u.cfg.Window),
	)
	if err != nil {
		return err
	}

	err = pipeline.AddSink(pipe, encodeStepName, upscaled, snk.Write)
	if err != nil {
		return err
	}

	return pipe.Run()
}
