package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errcList  *errorChans
	startTime time.Time
	opts      []model.PipelineOption
}

// New creates a new pipeline. Steps start as soon as they are added and stop when ctx is done.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)

	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// waitForPipeline waits for results from all error channels.
// The first error cancels the pipeline. The channels are still drained so that every step has
// returned when waitForPipeline does.
func waitForPipeline(cancel context.CancelFunc, errs ...*errorChan) error {
	var first error

	for err := range mergeErrors(errs...) {
		if err == nil {
			continue
		}

		if first == nil {
			cancel()

			first = err

			continue
		}

		if isCancellation(first) && !isCancellation(err) {
			first = err
		}
	}

	return first
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Run waits for the pipeline to finish.
func (p *Pipeline) Run() error {
	defer p.cancel()

	err := waitForPipeline(p.cancel, p.errcList.list...)
	if err != nil {
		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
