package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

// OrderedFn processes one element. slot is the worker running it, in [0, concurrency).
type OrderedFn[I any, O any] func(ctx context.Context, slot int, in I) (O, error)

func prepareStep[I, O any](p *Pipeline, name string, input *model.Step[I], opts ...StepOption[O]) (*model.Step[O], error) {
	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.OrderedStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}

	for _, opt := range opts {
		opt(step)
	}

	if step.Details.Concurrent < 1 {
		return nil, errors.Wrapf(ErrConcurrency, "step %s: got %d", name, step.Details.Concurrent)
	}

	if step.Details.Window == 0 {
		step.Details.Window = defaultWindowFactor * step.Details.Concurrent
	}

	if step.Details.Window < step.Details.Concurrent {
		return nil, errors.Wrapf(ErrWindowTooSmall, "step %s: window %d, concurrency %d", name, step.Details.Window, step.Details.Concurrent)
	}

	for _, opt := range p.opts {
		err := opt.PrepareStep(input.Details, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	return step, nil
}

// dispatch admits every input element into the dispatcher, numbering them in arrival order.
// It closes the sequencer only when every job succeeded.
func dispatch[I, O any](ctx context.Context, opts []model.PipelineOption, dsp *Dispatcher, seq *Sequencer[O], input *model.Step[I], output *model.Step[O], oneToOneFn OrderedFn[I, O]) error {
	dspCtx := dsp.Context()
	index := 0

outer:
	for {
		start := time.Now()

		select {
		case <-dspCtx.Done():
			break outer
		case in, ok := <-input.Output:
			if !ok {
				break outer
			}

			jobIndex := index
			index++

			err := dsp.Submit(func(ctx context.Context, slot int) error {
				startFn := time.Now()

				out, err := oneToOneFn(ctx, slot, in)
				if err != nil {
					return err
				}

				endFn := time.Since(startFn)

				for _, opt := range opts {
					err := opt.OnStepOutput(input.Details, output.Details, time.Since(start), endFn)
					if err != nil {
						return errors.Wrap(err, "unable to run on step output function")
					}
				}

				return seq.Complete(jobIndex, out)
			})
			if err != nil {
				break outer
			}
		}
	}

	// A job error takes precedence over the cancellation it caused. The dispatcher context is
	// always done once Wait returned, so cancellation is checked on the step context.
	err := dsp.Wait()
	if err != nil {
		return err
	}

	err = ctx.Err()
	if err != nil {
		return err
	}

	seq.Close()

	return nil
}

func runOrdered[I, O any](ctx context.Context, opts []model.PipelineOption, input *model.Step[I], output *model.Step[O], oneToOneFn OrderedFn[I, O]) error {
	errGrp, dCtx := errgroup.WithContext(ctx)

	dsp, err := NewDispatcher(dCtx, output.Details.Concurrent, output.Details.Window)
	if err != nil {
		return err
	}

	seq := NewSequencer[O]()

	errGrp.Go(func() error {
		return dispatch(dCtx, opts, dsp, seq, input, output, oneToOneFn)
	})

	errGrp.Go(func() error {
		return seq.Drain(dCtx, func(ctx context.Context, out O) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case output.Output <- out:
				dsp.Release()

				return nil
			}
		})
	})

	return errGrp.Wait()
}

// AddOrderedStep adds a step running oneToOneFn on up to StepConcurrency elements at a time and
// emitting the results in input order. A failing element stops the step; elements after it are
// never emitted.
func AddOrderedStep[I any, O any](p *Pipeline, name string, input *model.Step[I], oneToOneFn OrderedFn[I, O], opts ...StepOption[O]) (*model.Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	if oneToOneFn == nil {
		return nil, ErrFnMustBeSet
	}

	step, err := prepareStep(p, name, input, opts...)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	decoratedError := newErrorChan(name, errC)

	go func() {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := runOrdered(p.ctx, p.opts, input, step, oneToOneFn)
		if err != nil {
			errC <- err
		}
	}()
	p.errcList.add(decoratedError)

	return step, nil
}
