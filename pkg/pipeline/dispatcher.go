package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const defaultWindowFactor = 2

// Dispatcher runs jobs on a bounded number of workers.
//
// Two limits apply. At most workers jobs run at the same time. At most window jobs are admitted
// and not yet released: a job keeps its admission token after it finished, until the caller
// calls Release (typically once the job result has been committed downstream).
//
// Each running job receives a slot in [0, workers) that no other running job holds, so per-worker
// resources can be indexed by slot.
type Dispatcher struct {
	ctx    context.Context
	grp    *errgroup.Group
	window *semaphore.Weighted
	slots  chan int
	active atomic.Int64
	peak   atomic.Int64
}

// NewDispatcher creates a dispatcher. A zero window means twice the number of workers.
func NewDispatcher(ctx context.Context, workers, window int) (*Dispatcher, error) {
	if workers < 1 {
		return nil, errors.Wrapf(ErrConcurrency, "got %d", workers)
	}

	if window == 0 {
		window = defaultWindowFactor * workers
	}

	if window < workers {
		return nil, errors.Wrapf(ErrWindowTooSmall, "window %d, concurrency %d", window, workers)
	}

	grp, gCtx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	slots := make(chan int, workers)
	for slot := range workers {
		slots <- slot
	}

	return &Dispatcher{
		ctx:    gCtx,
		grp:    grp,
		window: semaphore.NewWeighted(int64(window)),
		slots:  slots,
	}, nil
}

// Context is done once a job failed or the parent context is done.
func (d *Dispatcher) Context() context.Context {
	return d.ctx
}

// Submit admits job and starts it on a free worker. It blocks while the window is full or every
// worker is busy. It fails only when the dispatcher context is done; the job is then not run.
func (d *Dispatcher) Submit(job func(ctx context.Context, slot int) error) error {
	err := d.ctx.Err()
	if err != nil {
		return errors.Wrap(err, "unable to admit job")
	}

	err = d.window.Acquire(d.ctx, 1)
	if err != nil {
		return errors.Wrap(err, "unable to admit job")
	}

	d.grp.Go(func() error {
		slot := <-d.slots
		defer func() { d.slots <- slot }()

		err := d.ctx.Err()
		if err != nil {
			return err
		}

		d.trackPeak(d.active.Inc())
		defer d.active.Dec()

		return job(d.ctx, slot)
	})

	return nil
}

// Release returns the admission token of one finished job.
func (d *Dispatcher) Release() {
	d.window.Release(1)
}

// Wait waits for every submitted job and returns the first job error. The dispatcher cannot
// be used after Wait returned.
func (d *Dispatcher) Wait() error {
	return d.grp.Wait()
}

// Peak returns the highest number of jobs that ran at the same time.
func (d *Dispatcher) Peak() int {
	return int(d.peak.Load())
}

func (d *Dispatcher) trackPeak(active int64) {
	for {
		peak := d.peak.Load()
		if active <= peak || d.peak.CompareAndSwap(peak, active) {
			return
		}
	}
}
