package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

// Tracker is a pipeline option reporting every element consumed by a sink.
type Tracker struct {
	ctx       context.Context
	reporter  Reporter
	total     int
	committed atomic.Int64
	startTime time.Time
	final     sync.Once
}

var _ model.PipelineOption = (*Tracker)(nil)

// NewTracker reports to r, with ctx, the progress towards total committed elements.
func NewTracker(ctx context.Context, total int, r Reporter) *Tracker {
	if r == nil {
		r = Nop
	}

	return &Tracker{ctx: ctx, reporter: r, total: total, startTime: time.Now()}
}

// Committed returns the number of elements consumed so far.
func (t *Tracker) Committed() int {
	return int(t.committed.Load())
}

func (t *Tracker) snapshot(final bool) Progress {
	return Progress{
		Committed: t.Committed(),
		Total:     t.total,
		Elapsed:   time.Since(t.startTime),
		Final:     final,
	}
}

// Final sends the final snapshot. Only the first call reports.
func (t *Tracker) Final() {
	t.final.Do(func() {
		t.reporter.Report(t.ctx, t.snapshot(true))
	})
}

func (t *Tracker) New() error {
	t.startTime = time.Now()

	return nil
}

func (t *Tracker) PrepareStep(_, _ *model.StepInfo) error {
	return nil
}

func (t *Tracker) OnStepOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (t *Tracker) PrepareSink(_, _ *model.StepInfo) error {
	return nil
}

func (t *Tracker) OnSinkOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	t.committed.Inc()
	t.reporter.Report(t.ctx, t.snapshot(false))

	return nil
}

func (t *Tracker) AfterSink(_ *model.StepInfo, _ time.Duration) error {
	return nil
}

func (t *Tracker) Finish() error {
	t.Final()

	return nil
}
