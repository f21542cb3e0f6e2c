package pipeline_test

import (
	"context"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/askiada/go-upscalin/pkg/pipeline"
	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

func identity(_ context.Context, _ int, in int) (int, error) {
	return in, nil
}

func TestAddOrderedStepNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddOrderedStep(nil, "step", &model.Step[int]{}, identity)
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddOrderedStepNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	_, err = pipeline.AddOrderedStep[int, int](pipe, "step", nil, identity)
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddOrderedStepNilFn(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	_, err = pipeline.AddOrderedStep[int, int](pipe, "step", &model.Step[int]{}, nil)
	require.ErrorIs(t, err, pipeline.ErrFnMustBeSet)
}

func TestAddOrderedStepInvalidOptions(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		opts    []pipeline.StepOption[int]
		wantErr error
	}{
		"zero concurrency": {
			opts:    []pipeline.StepOption[int]{pipeline.StepConcurrency[int](0)},
			wantErr: pipeline.ErrConcurrency,
		},
		"window below concurrency": {
			opts:    []pipeline.StepOption[int]{pipeline.StepConcurrency[int](4), pipeline.StepWindow[int](2)},
			wantErr: pipeline.ErrWindowTooSmall,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := pipeline.New(t.Context())
			require.NoError(t, err)

			_, err = pipeline.AddOrderedStep(pipe, "step", &model.Step[int]{Details: &model.StepInfo{}}, identity, tc.opts...)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAddOrderedStepKeepsOrder(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrent int
		window     int
	}{
		"sequential":       {concurrent: 1},
		"concurrent 2":     {concurrent: 2},
		"concurrent 3":     {concurrent: 3},
		"concurrent 8":     {concurrent: 8},
		"tight window":     {concurrent: 4, window: 4},
		"large window":     {concurrent: 4, window: 64},
		"more than inputs": {concurrent: 100},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			const total = 60

			pipe, err := pipeline.New(t.Context())
			require.NoError(t, err)

			root := addCounterRoot(t, pipe, total)

			running := atomic.NewInt64(0)
			peak := atomic.NewInt64(0)

			step, err := pipeline.AddOrderedStep(pipe, "sleepy", root, func(_ context.Context, slot int, in int) (string, error) {
				current := running.Inc()
				defer running.Dec()

				for {
					old := peak.Load()
					if current <= old || peak.CompareAndSwap(old, current) {
						break
					}
				}

				assert.Less(t, slot, tc.concurrent)
				time.Sleep(time.Duration(rand.IntN(1000)) * time.Microsecond)

				return strconv.Itoa(in), nil
			}, pipeline.StepConcurrency[string](tc.concurrent), pipeline.StepWindow[string](tc.window))
			require.NoError(t, err)

			got := []string{}
			err = pipeline.AddSink(pipe, "collect", step, func(_ context.Context, input string) error {
				got = append(got, input)

				return nil
			})
			require.NoError(t, err)

			require.NoError(t, pipe.Run())

			expected := make([]string, total)
			for i := range total {
				expected[i] = strconv.Itoa(i)
			}

			assert.Equal(t, expected, got)
			assert.LessOrEqual(t, peak.Load(), int64(tc.concurrent))
		})
	}
}

func TestAddOrderedStepFailureStopsOutput(t *testing.T) {
	t.Parallel()

	for _, concurrent := range []int{1, 2, 4, 16} {
		t.Run(strconv.Itoa(concurrent), func(t *testing.T) {
			t.Parallel()

			const failAt = 7

			pipe, err := pipeline.New(t.Context())
			require.NoError(t, err)

			root := addCounterRoot(t, pipe, 40)

			step, err := pipeline.AddOrderedStep(pipe, "failing", root, func(_ context.Context, _ int, in int) (int, error) {
				if in == failAt {
					return 0, assert.AnError
				}

				time.Sleep(time.Duration(rand.IntN(300)) * time.Microsecond)

				return in, nil
			}, pipeline.StepConcurrency[int](concurrent))
			require.NoError(t, err)

			got := []int{}
			err = pipeline.AddSink(pipe, "collect", step, func(_ context.Context, input int) error {
				got = append(got, input)

				return nil
			})
			require.NoError(t, err)

			err = pipe.Run()
			require.ErrorIs(t, err, assert.AnError)
			assert.LessOrEqual(t, len(got), failAt)
			assert.Equal(t, sequence(len(got)), got)
		})
	}
}

func TestAddOrderedStepCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	pipe, err := pipeline.New(ctx)
	require.NoError(t, err)

	step, err := pipeline.AddOrderedStep(pipe, "blocking", &model.Step[int]{
		Output:  createInputChan(t, 1000),
		Details: &model.StepInfo{Name: "input"},
	}, func(ctx context.Context, _ int, in int) (int, error) {
		if in == 5 {
			cancel()
		}

		return in, nil
	}, pipeline.StepConcurrency[int](3))
	require.NoError(t, err)

	got := []int{}
	err = pipeline.AddSink(pipe, "collect", step, func(_ context.Context, input int) error {
		got = append(got, input)

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, sequence(len(got)), got)
}

func TestAddOrderedStepChained(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(t.Context())
	require.NoError(t, err)

	root := addCounterRoot(t, pipe, 30)

	double, err := pipeline.AddOrderedStep(pipe, "double", root, func(_ context.Context, _ int, in int) (int, error) {
		time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)

		return in * 2, nil
	}, pipeline.StepConcurrency[int](4))
	require.NoError(t, err)

	increment, err := pipeline.AddOrderedStep(pipe, "increment", double, func(_ context.Context, _ int, in int) (int, error) {
		return in + 1, nil
	}, pipeline.StepConcurrency[int](2))
	require.NoError(t, err)

	got := []int{}
	err = pipeline.AddSink(pipe, "collect", increment, func(_ context.Context, input int) error {
		got = append(got, input)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())

	require.Len(t, got, 30)

	for i, value := range got {
		assert.Equal(t, i*2+1, value)
	}
}
