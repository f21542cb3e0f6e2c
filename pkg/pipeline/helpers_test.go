package pipeline_test

import (
	"context"
	"testing"

	"github.com/askiada/go-upscalin/pkg/pipeline"
	"github.com/askiada/go-upscalin/pkg/pipeline/model"
)

func createInputChan(t *testing.T, total int) chan int {
	t.Helper()

	inputChan := make(chan int)

	go func() {
		defer close(inputChan)

		for i := range total {
			inputChan <- i
		}
	}()

	return inputChan
}

func addCounterRoot(t *testing.T, pipe *pipeline.Pipeline, total int) *model.Step[int] {
	t.Helper()

	step, err := pipeline.AddRootStep(pipe, "counter", func(ctx context.Context, rootChan chan<- int) error {
		for i := range total {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	})
	if err != nil {
		t.Fatalf("unable to add root step: %v", err)
	}

	return step
}

func processOutputChan(t *testing.T, output <-chan int) []int {
	t.Helper()

	res := []int{}
	for out := range output {
		res = append(res, out)
	}

	return res
}

func sequence(total int) []int {
	res := make([]int, total)
	for i := range total {
		res[i] = i
	}

	return res
}
