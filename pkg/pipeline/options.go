package pipeline

import "github.com/askiada/go-upscalin/pkg/pipeline/model"

// StepOption configures a step.
type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many elements an ordered step processes at the same time.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// StepWindow sets how many elements an ordered step admits before the oldest one is emitted.
// Zero means twice the concurrency.
func StepWindow[O any](window int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Window = window
	}
}
