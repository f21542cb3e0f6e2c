package transform

import (
	"context"
	"sync"

	"github.com/askiada/go-upscalin/pkg/frame"
)

// Serialized guards a transform that must not be entered concurrently.
type Serialized struct {
	mu        sync.Mutex
	transform Transform
}

// Serialize wraps t, or returns t when it is already serialized.
func Serialize(t Transform) *Serialized {
	if s, ok := t.(*Serialized); ok {
		return s
	}

	return &Serialized{transform: t}
}

func (s *Serialized) Name() string {
	return s.transform.Name()
}

func (s *Serialized) OutputSize(width, height int) (int, int) {
	return s.transform.OutputSize(width, height)
}

func (s *Serialized) Apply(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transform.Apply(ctx, in)
}

// Unwrap returns the guarded transform.
func (s *Serialized) Unwrap() Transform {
	return s.transform
}
