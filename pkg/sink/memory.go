package sink

import (
	"context"
	"sync"

	"github.com/askiada/go-upscalin/pkg/frame"
)

// Memory keeps every written frame.
type Memory struct {
	mu     sync.Mutex
	guard  guard
	frames []*frame.Frame
	closed bool
}

var _ Sink = (*Memory)(nil)

func (m *Memory) Open(_ context.Context, format Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.guard.Open(format)
}

func (m *Memory) Write(_ context.Context, frm *frame.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.guard.Check(frm)
	if err != nil {
		return err
	}

	m.frames = append(m.frames, frm)
	m.guard.Written()

	return nil
}

func (m *Memory) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.guard.Close()
	m.closed = true

	return nil
}

// Frames returns the written frames in write order.
func (m *Memory) Frames() []*frame.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*frame.Frame(nil), m.frames...)
}

// Format returns the format the sink was last opened with.
func (m *Memory) Format() Format {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.guard.format
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}
