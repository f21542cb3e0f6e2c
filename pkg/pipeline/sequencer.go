package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Sequencer turns completions arriving in any order into commits in index order.
//
// Producers call Complete from any goroutine; it never blocks on the consumer. A single consumer
// runs Drain, which commits the element at the cursor as soon as it is available, then keeps
// committing the contiguous run that was already held. Elements completed ahead of the cursor wait
// in the holding area.
type Sequencer[T any] struct {
	mu      sync.Mutex
	holding map[int]T
	notify  chan struct{}
	// next is the index Drain takes next, cursor the number of committed elements.
	next   int
	cursor int
	closed bool
}

// NewSequencer returns a sequencer expecting index 0 first.
func NewSequencer[T any]() *Sequencer[T] {
	return &Sequencer[T]{
		holding: make(map[int]T),
		notify:  make(chan struct{}, 1),
	}
}

// Complete hands over the element at index.
func (s *Sequencer[T]) Complete(index int, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Wrapf(ErrSequencerClosed, "index %d", index)
	}

	if index < s.next {
		return errors.Wrapf(ErrIndexCommitted, "index %d, cursor %d", index, s.next)
	}

	if _, ok := s.holding[index]; ok {
		return errors.Wrapf(ErrDuplicateIndex, "index %d", index)
	}

	s.holding[index] = value
	s.signal()

	return nil
}

// Close tells Drain that no more elements will be completed.
func (s *Sequencer[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.signal()
}

// Cursor returns the number of committed elements, which is also the next index to commit.
func (s *Sequencer[T]) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor
}

// Pending returns how many completed elements wait for an earlier one.
func (s *Sequencer[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.holding)
}

// Drain commits elements in index order until the sequencer is closed and empty, commit fails or
// ctx is done. It must not be called concurrently.
func (s *Sequencer[T]) Drain(ctx context.Context, commit func(ctx context.Context, value T) error) error {
	for {
		value, ok, done, err := s.take()
		if err != nil {
			return err
		}

		if ok {
			err := commit(ctx, value)
			if err != nil {
				return err
			}

			s.mu.Lock()
			s.cursor++
			s.mu.Unlock()

			continue
		}

		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.notify:
		}
	}
}

func (s *Sequencer[T]) take() (T, bool, bool, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok := s.holding[s.next]; ok {
		delete(s.holding, s.next)
		s.next++

		return value, true, false, nil
	}

	if !s.closed {
		return zero, false, false, nil
	}

	if len(s.holding) > 0 {
		return zero, false, false, errors.Wrapf(ErrSequenceGap, "index %d missing, %d held", s.next, len(s.holding))
	}

	return zero, false, true, nil
}

func (s *Sequencer[T]) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
