package upscaler

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-upscalin/internal/mediatype"
	"github.com/askiada/go-upscalin/pkg/frame"
)

// ErrConfiguration is matched by every *ConfigurationError.
var ErrConfiguration = errors.New("invalid upscaler configuration")

// ErrInvalidResolution is returned when the chain maps the input to an empty resolution.
var ErrInvalidResolution = errors.New("chain produces an invalid resolution")

// ConfigurationError rejects a Config or a chain before anything runs.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// State is the progress of one input through the upscaler.
type State int

const (
	Probing State = iota
	ResolutionComputed
	Streaming
	Finalizing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Probing:
		return "probing"
	case ResolutionComputed:
		return "resolution computed"
	case Streaming:
		return "streaming"
	case Finalizing:
		return "finalizing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s is Completed or Failed.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// Result is the outcome of one input. Err is set exactly when State is Failed and holds the first
// failure; errors.As finds the *transform.Failure, *source.Failure or *sink.Failure behind it.
type Result struct {
	Err        error
	Input      string
	Output     string
	Kind       mediatype.Kind
	State      State
	Resolution frame.Resolution
	Frames     int
}

func (r Result) fail(err error) Result {
	r.State = Failed
	r.Err = err

	return r
}
