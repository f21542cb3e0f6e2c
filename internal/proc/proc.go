// Package proc holds helpers shared by the packages driving ffmpeg, ffprobe and the upscaling
// executables.
package proc

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// DefaultTailSize is how much stderr is kept for error messages.
const DefaultTailSize = 512

// Tail is an io.Writer keeping the last bytes written to it. It is safe for concurrent use.
type Tail struct {
	mu   sync.Mutex
	buf  []byte
	size int
}

// NewTail returns a Tail keeping at most size bytes. A non-positive size means DefaultTailSize.
func NewTail(size int) *Tail {
	if size <= 0 {
		size = DefaultTailSize
	}

	return &Tail{size: size}
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.size; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}

	return len(p), nil
}

// String returns the kept bytes without surrounding whitespace.
func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return strings.TrimSpace(string(t.buf))
}

// Wrap annotates err from binary with what it printed on stderr. It returns nil for a nil err.
func Wrap(err error, binary string, stderr *Tail) error {
	if err == nil {
		return nil
	}

	msg := stderr.String()
	if msg == "" {
		return errors.Wrapf(err, "%s failed", binary)
	}

	return errors.Wrapf(err, "%s failed: %s", binary, msg)
}
