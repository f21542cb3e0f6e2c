// Package progress reports how many frames of a stream have been committed.
package progress

import (
	"context"
	"sync"
	"time"
)

// Progress is a snapshot of one stream. Final is set on the last snapshot of the stream, whether
// it completed or not.
type Progress struct {
	Committed int
	Total     int
	Elapsed   time.Duration
	Final     bool
}

// Rate returns the committed frames per second.
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}

	return float64(p.Committed) / p.Elapsed.Seconds()
}

// ETA estimates the remaining time from the current rate. It is zero when unknown.
func (p Progress) ETA() time.Duration {
	rate := p.Rate()
	if rate == 0 || p.Total <= p.Committed {
		return 0
	}

	return time.Duration(float64(p.Total-p.Committed) / rate * float64(time.Second))
}

// Percent returns the committed share of Total, or 0 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}

	return 100 * float64(p.Committed) / float64(p.Total)
}

// Reporter receives progress snapshots.
type Reporter interface {
	Report(ctx context.Context, p Progress)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, p Progress)

func (f ReporterFunc) Report(ctx context.Context, p Progress) {
	f(ctx, p)
}

// Nop drops every snapshot.
var Nop Reporter = ReporterFunc(func(context.Context, Progress) {})

type throttled struct {
	mu        sync.Mutex
	next      Reporter
	interval  time.Duration
	now       func() time.Time
	last      time.Time
	committed int
	sent      bool
}

// Throttle forwards to r at most one snapshot per interval. Snapshots going backwards are dropped;
// final snapshots are always forwarded.
func Throttle(r Reporter, interval time.Duration) Reporter {
	return throttleWithClock(r, interval, time.Now)
}

func throttleWithClock(r Reporter, interval time.Duration, now func() time.Time) Reporter {
	return &throttled{next: r, interval: interval, now: now}
}

func (t *throttled) Report(ctx context.Context, p Progress) {
	t.mu.Lock()

	if t.sent && p.Committed < t.committed {
		t.mu.Unlock()

		return
	}

	now := t.now()
	if !p.Final && t.sent && now.Sub(t.last) < t.interval {
		t.mu.Unlock()

		return
	}

	t.last = now
	t.committed = p.Committed
	t.sent = true

	t.mu.Unlock()

	t.next.Report(ctx, p)
}
