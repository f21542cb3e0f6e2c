package measure

import "time"

// Measure keeps one metric per pipeline step.
type Measure interface {
	AddMetric(name string, concurrent int) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric accumulates the timings of one step.
type Metric interface {
	// AddDuration records the computation time of one element.
	AddDuration(elapsed time.Duration)
	// AddTransportDuration records the time one element took from inputStepName, waiting included.
	AddTransportDuration(inputStepName string, elapsed time.Duration)
	Count() int64
	Concurrent() int
	AVGDuration() time.Duration
	// AVGTransportDuration returns, per input step, the average transport time divided by the
	// step concurrency.
	AVGTransportDuration() map[string]time.Duration
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
}
