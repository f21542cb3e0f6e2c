package measure

import (
	"sync"
	"time"
)

type transport struct {
	elapsed time.Duration
	total   int64
}

// DefaultMetric is a Metric safe for concurrent use.
type DefaultMetric struct {
	mu         sync.Mutex
	transports map[string]*transport
	elapsed    time.Duration
	end        time.Duration
	total      int64
	concurrent int
}

func newDefaultMetric(concurrent int) *DefaultMetric {
	if concurrent < 1 {
		concurrent = 1
	}

	return &DefaultMetric{
		transports: make(map[string]*transport),
		concurrent: concurrent,
	}
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.total++
	mt.elapsed += elapsed
}

func (mt *DefaultMetric) AddTransportDuration(inputStepName string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	tr, ok := mt.transports[inputStepName]
	if !ok {
		tr = &transport{}
		mt.transports[inputStepName] = tr
	}

	tr.elapsed += elapsed
	tr.total++
}

func (mt *DefaultMetric) Count() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) Concurrent() int {
	return mt.concurrent
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.total == 0 {
		return 0
	}

	return round(mt.elapsed / time.Duration(mt.total))
}

func (mt *DefaultMetric) AVGTransportDuration() map[string]time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	res := make(map[string]time.Duration, len(mt.transports))
	for name, tr := range mt.transports {
		if tr.total == 0 {
			continue
		}

		res[name] = round(tr.elapsed / time.Duration(tr.total) / time.Duration(mt.concurrent))
	}

	return res
}

func (mt *DefaultMetric) SetTotalDuration(total time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.end = total
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.end
}

var roundUnits = []time.Duration{time.Hour, time.Minute, time.Second, time.Millisecond, time.Microsecond}

// round keeps the precision of the largest unit below d.
func round(d time.Duration) time.Duration {
	for _, unit := range roundUnits {
		if d > unit {
			return d.Round(unit)
		}
	}

	return d
}

var _ Metric = (*DefaultMetric)(nil)
