package fetchpool

import (
	"sync"
	"time"
)

// tracker is the batch's only shared state: a counter, a byte total, and a
// rolling window of recent item latencies for the ETA estimate. Workers
// update it under one mutex, which also serializes the progress callback.
type tracker struct {
	mu         sync.Mutex
	start      time.Time
	total      int
	workers    int
	completed  int
	bytes      int64
	latencies  []time.Duration
	nextSlot   int
	onProgress ProgressFunc
}

func newTracker(total, workers int, onProgress ProgressFunc) *tracker {
	if workers < 1 {
		workers = 1
	}
	return &tracker{
		start:      time.Now(),
		total:      total,
		workers:    workers,
		latencies:  make([]time.Duration, 0, latencyWindowCapacity),
		onProgress: onProgress,
	}
}

func (t *tracker) record(outcome Outcome, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	t.bytes += outcome.Bytes
	if len(t.latencies) < latencyWindowCapacity {
		t.latencies = append(t.latencies, latency)
	} else {
		t.latencies[t.nextSlot] = latency
		t.nextSlot = (t.nextSlot + 1) % latencyWindowCapacity
	}

	if t.onProgress == nil {
		return
	}
	t.onProgress(Progress{
		Completed: t.completed,
		Total:     t.total,
		Bytes:     t.bytes,
		Elapsed:   time.Since(t.start),
		ETA:       t.eta(),
		Last:      outcome,
	})
}

// eta projects the rolling mean item latency over the remaining items,
// spread across the worker count.
func (t *tracker) eta() time.Duration {
	remaining := t.total - t.completed
	if remaining <= 0 || len(t.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, latency := range t.latencies {
		sum += latency
	}
	mean := sum / time.Duration(len(t.latencies))
	return mean * time.Duration(remaining) / time.Duration(t.workers)
}
