// SPDX-License-Identifier: Apache-2.0

// Package metrics provides in-process metrics collection for a tenant
// engine: commit throughput and latency, admission outcomes by stable error
// kind, availability query latency, and reaper activity.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the interface for metrics collection. internal/core wires a
// Collector into C7 (commits), C5 (admission outcomes), C6 (queries), and
// C9 (hold expiry) at engine construction time.
type Collector interface {
	// RecordCommit records one attempted batch commit (C7).
	RecordCommit(ok bool, duration time.Duration, commandCount int)

	// RecordConflict records an admission failure by its stable error kind
	// (C5), e.g. "capacity exceeded" or "blocked by rule".
	RecordConflict(kind string)

	// RecordQuery records one availability query (C6).
	RecordQuery(duration time.Duration, resourceCount int, gapCount int)

	// RecordHoldExpired records the reaper (C9) releasing one hold.
	RecordHoldExpired()

	// RecordWALBytes records bytes appended to the WAL (C8) by one commit.
	RecordWALBytes(n int64)

	// GetStats returns a point-in-time snapshot.
	GetStats() *Stats

	// Reset clears all counters, for test isolation.
	Reset()
}

// Stats is an aggregated, point-in-time snapshot of a Collector.
type Stats struct {
	TotalCommits      int64
	SuccessfulCommits int64
	FailedCommits     int64
	CommandsCommitted int64
	CommitLatency     DurationStats

	ConflictsByKind map[string]int64

	TotalQueries  int64
	QueryLatency  DurationStats
	GapsEmitted   int64
	HoldsExpired  int64
	WALBytesTotal int64

	StartTime time.Time
	Uptime    time.Duration
}

// DurationStats summarizes a stream of durations.
type DurationStats struct {
	Count   int64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Average time.Duration
}

// InMemoryCollector is the default Collector: atomic counters plus a
// mutex-protected map for per-kind conflict counts.
type InMemoryCollector struct {
	mu sync.RWMutex

	totalCommits      int64
	successfulCommits int64
	failedCommits     int64
	commandsCommitted int64
	commitLatency     *durationAggregator

	conflictsByKind map[string]*int64

	totalQueries int64
	queryLatency *durationAggregator
	gapsEmitted  int64
	holdsExpired int64
	walBytes     int64

	startTime time.Time
}

// NewInMemoryCollector constructs a ready-to-use InMemoryCollector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		commitLatency:   newDurationAggregator(),
		conflictsByKind: make(map[string]*int64),
		queryLatency:    newDurationAggregator(),
		startTime:       time.Now(),
	}
}

func (c *InMemoryCollector) RecordCommit(ok bool, duration time.Duration, commandCount int) {
	atomic.AddInt64(&c.totalCommits, 1)
	if ok {
		atomic.AddInt64(&c.successfulCommits, 1)
		atomic.AddInt64(&c.commandsCommitted, int64(commandCount))
	} else {
		atomic.AddInt64(&c.failedCommits, 1)
	}
	c.commitLatency.add(duration)
}

func (c *InMemoryCollector) RecordConflict(kind string) {
	incrementMapCounter(&c.mu, c.conflictsByKind, kind)
}

func (c *InMemoryCollector) RecordQuery(duration time.Duration, resourceCount int, gapCount int) {
	atomic.AddInt64(&c.totalQueries, 1)
	atomic.AddInt64(&c.gapsEmitted, int64(gapCount))
	c.queryLatency.add(duration)
}

func (c *InMemoryCollector) RecordHoldExpired() {
	atomic.AddInt64(&c.holdsExpired, 1)
}

func (c *InMemoryCollector) RecordWALBytes(n int64) {
	atomic.AddInt64(&c.walBytes, n)
}

func (c *InMemoryCollector) GetStats() *Stats {
	return &Stats{
		TotalCommits:      atomic.LoadInt64(&c.totalCommits),
		SuccessfulCommits: atomic.LoadInt64(&c.successfulCommits),
		FailedCommits:     atomic.LoadInt64(&c.failedCommits),
		CommandsCommitted: atomic.LoadInt64(&c.commandsCommitted),
		CommitLatency:     c.commitLatency.stats(),
		ConflictsByKind:   c.copyMapCounters(),
		TotalQueries:      atomic.LoadInt64(&c.totalQueries),
		QueryLatency:      c.queryLatency.stats(),
		GapsEmitted:       atomic.LoadInt64(&c.gapsEmitted),
		HoldsExpired:      atomic.LoadInt64(&c.holdsExpired),
		WALBytesTotal:     atomic.LoadInt64(&c.walBytes),
		StartTime:         c.startTime,
		Uptime:            time.Since(c.startTime),
	}
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.totalCommits, 0)
	atomic.StoreInt64(&c.successfulCommits, 0)
	atomic.StoreInt64(&c.failedCommits, 0)
	atomic.StoreInt64(&c.commandsCommitted, 0)
	atomic.StoreInt64(&c.totalQueries, 0)
	atomic.StoreInt64(&c.gapsEmitted, 0)
	atomic.StoreInt64(&c.holdsExpired, 0)
	atomic.StoreInt64(&c.walBytes, 0)

	c.commitLatency = newDurationAggregator()
	c.queryLatency = newDurationAggregator()
	c.conflictsByKind = make(map[string]*int64)
	c.startTime = time.Now()
}

func incrementMapCounter(mu *sync.RWMutex, m map[string]*int64, key string) {
	mu.Lock()
	counter, exists := m[key]
	if !exists {
		var v int64
		counter = &v
		m[key] = counter
	}
	mu.Unlock()
	atomic.AddInt64(counter, 1)
}

func (c *InMemoryCollector) copyMapCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64, len(c.conflictsByKind))
	for k, v := range c.conflictsByKind {
		result[k] = atomic.LoadInt64(v)
	}
	return result
}

// durationAggregator aggregates duration statistics under a single mutex;
// it is cheap enough to call on the commit and query hot paths.
type durationAggregator struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func newDurationAggregator() *durationAggregator {
	return &durationAggregator{min: time.Duration(1<<63 - 1)}
}

func (d *durationAggregator) add(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.count++
	d.total += duration
	if duration < d.min {
		d.min = duration
	}
	if duration > d.max {
		d.max = duration
	}
}

func (d *durationAggregator) stats() DurationStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := DurationStats{Count: d.count, Total: d.total, Min: d.min, Max: d.max}
	if d.count > 0 {
		stats.Average = time.Duration(int64(d.total) / d.count)
	} else {
		stats.Min = 0
	}
	return stats
}

// NoOpCollector discards everything, for callers that want no metrics
// overhead. Engines created without an explicit Collector use an
// InMemoryCollector, not this.
type NoOpCollector struct{}

func (NoOpCollector) RecordCommit(ok bool, duration time.Duration, commandCount int) {}
func (NoOpCollector) RecordConflict(kind string)                                     {}
func (NoOpCollector) RecordQuery(duration time.Duration, resourceCount, gapCount int) {}
func (NoOpCollector) RecordHoldExpired()                                             {}
func (NoOpCollector) RecordWALBytes(n int64)                                         {}
func (NoOpCollector) GetStats() *Stats                                               { return &Stats{} }
func (NoOpCollector) Reset()                                                         {}
