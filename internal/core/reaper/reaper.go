// SPDX-License-Identifier: Apache-2.0

// Package reaper implements C9, the expiry reaper: a periodic scan of
// every active hold, releasing any whose expires_at has passed through
// the same internal/core/mutation commit path every other write takes,
// so the WAL and broadcaster stay consistent with a reaper-driven release
// exactly as they would with an explicit one.
//
// The reaper never treats an expired-but-not-yet-reaped hold as capacity
// consuming — internal/core/model.Segment.ActiveAt already makes C5/C6
// treat it as absent the instant expires_at passes. The reaper's only job
// is eventually reclaiming the bookkeeping entry and emitting the
// hold_released event.
package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/availdb/timelinedb/internal/core/mutation"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
	"github.com/availdb/timelinedb/pkg/logging"
	"github.com/availdb/timelinedb/pkg/metrics"
	"github.com/availdb/timelinedb/pkg/retry"
)

// DefaultInterval is the reaper's regular scan cadence, in the small-
// seconds range spec.md leaves tunable but not protocol-configurable.
const DefaultInterval = 5 * time.Second

// Reaper periodically releases expired holds on one tenant's coordinator.
type Reaper struct {
	coordinator *mutation.Coordinator
	interval    time.Duration
	backoff     retry.BackoffStrategy
	metrics     metrics.Collector
	logger      logging.Logger
	now         func() int64

	mu       sync.Mutex
	attempts map[string]int // holdID -> consecutive failed-release attempts since last success
}

// New builds a Reaper over coordinator. now supplies the current wall
// clock in epoch milliseconds; production callers pass time.Now
// wrapped to milliseconds, tests pass a fixed or steppable clock.
func New(coordinator *mutation.Coordinator, interval time.Duration, m metrics.Collector, lg logging.Logger, now func() int64) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		coordinator: coordinator,
		interval:    interval,
		backoff:     retry.NewExponentialBackoff(),
		metrics:     m,
		logger:      lg,
		now:         now,
		attempts:    make(map[string]int),
	}
}

// Run scans on a fixed interval until ctx is canceled. The interval timer
// is never itself delayed by a failed release — a release that fails is
// retried on its own backoff schedule in a background goroutine, while
// the regular tick keeps discovering any other holds that have newly
// expired in the meantime.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one scan-and-release pass immediately, for tests and for
// Run's regular cadence alike.
func (r *Reaper) Tick(ctx context.Context) {
	now := r.now()
	expired := r.coordinator.Snapshot().Alloc.ExpiredHolds(now)
	for _, h := range expired {
		r.release(ctx, h.ID, now)
	}
}

func (r *Reaper) release(ctx context.Context, holdID string, now int64) {
	_, err := r.coordinator.Commit([]mutation.Command{{Kind: mutation.ReleaseHold, HoldID: holdID}}, now)
	if err == nil {
		r.clearAttempts(holdID)
		if r.metrics != nil {
			r.metrics.RecordHoldExpired()
		}
		return
	}

	if kind, ok := timelineerrors.KindOf(err); ok && kind == timelineerrors.KindNotFound {
		// Already released by an explicit delete or a prior reaper pass
		// racing this one; nothing left to do.
		r.clearAttempts(holdID)
		return
	}

	if r.logger != nil {
		r.logger.Warn("reaper release failed, retrying on backoff", "hold_id", holdID, "error", err)
	}
	r.retryLater(ctx, holdID)
}

// retryLater schedules a single backoff-delayed retry of holdID's
// release, independent of the regular tick. A hold that fails every
// scheduled retry is picked up again naturally on the next regular tick,
// at which point attempts resets and backoff starts over.
func (r *Reaper) retryLater(ctx context.Context, holdID string) {
	attempt := r.nextAttempt(holdID)
	delay, ok := r.backoff.NextDelay(attempt)
	if !ok {
		r.clearAttempts(holdID)
		return
	}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			r.release(ctx, holdID, r.now())
		}
	}()
}

func (r *Reaper) nextAttempt(holdID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.attempts[holdID]
	r.attempts[holdID] = n + 1
	return n
}

func (r *Reaper) clearAttempts(holdID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, holdID)
}
