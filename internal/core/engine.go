// SPDX-License-Identifier: Apache-2.0

// Package core assembles C1-C10 into a single per-tenant Engine: replay
// the WAL to rebuild state, construct the mutation coordinator over it,
// then start the reaper. internal/tenant owns one Engine per tenant;
// nothing outside this package constructs a component directly.
package core

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/availdb/timelinedb/internal/core/availability"
	"github.com/availdb/timelinedb/internal/core/broadcast"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/mutation"
	"github.com/availdb/timelinedb/internal/core/reaper"
	"github.com/availdb/timelinedb/internal/core/wal"
	"github.com/availdb/timelinedb/pkg/logging"
	"github.com/availdb/timelinedb/pkg/metrics"
	"github.com/availdb/timelinedb/pkg/streaming"
)

// Engine is one tenant's whole allocation database: durable log, live
// state, admission, availability, and the background reaper.
type Engine struct {
	TenantID string

	wal         *wal.WAL
	coordinator *mutation.Coordinator
	broadcaster *broadcast.Broadcaster
	reaper      *reaper.Reaper
	metrics     metrics.Collector
	logger      logging.Logger

	cancelReaper context.CancelFunc
	entropy      *ulid.MonotonicEntropy
}

// Options configures Engine construction.
type Options struct {
	WALPath         string
	ReaperInterval  time.Duration
	BroadcastBuffer int
	Metrics         metrics.Collector
	Logger          logging.Logger
	Now             func() int64 // defaults to wall-clock milliseconds
}

// Open replays walPath (creating it if absent), publishes the replayed
// state, and returns a ready Engine with its reaper not yet started —
// spec.md §4.8: "replay is the sole mechanism used at startup to rebuild
// C1-C4; the reaper runs after replay completes." Call Start to begin the
// reaper once the caller is ready to accept mutations.
func Open(tenantID string, opts Options) (*Engine, error) {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewInMemoryCollector()
	}
	if opts.Now == nil {
		opts.Now = nowMillis
	}

	w, records, err := wal.Open(opts.WALPath)
	if err != nil {
		return nil, fmt.Errorf("opening wal for tenant %s: %w", tenantID, err)
	}

	st := mutation.NewState()
	for _, rec := range records {
		var batch []mutation.Command
		if err := json.Unmarshal(rec.Payload, &batch); err != nil {
			return nil, fmt.Errorf("replaying wal record %d for tenant %s: %w", rec.Seq, tenantID, err)
		}
		for _, cmd := range batch {
			st, _, err = mutation.Replay(st, cmd, rec.CommittedAtMillis)
			if err != nil {
				return nil, fmt.Errorf("replaying wal record %d for tenant %s: %w", rec.Seq, tenantID, err)
			}
		}
	}

	b := broadcast.New(opts.BroadcastBuffer)
	coordinator := mutation.NewCoordinator(st, w, b, opts.Metrics, opts.Logger)

	entropy := ulid.Monotonic(rand.Reader, 0)
	r := reaper.New(coordinator, opts.ReaperInterval, opts.Metrics, opts.Logger, opts.Now)

	return &Engine{
		TenantID:    tenantID,
		wal:         w,
		coordinator: coordinator,
		broadcaster: b,
		reaper:      r,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		entropy:     entropy,
	}, nil
}

// Start begins the reaper's periodic scan. Safe to call once per Engine.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancelReaper = cancel
	go e.reaper.Run(ctx)
}

// Close stops the reaper, disconnects every broadcast subscriber, and
// closes the WAL file.
func (e *Engine) Close() error {
	if e.cancelReaper != nil {
		e.cancelReaper()
	}
	e.broadcaster.Close()
	return e.wal.Close()
}

// NewID mints a fresh identity for a resource, rule, booking, or hold
// about to be created on this tenant.
func (e *Engine) NewID() string {
	return model.NewID(e.entropy)
}

// Commit applies a batch of commands atomically. See
// internal/core/mutation.Coordinator.Commit.
func (e *Engine) Commit(commands []mutation.Command, nowMillis int64) (string, error) {
	return e.coordinator.Commit(commands, nowMillis)
}

// Subscribe opens a change-event channel scoped to one resource. See
// internal/core/broadcast.Broadcaster.Subscribe.
func (e *Engine) Subscribe(ctx context.Context, resourceID string) (<-chan streaming.Event, error) {
	return e.broadcaster.Subscribe(ctx, resourceID)
}

// Solve runs an availability query against the currently published state.
func (e *Engine) Solve(q availability.Query, nowMillis int64) ([]model.Span, error) {
	snap := e.coordinator.Snapshot()
	start := time.Now()
	solver := availability.New(snap.Graph, snap.Rules, snap.Spans)
	gaps, err := solver.Solve(q, nowMillis)
	if e.metrics != nil {
		e.metrics.RecordQuery(time.Since(start), len(q.ResourceIDs), len(gaps))
	}
	return gaps, err
}

// Snapshot exposes the raw published state for read-only callers that
// need direct C1-C4 access beyond Solve.
func (e *Engine) Snapshot() *mutation.State {
	return e.coordinator.Snapshot()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
