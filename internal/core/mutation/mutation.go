// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/availdb/timelinedb/internal/core/broadcast"
	"github.com/availdb/timelinedb/internal/core/conflict"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/wal"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
	"github.com/availdb/timelinedb/pkg/logging"
	"github.com/availdb/timelinedb/pkg/metrics"
)

// Coordinator serializes all writers on a single logical per-tenant write
// lock while publishing a lock-free snapshot for readers (spec.md §4.12,
// §5): the published *State is swapped only after a batch's WAL record is
// durable, so a reader never observes a partially applied commit.
type Coordinator struct {
	writeMu sync.Mutex
	current atomic.Pointer[State]

	wal         *wal.WAL
	broadcaster *broadcast.Broadcaster
	metrics     metrics.Collector
	logger      logging.Logger
}

// NewCoordinator wires a Coordinator over an already-replayed initial
// state (internal/core.Open runs WAL replay before constructing this).
func NewCoordinator(initial *State, w *wal.WAL, b *broadcast.Broadcaster, m metrics.Collector, lg logging.Logger) *Coordinator {
	c := &Coordinator{wal: w, broadcaster: b, metrics: m, logger: lg}
	c.current.Store(initial)
	return c
}

// Snapshot returns the currently published state for read-only use. It
// never blocks and never copies; the returned *State is safe to walk
// concurrently with any number of other readers and any in-flight writer.
func (c *Coordinator) Snapshot() *State {
	return c.current.Load()
}

// Commit applies commands as one atomic batch: validate-in-order against
// the current state plus everything already accepted earlier in this
// batch, append one WAL record, publish the new state, then fan out one
// event per affected resource. The first command to fail aborts the whole
// batch with its specific error and leaves the published state untouched;
// a failed batch never reaches the WAL.
func (c *Coordinator) Commit(commands []Command, nowMillis int64) (batchID string, err error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	start := time.Now()
	st := c.current.Load()

	var events []broadcast.Event
	for _, cmd := range commands {
		nextSt, evs, applyErr := applyOne(st, cmd, nowMillis)
		if applyErr != nil {
			if c.metrics != nil {
				if kind, ok := timelineerrors.KindOf(applyErr); ok {
					c.metrics.RecordConflict(string(kind))
				}
				c.metrics.RecordCommit(false, time.Since(start), len(commands))
			}
			return "", applyErr
		}
		st = nextSt
		events = append(events, evs...)
	}

	payload, err := json.Marshal(commands)
	if err != nil {
		return "", err
	}

	if _, err := c.wal.Append(payload); err != nil {
		if c.logger != nil {
			c.logger.Error("wal append failed, batch discarded", "error", err)
		}
		if c.metrics != nil {
			c.metrics.RecordCommit(false, time.Since(start), len(commands))
		}
		return "", err
	}

	c.current.Store(st)

	batchID = uuid.New().String()
	for _, ev := range events {
		ev.BatchID = batchID
		ev.OccurredAtMillis = nowMillis
		c.broadcaster.Publish(ev)
	}

	if c.metrics != nil {
		c.metrics.RecordCommit(true, time.Since(start), len(commands))
		c.metrics.RecordWALBytes(int64(len(payload)))
	}

	return batchID, nil
}

// Replay applies a single previously-committed command against st. It is
// applyOne exposed for internal/core's startup WAL replay, which walks
// every record's command batch through the same admission and state
// transitions a live commit used, without re-touching the WAL or
// publishing events to subscribers (that state is already stale by the
// time the process restarts).
func Replay(st *State, cmd Command, nowMillis int64) (*State, []broadcast.Event, error) {
	return applyOne(st, cmd, nowMillis)
}

// applyOne validates and applies a single command against st, returning
// the resulting state and the broadcast events it produced. It never
// touches the WAL or the published pointer — that is Commit's job, once
// every command in the batch has been proven to succeed together.
func applyOne(st *State, cmd Command, nowMillis int64) (*State, []broadcast.Event, error) {
	switch cmd.Kind {

	case CreateResource:
		if cmd.Resource == nil {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidReference, "create_resource requires a resource")
		}
		g, err := st.Graph.Insert(*cmd.Resource)
		if err != nil {
			return nil, nil, err
		}
		next := &State{Graph: g, Rules: st.Rules, Spans: st.Spans, Alloc: st.Alloc}
		return next, []broadcast.Event{{
			Kind: broadcast.ResourceCreated, ResourceID: cmd.Resource.ID, EntityID: cmd.Resource.ID, Entity: *cmd.Resource,
		}}, nil

	case UpdateResource:
		if cmd.Resource == nil {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidReference, "update_resource requires a resource")
		}
		update := *cmd.Resource
		g, err := st.Graph.Update(cmd.Resource.ID, func(old model.Resource) model.Resource {
			old.Name = update.Name
			old.Capacity = update.Capacity
			old.BufferAfter = update.BufferAfter
			return old
		})
		if err != nil {
			return nil, nil, err
		}
		node, _ := g.Get(cmd.Resource.ID)
		next := &State{Graph: g, Rules: st.Rules, Spans: st.Spans, Alloc: st.Alloc}
		return next, []broadcast.Event{{
			Kind: broadcast.ResourceUpdated, ResourceID: node.Resource.ID, EntityID: node.Resource.ID, Entity: node.Resource,
		}}, nil

	case DeleteResource:
		if st.Rules.HasRules(cmd.ResourceID) || st.Alloc.HasAttachments(cmd.ResourceID, nowMillis) {
			return nil, nil, timelineerrors.New(timelineerrors.KindInUse, "resource has attached rules, bookings, or active holds").WithResource(cmd.ResourceID)
		}
		g, err := st.Graph.Delete(cmd.ResourceID)
		if err != nil {
			return nil, nil, err
		}
		next := &State{
			Graph: g,
			Rules: st.Rules.DeleteResource(cmd.ResourceID),
			Spans: st.Spans.DeleteResource(cmd.ResourceID),
			Alloc: st.Alloc.DeleteResource(cmd.ResourceID),
		}
		return next, []broadcast.Event{{
			Kind: broadcast.ResourceDeleted, ResourceID: cmd.ResourceID, EntityID: cmd.ResourceID,
		}}, nil

	case CreateRule:
		if cmd.Rule == nil {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidReference, "create_rule requires a rule")
		}
		if !cmd.Rule.Span.Valid() {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidSpan, "rule span end must be greater than start").WithResource(cmd.Rule.ResourceID)
		}
		if _, ok := st.Graph.Get(cmd.Rule.ResourceID); !ok {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidReference, "rule references a missing resource").WithResource(cmd.Rule.ResourceID)
		}
		r, err := st.Rules.Insert(*cmd.Rule)
		if err != nil {
			return nil, nil, err
		}
		next := &State{Graph: st.Graph, Rules: r, Spans: st.Spans, Alloc: st.Alloc}
		return next, []broadcast.Event{{
			Kind: broadcast.RuleAdded, ResourceID: cmd.Rule.ResourceID, EntityID: cmd.Rule.ID, Entity: *cmd.Rule,
		}}, nil

	case UpdateRule:
		if cmd.Rule == nil {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidReference, "update_rule requires a rule")
		}
		if !cmd.Rule.Span.Valid() {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidSpan, "rule span end must be greater than start")
		}
		update := *cmd.Rule
		r, err := st.Rules.Update(cmd.Rule.ID, func(old model.Rule) model.Rule {
			old.Span = update.Span
			old.Blocking = update.Blocking
			return old
		})
		if err != nil {
			return nil, nil, err
		}
		rule, _ := r.Get(cmd.Rule.ID)
		next := &State{Graph: st.Graph, Rules: r, Spans: st.Spans, Alloc: st.Alloc}
		return next, []broadcast.Event{{
			Kind: broadcast.RuleUpdated, ResourceID: rule.ResourceID, EntityID: rule.ID, Entity: rule,
		}}, nil

	case DeleteRule:
		rule, ok := st.Rules.Get(cmd.RuleID)
		if !ok {
			return nil, nil, timelineerrors.New(timelineerrors.KindNotFound, "rule not found").WithResource(cmd.RuleID)
		}
		r, err := st.Rules.Delete(cmd.RuleID)
		if err != nil {
			return nil, nil, err
		}
		next := &State{Graph: st.Graph, Rules: r, Spans: st.Spans, Alloc: st.Alloc}
		return next, []broadcast.Event{{
			Kind: broadcast.RuleRemoved, ResourceID: rule.ResourceID, EntityID: rule.ID,
		}}, nil

	case CreateBookings:
		if len(cmd.Bookings) == 0 {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidReference, "create_bookings requires at least one booking")
		}
		cur := st
		events := make([]broadcast.Event, 0, len(cmd.Bookings))
		for _, b := range cmd.Bookings {
			checker := conflict.New(cur.Graph, cur.Rules, cur.Spans)
			if err := checker.Admit(b.ResourceID, b.Span, nowMillis); err != nil {
				return nil, nil, err
			}
			newAlloc, err := cur.Alloc.InsertBooking(b)
			if err != nil {
				return nil, nil, err
			}
			newSpans := cur.Spans.Insert(b.ResourceID, model.BookingSegment(b))
			cur = &State{Graph: cur.Graph, Rules: cur.Rules, Spans: newSpans, Alloc: newAlloc}
			events = append(events, broadcast.Event{
				Kind: broadcast.BookingConfirmed, ResourceID: b.ResourceID, EntityID: b.ID, Entity: b,
			})
		}
		return cur, events, nil

	case DeleteBooking:
		b, ok := st.Alloc.GetBooking(cmd.BookingID)
		if !ok {
			return nil, nil, timelineerrors.New(timelineerrors.KindNotFound, "booking not found").WithResource(cmd.BookingID)
		}
		newAlloc, err := st.Alloc.DeleteBooking(cmd.BookingID)
		if err != nil {
			return nil, nil, err
		}
		newSpans := st.Spans.Remove(b.ResourceID, cmd.BookingID)
		next := &State{Graph: st.Graph, Rules: st.Rules, Spans: newSpans, Alloc: newAlloc}
		return next, []broadcast.Event{{
			Kind: broadcast.BookingCancelled, ResourceID: b.ResourceID, EntityID: b.ID,
		}}, nil

	case PlaceHold:
		if cmd.Hold == nil {
			return nil, nil, timelineerrors.New(timelineerrors.KindInvalidReference, "place_hold requires a hold")
		}
		h := *cmd.Hold
		checker := conflict.New(st.Graph, st.Rules, st.Spans)
		if err := checker.Admit(h.ResourceID, h.Span, nowMillis); err != nil {
			return nil, nil, err
		}
		newAlloc, err := st.Alloc.InsertHold(h)
		if err != nil {
			return nil, nil, err
		}
		newSpans := st.Spans.Insert(h.ResourceID, model.HoldSegment(h))
		next := &State{Graph: st.Graph, Rules: st.Rules, Spans: newSpans, Alloc: newAlloc}
		return next, []broadcast.Event{{
			Kind: broadcast.HoldPlaced, ResourceID: h.ResourceID, EntityID: h.ID, Entity: h,
		}}, nil

	case ReleaseHold:
		h, ok := st.Alloc.GetHold(cmd.HoldID)
		if !ok {
			return nil, nil, timelineerrors.New(timelineerrors.KindNotFound, "hold not found").WithResource(cmd.HoldID)
		}
		newAlloc, err := st.Alloc.ReleaseHold(cmd.HoldID)
		if err != nil {
			return nil, nil, err
		}
		newSpans := st.Spans.Remove(h.ResourceID, cmd.HoldID)
		next := &State{Graph: st.Graph, Rules: st.Rules, Spans: newSpans, Alloc: newAlloc}
		return next, []broadcast.Event{{
			Kind: broadcast.HoldReleased, ResourceID: h.ResourceID, EntityID: h.ID,
		}}, nil

	default:
		return nil, nil, timelineerrors.Newf(timelineerrors.KindInvalidReference, "unknown command kind %q", cmd.Kind)
	}
}
