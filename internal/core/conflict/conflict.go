// SPDX-License-Identifier: Apache-2.0

// Package conflict implements C5, the admission checker. Given a candidate
// span on a resource it runs five ordered checks — open region, blocking
// region, capacity, buffer, and ancestor/descendant exclusion — and fails
// fast with the first violated kind. Every check is evaluated against the
// resource state as it stands right now, including anything a batch has
// already staged through the same C1/C3/C4 views (internal/core/mutation
// supplies the scratch overlay's views here, not the published ones, while
// a batch is in flight).
package conflict

import (
	"github.com/availdb/timelinedb/internal/core/graph"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/rules"
	"github.com/availdb/timelinedb/internal/core/span"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
)

// Checker runs admission checks over a consistent (graph, rules, spans)
// view of a tenant.
type Checker struct {
	Graph *graph.Graph
	Rules *rules.Store
	Spans *span.Store
}

// New builds a Checker over the given views.
func New(g *graph.Graph, ru *rules.Store, sp *span.Store) *Checker {
	return &Checker{Graph: g, Rules: ru, Spans: sp}
}

// Admit decides whether candidate may be placed on resourceID at
// nowMillis, returning nil on success or the first violated *EngineError.
func (c *Checker) Admit(resourceID string, candidate model.Span, nowMillis int64) error {
	if !candidate.Valid() {
		return timelineerrors.New(timelineerrors.KindInvalidSpan, "end must be greater than start").WithResource(resourceID)
	}

	node, ok := c.Graph.Get(resourceID)
	if !ok {
		return timelineerrors.New(timelineerrors.KindInvalidReference, "resource does not exist").WithResource(resourceID)
	}
	resource := node.Resource

	if !c.Rules.InsideOpenRegion(c.Graph, resourceID, candidate) {
		return timelineerrors.New(timelineerrors.KindOutsideAvailability, "candidate span falls outside the open region").WithResource(resourceID)
	}

	if c.Rules.CollidesBlockingRegion(c.Graph, resourceID, candidate) {
		return timelineerrors.New(timelineerrors.KindBlockedByRule, "candidate span overlaps a blocking region").WithResource(resourceID)
	}

	existing := activeSegments(c.Spans.EnumerateRange(resourceID, candidate), nowMillis)
	if maxOverlap := maxConcurrentOverlap(existing, candidate); maxOverlap+1 > resource.Capacity {
		if resource.Capacity == 1 {
			return timelineerrors.New(timelineerrors.KindConflict, "candidate collides with an existing allocation").WithResource(resourceID)
		}
		return timelineerrors.CapacityExceeded(resourceID, resource.Capacity)
	}

	if c.bufferViolated(resourceID, candidate, resource.BufferAfter, nowMillis) {
		return timelineerrors.New(timelineerrors.KindConflict, "candidate violates buffer_after of a neighboring segment").WithResource(resourceID)
	}

	if err := c.hierarchyViolated(resourceID, candidate, nowMillis); err != nil {
		return err
	}

	return nil
}

func activeSegments(segs []model.Segment, nowMillis int64) []model.Segment {
	out := make([]model.Segment, 0, len(segs))
	for _, s := range segs {
		if s.ActiveAt(nowMillis) {
			out = append(out, s)
		}
	}
	return out
}

// maxConcurrentOverlap returns the maximum number of segments in existing
// that are simultaneously active at any instant inside window. The running
// overlap count only increases at a segment's start, so the maximum is
// always attained at window.Start or at one of the (window-clipped) start
// points of a colliding segment.
func maxConcurrentOverlap(existing []model.Segment, window model.Span) int {
	points := make([]int64, 0, len(existing)+1)
	points = append(points, window.Start)
	for _, s := range existing {
		p := s.Span.Start
		if p < window.Start {
			p = window.Start
		}
		points = append(points, p)
	}

	max := 0
	for _, t := range points {
		if t >= window.End {
			continue
		}
		count := 0
		for _, s := range existing {
			if s.Span.Contains(t) {
				count++
			}
		}
		if count > max {
			max = count
		}
	}
	return max
}

// bufferViolated reports whether candidate starts inside an existing
// segment's trailing buffer, or an existing segment starts inside
// candidate's own trailing buffer.
func (c *Checker) bufferViolated(resourceID string, candidate model.Span, buffer int64, nowMillis int64) bool {
	if buffer <= 0 {
		return false
	}
	expanded := model.Span{Start: candidate.Start - buffer, End: candidate.End + buffer}
	neighbors := activeSegments(c.Spans.EnumerateRange(resourceID, expanded), nowMillis)
	for _, s := range neighbors {
		if s.Span.End <= candidate.Start && candidate.Start < s.Span.End+buffer {
			return true
		}
		if candidate.End <= s.Span.Start && s.Span.Start < candidate.End+buffer {
			return true
		}
	}
	return false
}

// hierarchyViolated checks invariant 4: a candidate on resourceID may not
// collide with any active segment on an ancestor or a descendant.
func (c *Checker) hierarchyViolated(resourceID string, candidate model.Span, nowMillis int64) error {
	for _, ancestorID := range c.Graph.Ancestors(resourceID) {
		segs := activeSegments(c.Spans.EnumerateRange(ancestorID, candidate), nowMillis)
		if len(segs) > 0 {
			return timelineerrors.New(timelineerrors.KindConflict, "candidate collides with an ancestor's placed segment").
				WithResource(resourceID)
		}
	}
	for _, descendantID := range c.Graph.Descendants(resourceID) {
		segs := activeSegments(c.Spans.EnumerateRange(descendantID, candidate), nowMillis)
		if len(segs) > 0 {
			return timelineerrors.New(timelineerrors.KindConflict, "candidate collides with a descendant's placed segment").
				WithResource(resourceID)
		}
	}
	return nil
}
