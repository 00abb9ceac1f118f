// SPDX-License-Identifier: Apache-2.0

// Package availability implements C6, the sweep-line gap solver. It
// answers "where is resource R (or where are at least N of resources
// R1..Rk) simultaneously free over a window" by composing each resource's
// inherited open/blocking region with its own and its ancestors' placed
// segments, then sweeping the resulting free indicator functions together.
package availability

import (
	"sort"

	"github.com/availdb/timelinedb/internal/core/graph"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/rules"
	"github.com/availdb/timelinedb/internal/core/span"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
)

// Query describes one availability request.
type Query struct {
	ResourceIDs  []string
	Window       model.Span
	MinDuration  int64 // 0 means no minimum
	MinAvailable int   // 0 means "default to len(ResourceIDs)"
}

// Solver computes gaps over a consistent (graph, rules, spans) view.
type Solver struct {
	Graph *graph.Graph
	Rules *rules.Store
	Spans *span.Store
}

// New builds a Solver over the given views.
func New(g *graph.Graph, ru *rules.Store, sp *span.Store) *Solver {
	return &Solver{Graph: g, Rules: ru, Spans: sp}
}

// Solve answers q, returning disjoint spans inside q.Window ordered by
// start, each of length >= q.MinDuration.
func (s *Solver) Solve(q Query, nowMillis int64) ([]model.Span, error) {
	if !q.Window.Valid() {
		return nil, timelineerrors.New(timelineerrors.KindInvalidSpan, "query window end must be greater than start")
	}
	if len(q.ResourceIDs) == 0 {
		return nil, timelineerrors.New(timelineerrors.KindInvalidReference, "availability query requires at least one resource")
	}

	minAvailable := q.MinAvailable
	if minAvailable <= 0 {
		minAvailable = len(q.ResourceIDs)
	}

	perResource := make(map[string][]model.Span, len(q.ResourceIDs))
	for _, rid := range q.ResourceIDs {
		gaps, err := s.singleResourceGaps(rid, q.Window, nowMillis)
		if err != nil {
			return nil, err
		}
		perResource[rid] = gaps
	}

	if len(q.ResourceIDs) == 1 {
		return discardShort(perResource[q.ResourceIDs[0]], q.MinDuration), nil
	}

	combined := combine(perResource, q.Window, minAvailable)
	return discardShort(combined, q.MinDuration), nil
}

// singleResourceGaps computes resourceID's free gaps inside window: the
// open skeleton (open region minus blocking region) filtered to where
// consumed capacity (own segments, plus ancestor and descendant segments,
// which each project onto resourceID as a full block — the same hierarchy
// collision internal/core/conflict's Checker enforces in both directions
// at booking admission) is below capacity, with each gap's left edge
// shrunk by the trailing buffer of any segment ending exactly there.
func (s *Solver) singleResourceGaps(resourceID string, window model.Span, nowMillis int64) ([]model.Span, error) {
	node, ok := s.Graph.Get(resourceID)
	if !ok {
		return nil, timelineerrors.New(timelineerrors.KindInvalidReference, "resource does not exist").WithResource(resourceID)
	}
	resource := node.Resource

	skeleton := clipAll(subtract(s.Rules.OpenRegion(s.Graph, resourceID), s.Rules.BlockingRegion(s.Graph, resourceID)), window)
	if len(skeleton) == 0 {
		return nil, nil
	}

	type weighted struct {
		span   model.Span
		weight int
	}
	var segs []weighted
	own := activeSegments(s.Spans.EnumerateRange(resourceID, window), nowMillis)
	for _, seg := range own {
		segs = append(segs, weighted{span: seg.Span, weight: 1})
	}
	for _, ancestorID := range s.Graph.Ancestors(resourceID) {
		ancSegs := activeSegments(s.Spans.EnumerateRange(ancestorID, window), nowMillis)
		for _, seg := range ancSegs {
			segs = append(segs, weighted{span: seg.Span, weight: resource.Capacity})
		}
	}
	for _, descendantID := range s.Graph.Descendants(resourceID) {
		descSegs := activeSegments(s.Spans.EnumerateRange(descendantID, window), nowMillis)
		for _, seg := range descSegs {
			segs = append(segs, weighted{span: seg.Span, weight: resource.Capacity})
		}
	}

	breakpoints := []int64{window.Start, window.End}
	for _, sk := range skeleton {
		breakpoints = append(breakpoints, clampSpan(sk, window).Start, clampSpan(sk, window).End)
	}
	for _, w := range segs {
		c := clampSpan(w.span, window)
		breakpoints = append(breakpoints, c.Start, c.End)
	}

	consumedAt := func(t int64) int {
		total := 0
		for _, w := range segs {
			if w.span.Contains(t) {
				total += w.weight
			}
		}
		return total
	}
	insideSkeleton := func(t int64) bool {
		for _, sk := range skeleton {
			if sk.Contains(t) {
				return true
			}
		}
		return false
	}

	gaps := maximalIntervals(window, breakpoints, func(t int64) bool {
		return insideSkeleton(t) && consumedAt(t) < resource.Capacity
	})

	return shrinkForBuffer(gaps, own, resource.BufferAfter), nil
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

func clampSpan(s, window model.Span) model.Span {
	if s.Start < window.Start {
		s.Start = window.Start
	}
	if s.End > window.End {
		s.End = window.End
	}
	return s
}

func clipAll(spans []model.Span, window model.Span) []model.Span {
	var out []model.Span
	for _, s := range spans {
		if clipped, ok := s.Intersect(window); ok {
			out = append(out, clipped)
		}
	}
	return out
}

// subtract returns open minus blocking, both assumed already merged into
// minimal disjoint span sets (internal/core/rules guarantees this).
func subtract(open, blocking []model.Span) []model.Span {
	if len(open) == 0 {
		return nil
	}
	result := append([]model.Span{}, open...)
	for _, b := range blocking {
		var next []model.Span
		for _, o := range result {
			if !o.Collides(b) {
				next = append(next, o)
				continue
			}
			if b.Start > o.Start {
				next = append(next, model.Span{Start: o.Start, End: min64(b.Start, o.End)})
			}
			if b.End < o.End {
				next = append(next, model.Span{Start: max64(b.End, o.Start), End: o.End})
			}
		}
		result = next
	}
	return result
}

// shrinkForBuffer moves a gap's left edge forward by buffer when it sits
// exactly at the end of one of the resource's own segments, since that
// trailing window is not actually available for a new placement.
func shrinkForBuffer(gaps []model.Span, own []model.Segment, buffer int64) []model.Span {
	if buffer <= 0 {
		return gaps
	}
	var out []model.Span
	for _, g := range gaps {
		start := g.Start
		for _, seg := range own {
			if seg.Span.End == g.Start {
				candidate := g.Start + buffer
				if candidate > start {
					start = candidate
				}
			}
		}
		if start < g.End {
			out = append(out, model.Span{Start: start, End: g.End})
		}
	}
	return out
}

// combine sums each resource's free indicator and keeps the maximal
// sub-intervals where at least minAvailable resources are simultaneously
// free.
func combine(perResource map[string][]model.Span, window model.Span, minAvailable int) []model.Span {
	breakpoints := []int64{window.Start, window.End}
	for _, gaps := range perResource {
		for _, g := range gaps {
			breakpoints = append(breakpoints, g.Start, g.End)
		}
	}

	freeCountAt := func(t int64) int {
		count := 0
		for _, gaps := range perResource {
			for _, g := range gaps {
				if g.Contains(t) {
					count++
					break
				}
			}
		}
		return count
	}

	return maximalIntervals(window, breakpoints, func(t int64) bool {
		return freeCountAt(t) >= minAvailable
	})
}

// maximalIntervals sweeps the sorted, deduplicated breakpoints (clipped to
// window) and merges consecutive elementary intervals for which free
// returns true into maximal gap spans.
func maximalIntervals(window model.Span, breakpoints []int64, free func(t int64) bool) []model.Span {
	pts := dedupeSorted(breakpoints)

	var gaps []model.Span
	open := false
	var curStart int64
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		if a < window.Start {
			a = window.Start
		}
		if b > window.End {
			b = window.End
		}
		if a >= b {
			continue
		}
		if free(a) {
			if !open {
				curStart = a
				open = true
			}
		} else if open {
			gaps = append(gaps, model.Span{Start: curStart, End: a})
			open = false
		}
	}
	if open {
		gaps = append(gaps, model.Span{Start: curStart, End: window.End})
	}
	return gaps
}

func dedupeSorted(vals []int64) []int64 {
	sorted := append([]int64{}, vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := sorted[:0]
	var last int64
	for i, v := range sorted {
		if i == 0 || v != last {
			out = append(out, v)
			last = v
		}
	}
	return out
}

func discardShort(gaps []model.Span, minDuration int64) []model.Span {
	var out []model.Span
	for _, g := range gaps {
		if g.End-g.Start <= 0 {
			continue
		}
		if minDuration > 0 && g.End-g.Start < minDuration {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
