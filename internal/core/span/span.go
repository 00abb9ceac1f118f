// SPDX-License-Identifier: Apache-2.0

// Package span implements C1, the per-resource interval index: an ordered
// set of placed segments (bookings and active holds) keyed by start, tied
// by identity. It answers range-overlap and point-in-time stack-count
// queries, and exposes the sweep view C6 drives its gap computation from.
//
// The index is a persistent, structurally-shared collection
// (github.com/benbjohnson/immutable), grounded on
// _examples/other_examples/bf628b13_dreamsxin-wal__wal.go.go's
// `s atomic.Value // *state` pattern: every mutating method returns a new
// *Index/*Store value and leaves the receiver untouched, so a reader
// holding an old *Store never observes a concurrent writer's changes.
package span

import (
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/availdb/timelinedb/internal/core/model"
)

type segKey struct {
	Start int64
	ID    string
}

type segKeyComparer struct{}

func (segKeyComparer) Compare(a, b segKey) int {
	if a.Start != b.Start {
		if a.Start < b.Start {
			return -1
		}
		return 1
	}
	if a.ID == b.ID {
		return 0
	}
	if a.ID < b.ID {
		return -1
	}
	return 1
}

// Index is the ordered segment collection for a single resource.
type Index struct {
	ordered *immutable.SortedMap[segKey, model.Segment]
	starts  *immutable.Map[string, int64]
}

// NewIndex returns an empty interval index.
func NewIndex() *Index {
	return &Index{
		ordered: immutable.NewSortedMap[segKey, model.Segment](segKeyComparer{}),
		starts:  immutable.NewMap[string, int64](nil),
	}
}

// Insert places seg, returning a new Index. Re-inserting an existing
// identity at a new span first requires a Remove of the old one; Insert
// alone does not detect the move.
func (idx *Index) Insert(seg model.Segment) *Index {
	key := segKey{Start: seg.Span.Start, ID: seg.ID}
	return &Index{
		ordered: idx.ordered.Set(key, seg),
		starts:  idx.starts.Set(seg.ID, seg.Span.Start),
	}
}

// Remove deletes the segment with the given identity, if present.
func (idx *Index) Remove(id string) *Index {
	start, ok := idx.starts.Get(id)
	if !ok {
		return idx
	}
	return &Index{
		ordered: idx.ordered.Delete(segKey{Start: start, ID: id}),
		starts:  idx.starts.Delete(id),
	}
}

// Get returns the segment with the given identity.
func (idx *Index) Get(id string) (model.Segment, bool) {
	start, ok := idx.starts.Get(id)
	if !ok {
		return model.Segment{}, false
	}
	return idx.ordered.Get(segKey{Start: start, ID: id})
}

// Len returns the number of segments in the index.
func (idx *Index) Len() int { return idx.ordered.Len() }

// EnumerateRange returns every segment whose span collides with window,
// ordered by start then identity. It does not filter expired holds still
// resident in the index between reaper ticks — callers that must honor
// hold expiry (C5, C6) filter with model.Segment.ActiveAt after calling
// this.
//
// TODO: augment with a max-end-in-subtree index for true O(log n + m)
// range queries; this scans from the earliest segment and breaks once a
// segment's start reaches window.End, which is O(n) in the worst case
// when many long-lived segments start near the beginning of the resource's
// timeline.
func (idx *Index) EnumerateRange(window model.Span) []model.Segment {
	var out []model.Segment
	itr := idx.ordered.Iterator()
	for !itr.Done() {
		key, seg, _ := itr.Next()
		if key.Start >= window.End {
			break
		}
		if seg.Span.Collides(window) {
			out = append(out, seg)
		}
	}
	return out
}

// StackCountAt returns the number of segments covering instant t.
func (idx *Index) StackCountAt(t int64) int {
	count := 0
	itr := idx.ordered.Iterator()
	for !itr.Done() {
		key, seg, _ := itr.Next()
		if key.Start > t {
			break
		}
		if seg.Span.Contains(t) {
			count++
		}
	}
	return count
}

// All returns every segment in start-then-identity order.
func (idx *Index) All() []model.Segment {
	out := make([]model.Segment, 0, idx.ordered.Len())
	itr := idx.ordered.Iterator()
	for !itr.Done() {
		_, seg, _ := itr.Next()
		out = append(out, seg)
	}
	return out
}

// Event is one endpoint of the sweep view: a timestamp and a delta of +1
// (segment starts) or -1 (segment ends).
type Event struct {
	At    int64
	Delta int
	Seg   model.Segment
}

// SweepView returns the sorted stream of start/end events for every
// segment overlapping window, with -1 (end) ordered before +1 (start) at
// equal timestamps so half-open semantics are honored: a segment ending
// at t and another starting at t do not, for an instant, both count.
func (idx *Index) SweepView(window model.Span) []Event {
	segs := idx.EnumerateRange(window)
	events := make([]Event, 0, len(segs)*2)
	for _, seg := range segs {
		events = append(events, Event{At: seg.Span.Start, Delta: +1, Seg: seg})
		events = append(events, Event{At: seg.Span.End, Delta: -1, Seg: seg})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].At != events[j].At {
			return events[i].At < events[j].At
		}
		if events[i].Delta != events[j].Delta {
			return events[i].Delta < events[j].Delta // -1 before +1
		}
		return events[i].Seg.ID < events[j].Seg.ID
	})
	return events
}

// Store holds one Index per resource.
type Store struct {
	indices *immutable.Map[string, *Index]
}

// NewStore returns an empty per-tenant segment store.
func NewStore() *Store {
	return &Store{indices: immutable.NewMap[string, *Index](nil)}
}

// IndexFor returns the index for resourceID, or an empty one if it has no
// segments yet.
func (s *Store) IndexFor(resourceID string) *Index {
	if idx, ok := s.indices.Get(resourceID); ok {
		return idx
	}
	return NewIndex()
}

// Insert places seg on resourceID, returning a new Store.
func (s *Store) Insert(resourceID string, seg model.Segment) *Store {
	idx := s.IndexFor(resourceID).Insert(seg)
	return &Store{indices: s.indices.Set(resourceID, idx)}
}

// Remove deletes the segment with the given identity from resourceID.
func (s *Store) Remove(resourceID, id string) *Store {
	idx := s.IndexFor(resourceID).Remove(id)
	return &Store{indices: s.indices.Set(resourceID, idx)}
}

// EnumerateRange delegates to the named resource's index.
func (s *Store) EnumerateRange(resourceID string, window model.Span) []model.Segment {
	return s.IndexFor(resourceID).EnumerateRange(window)
}

// StackCountAt delegates to the named resource's index.
func (s *Store) StackCountAt(resourceID string, t int64) int {
	return s.IndexFor(resourceID).StackCountAt(t)
}

// SweepView delegates to the named resource's index.
func (s *Store) SweepView(resourceID string, window model.Span) []Event {
	return s.IndexFor(resourceID).SweepView(window)
}

// DeleteResource drops the entire per-resource index, used when a
// resource is removed from the graph.
func (s *Store) DeleteResource(resourceID string) *Store {
	return &Store{indices: s.indices.Delete(resourceID)}
}
