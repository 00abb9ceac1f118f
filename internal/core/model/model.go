// SPDX-License-Identifier: Apache-2.0

// Package model holds the value types shared by every C1-C10 component:
// spans, resources, rules, bookings, and holds. None of these types carry
// back-pointers into other components — ownership of the relationships
// between them belongs to internal/core/graph alone.
package model

import "github.com/oklog/ulid/v2"

// Span is a half-open interval [Start, End) of 64-bit signed milliseconds.
type Span struct {
	Start int64
	End   int64
}

// Valid reports whether the span satisfies End > Start.
func (s Span) Valid() bool { return s.End > s.Start }

// Collides reports whether s and o overlap: a.start < b.end && b.start < a.end.
// Adjacent spans (one's end equals the other's start) do not collide.
func (s Span) Collides(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether instant t falls inside the half-open span.
func (s Span) Contains(t int64) bool {
	return t >= s.Start && t < s.End
}

// Intersect returns the overlap of s and o, and whether one exists.
func (s Span) Intersect(o Span) (Span, bool) {
	start := s.Start
	if o.Start > start {
		start = o.Start
	}
	end := s.End
	if o.End < end {
		end = o.End
	}
	if end <= start {
		return Span{}, false
	}
	return Span{Start: start, End: end}, true
}

// NewID mints a new lexicographically-ordered 26-character identity. It is
// used for resources, rules, bookings, and holds alike.
func NewID(entropy *ulid.MonotonicEntropy) string {
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Resource is a bookable node in the per-tenant forest.
type Resource struct {
	ID          string
	ParentID    string // empty if root
	Name        string
	Capacity    int
	BufferAfter int64 // milliseconds
}

// HasParent reports whether the resource declares a parent.
func (r Resource) HasParent() bool { return r.ParentID != "" }

// Rule opens (blocking=false) or closes (blocking=true) an availability
// window on its target resource.
type Rule struct {
	ID         string
	ResourceID string
	Span       Span
	Blocking   bool
}

// Booking is a permanent placed segment on a resource.
type Booking struct {
	ID         string
	ResourceID string
	Span       Span
	Label      string
}

// Hold is a placed segment with an auto-expiry wall-clock bound.
type Hold struct {
	ID         string
	ResourceID string
	Span       Span
	ExpiresAt  int64 // milliseconds
}

// Active reports whether the hold has not yet expired at now.
func (h Hold) Active(nowMillis int64) bool { return nowMillis < h.ExpiresAt }

// Segment is the common shape C1, C5, and C6 operate over: either a
// Booking or a Hold, reduced to its identity, span, and (for holds) the
// expiry that determines whether it should still be treated as present.
type Segment struct {
	ID         string
	ResourceID string
	Span       Span
	Kind       SegmentKind
	ExpiresAt  int64 // only meaningful when Kind == SegmentHold
}

// SegmentKind distinguishes a Booking-backed segment from a Hold-backed one.
type SegmentKind uint8

const (
	SegmentBooking SegmentKind = iota
	SegmentHold
)

// ActiveAt reports whether the segment should be treated as present at
// nowMillis. Bookings are always present; holds are absent from the
// instant their expiry passes, even if the reaper has not yet removed
// them from the index (spec's "expired holds must not influence new
// admissions even between scan ticks").
func (s Segment) ActiveAt(nowMillis int64) bool {
	if s.Kind == SegmentBooking {
		return true
	}
	return nowMillis < s.ExpiresAt
}

// BookingSegment reduces a Booking to its Segment form.
func BookingSegment(b Booking) Segment {
	return Segment{ID: b.ID, ResourceID: b.ResourceID, Span: b.Span, Kind: SegmentBooking}
}

// HoldSegment reduces a Hold to its Segment form.
func HoldSegment(h Hold) Segment {
	return Segment{ID: h.ID, ResourceID: h.ResourceID, Span: h.Span, Kind: SegmentHold, ExpiresAt: h.ExpiresAt}
}
