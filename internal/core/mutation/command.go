// SPDX-License-Identifier: Apache-2.0

// Package mutation implements C7, the mutation coordinator: atomic
// application of a single command or a batch of commands, sequencing WAL
// append, in-memory state update, and per-resource event fan-out to C10.
//
// The package also defines the WAL-able command vocabulary itself (spec's
// "commands that can appear in a record"); internal/command's typed,
// schema-validated surface translates external requests into these
// structs before handing them to Commit.
package mutation

import (
	"github.com/availdb/timelinedb/internal/core/alloc"
	"github.com/availdb/timelinedb/internal/core/graph"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/rules"
	"github.com/availdb/timelinedb/internal/core/span"
)

// CommandKind identifies which of the ten WAL-able operations a Command
// performs. Availability queries never appear here — they are read-only
// and never touch the WAL.
type CommandKind string

const (
	CreateResource CommandKind = "create_resource"
	UpdateResource CommandKind = "update_resource"
	DeleteResource CommandKind = "delete_resource"
	CreateRule     CommandKind = "create_rule"
	UpdateRule     CommandKind = "update_rule"
	DeleteRule     CommandKind = "delete_rule"
	CreateBookings CommandKind = "create_bookings"
	DeleteBooking  CommandKind = "delete_booking"
	PlaceHold      CommandKind = "place_hold"
	ReleaseHold    CommandKind = "release_hold"
)

// Command is one WAL-able operation. Only the fields relevant to Kind are
// populated; every field is a plain value (never a closure) so a batch of
// Commands serializes directly to the WAL with encoding/json.
type Command struct {
	Kind CommandKind `json:"kind"`

	// CreateResource: full record. UpdateResource: ID selects the target;
	// Name/Capacity/BufferAfter are the new values, ParentID is ignored.
	Resource *model.Resource `json:"resource,omitempty"`
	// DeleteResource.
	ResourceID string `json:"resource_id,omitempty"`

	// CreateRule: full record. UpdateRule: ID selects the target;
	// Span/Blocking are the new values.
	Rule *model.Rule `json:"rule,omitempty"`
	// DeleteRule.
	RuleID string `json:"rule_id,omitempty"`

	// CreateBookings: batch of 1..N, validated and applied in order so
	// later bookings in the same command see earlier ones.
	Bookings []model.Booking `json:"bookings,omitempty"`
	// DeleteBooking.
	BookingID string `json:"booking_id,omitempty"`

	// PlaceHold.
	Hold *model.Hold `json:"hold,omitempty"`
	// ReleaseHold (explicit, or synthetic from internal/core/reaper).
	HoldID string `json:"hold_id,omitempty"`
}

// State is the immutable aggregate of C1-C4 published by the coordinator.
// A reader holds a *State under no lock at all: every field is itself a
// persistent, structurally-shared collection, so nothing the reader walks
// can be mutated underneath it.
type State struct {
	Graph *graph.Graph
	Rules *rules.Store
	Spans *span.Store
	Alloc *alloc.Store
}

// NewState returns the empty state a fresh or newly replayed tenant starts
// from.
func NewState() *State {
	return &State{Graph: graph.New(), Rules: rules.New(), Spans: span.NewStore(), Alloc: alloc.New()}
}
