// SPDX-License-Identifier: Apache-2.0

package command

// CreateResourceRequest is the inbound shape for an insert against the
// resources virtual table (spec.md §6).
type CreateResourceRequest struct {
	ID          string `json:"id"`
	ParentID    string `json:"parent_id,omitempty"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	BufferAfter int64  `json:"buffer_after"`
}

// UpdateResourceRequest is the inbound shape for an update against the
// resources virtual table; parent_id is immutable and therefore absent.
type UpdateResourceRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	BufferAfter int64  `json:"buffer_after"`
}

// DeleteResourceRequest identifies a row to delete from resources.
type DeleteResourceRequest struct {
	ID string `json:"id"`
}

// CreateRuleRequest is the inbound shape for an insert against rules.
type CreateRuleRequest struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Blocking   bool   `json:"blocking"`
}

// UpdateRuleRequest is the inbound shape for an update against rules.
type UpdateRuleRequest struct {
	ID       string `json:"id"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Blocking bool   `json:"blocking"`
}

// DeleteRuleRequest identifies a row to delete from rules.
type DeleteRuleRequest struct {
	ID string `json:"id"`
}

// BookingRow is one row to insert against bookings; CreateBookingsRequest
// carries a batch of 1..N so a single command atomically places every
// row or none, per spec.md §4.6.
type BookingRow struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Label      string `json:"label,omitempty"`
}

// CreateBookingsRequest is the inbound shape for a (possibly
// multi-row) insert against bookings.
type CreateBookingsRequest struct {
	Bookings []BookingRow `json:"bookings"`
}

// DeleteBookingRequest identifies a row to delete from bookings.
type DeleteBookingRequest struct {
	ID string `json:"id"`
}

// PlaceHoldRequest is the inbound shape for an insert against holds.
type PlaceHoldRequest struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	ExpiresAt  int64  `json:"expires_at"`
}

// ReleaseHoldRequest identifies a row to delete from holds, issued either
// by an explicit client request or synthetically by internal/core/reaper.
type ReleaseHoldRequest struct {
	ID string `json:"id"`
}

// AvailabilityQueryRequest is the inbound shape for a SELECT against the
// read-only availability pseudo-table. ResourceID is the raw, still
// form-encoded styled parameter (e.g. "r1,r2,r3") exactly as it would
// arrive from an external SQL-to-command adapter; Translator.AvailabilityQuery
// decodes it with oapi-codegen/runtime's styled-parameter binding.
type AvailabilityQueryRequest struct {
	ResourceID   string `json:"resource_id"`
	Start        int64  `json:"start"`
	End          int64  `json:"end"`
	MinDuration  int64  `json:"min_duration,omitempty"`
	MinAvailable int    `json:"min_available,omitempty"`
}

// ListOptions is the common pagination shape for read endpoints, mirrored
// from the teacher's CRUDManager.ListOptions.
type ListOptions struct {
	Limit  int
	Offset int
}
