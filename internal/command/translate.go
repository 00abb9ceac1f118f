// SPDX-License-Identifier: Apache-2.0

package command

import (
	"encoding/json"
	"fmt"

	"github.com/oapi-codegen/runtime"

	"github.com/availdb/timelinedb/internal/core/availability"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/mutation"
)

// Translator validates inbound virtual-table payloads against the
// embedded OpenAPI schema and the field-level validator, then turns them
// into internal/core/mutation.Command or internal/core/availability.Query
// values. cmd/timelined holds the single Translator for a process; it is safe for concurrent use (both of its members are
// read-only after LoadSchema returns).
type Translator struct {
	schema *Schema
	fields *fieldValidator
}

// NewTranslator loads the embedded schema and returns a ready Translator.
func NewTranslator() (*Translator, error) {
	schema, err := LoadSchema()
	if err != nil {
		return nil, err
	}
	return &Translator{schema: schema, fields: newFieldValidator()}, nil
}

// asPayload round-trips v through encoding/json to the map[string]any
// shape the embedded OpenAPI schema validates against — the same shape
// an external SQL-to-command adapter would hand this package.
func asPayload(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateResource validates req and produces its Command.
func (t *Translator) CreateResource(req CreateResourceRequest) (mutation.Command, error) {
	payload, err := asPayload(req)
	if err != nil {
		return mutation.Command{}, err
	}
	if err := t.schema.Validate("resource", payload); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireName(req.Name); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireCapacity(req.Capacity); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireNonNegative("buffer_after", req.BufferAfter); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{
		Kind: mutation.CreateResource,
		Resource: &model.Resource{
			ID: req.ID, ParentID: req.ParentID, Name: req.Name,
			Capacity: req.Capacity, BufferAfter: req.BufferAfter,
		},
	}, nil
}

// UpdateResource validates req and produces its Command.
func (t *Translator) UpdateResource(req UpdateResourceRequest) (mutation.Command, error) {
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireName(req.Name); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireCapacity(req.Capacity); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireNonNegative("buffer_after", req.BufferAfter); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{
		Kind:     mutation.UpdateResource,
		Resource: &model.Resource{ID: req.ID, Name: req.Name, Capacity: req.Capacity, BufferAfter: req.BufferAfter},
	}, nil
}

// DeleteResource validates req and produces its Command.
func (t *Translator) DeleteResource(req DeleteResourceRequest) (mutation.Command, error) {
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{Kind: mutation.DeleteResource, ResourceID: req.ID}, nil
}

// CreateRule validates req and produces its Command.
func (t *Translator) CreateRule(req CreateRuleRequest) (mutation.Command, error) {
	payload, err := asPayload(req)
	if err != nil {
		return mutation.Command{}, err
	}
	if err := t.schema.Validate("rule", payload); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireID("resource_id", req.ResourceID); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireSpan(req.Start, req.End); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{
		Kind: mutation.CreateRule,
		Rule: &model.Rule{
			ID: req.ID, ResourceID: req.ResourceID,
			Span: model.Span{Start: req.Start, End: req.End}, Blocking: req.Blocking,
		},
	}, nil
}

// UpdateRule validates req and produces its Command.
func (t *Translator) UpdateRule(req UpdateRuleRequest) (mutation.Command, error) {
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireSpan(req.Start, req.End); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{
		Kind: mutation.UpdateRule,
		Rule: &model.Rule{ID: req.ID, Span: model.Span{Start: req.Start, End: req.End}, Blocking: req.Blocking},
	}, nil
}

// DeleteRule validates req and produces its Command.
func (t *Translator) DeleteRule(req DeleteRuleRequest) (mutation.Command, error) {
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{Kind: mutation.DeleteRule, RuleID: req.ID}, nil
}

// CreateBookings validates req (including every row) and produces its
// Command. Validation failure on any one row rejects the whole batch
// before it ever reaches C5, matching spec.md's all-or-nothing multi-row
// insert semantics.
func (t *Translator) CreateBookings(req CreateBookingsRequest) (mutation.Command, error) {
	if len(req.Bookings) == 0 {
		return mutation.Command{}, fmt.Errorf("create_bookings requires at least one row")
	}
	bookings := make([]model.Booking, 0, len(req.Bookings))
	for i, row := range req.Bookings {
		payload, err := asPayload(row)
		if err != nil {
			return mutation.Command{}, err
		}
		if err := t.schema.Validate("booking", payload); err != nil {
			return mutation.Command{}, fmt.Errorf("booking row %d: %w", i, err)
		}
		if err := t.fields.requireID("id", row.ID); err != nil {
			return mutation.Command{}, err
		}
		if err := t.fields.requireID("resource_id", row.ResourceID); err != nil {
			return mutation.Command{}, err
		}
		if err := t.fields.requireSpan(row.Start, row.End); err != nil {
			return mutation.Command{}, err
		}
		bookings = append(bookings, model.Booking{
			ID: row.ID, ResourceID: row.ResourceID,
			Span: model.Span{Start: row.Start, End: row.End}, Label: row.Label,
		})
	}
	return mutation.Command{Kind: mutation.CreateBookings, Bookings: bookings}, nil
}

// DeleteBooking validates req and produces its Command.
func (t *Translator) DeleteBooking(req DeleteBookingRequest) (mutation.Command, error) {
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{Kind: mutation.DeleteBooking, BookingID: req.ID}, nil
}

// PlaceHold validates req and produces its Command.
func (t *Translator) PlaceHold(req PlaceHoldRequest) (mutation.Command, error) {
	payload, err := asPayload(req)
	if err != nil {
		return mutation.Command{}, err
	}
	if err := t.schema.Validate("hold", payload); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireID("resource_id", req.ResourceID); err != nil {
		return mutation.Command{}, err
	}
	if err := t.fields.requireSpan(req.Start, req.End); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{
		Kind: mutation.PlaceHold,
		Hold: &model.Hold{
			ID: req.ID, ResourceID: req.ResourceID,
			Span: model.Span{Start: req.Start, End: req.End}, ExpiresAt: req.ExpiresAt,
		},
	}, nil
}

// ReleaseHold validates req and produces its Command.
func (t *Translator) ReleaseHold(req ReleaseHoldRequest) (mutation.Command, error) {
	if err := t.fields.requireID("id", req.ID); err != nil {
		return mutation.Command{}, err
	}
	return mutation.Command{Kind: mutation.ReleaseHold, HoldID: req.ID}, nil
}

// AvailabilityQuery validates req, decodes its form-style resource_id
// list with oapi-codegen/runtime's styled-parameter binding, and produces
// the corresponding availability.Query.
func (t *Translator) AvailabilityQuery(req AvailabilityQueryRequest) (availability.Query, error) {
	payload, err := asPayload(req)
	if err != nil {
		return availability.Query{}, err
	}
	if err := t.schema.Validate("availability_query", payload); err != nil {
		return availability.Query{}, err
	}
	if err := t.fields.requireSpan(req.Start, req.End); err != nil {
		return availability.Query{}, err
	}
	if err := t.fields.requireNonNegative("min_duration", req.MinDuration); err != nil {
		return availability.Query{}, err
	}

	var resourceIDs []string
	if err := runtime.BindStyledParameterWithOptions("form", false, "resource_id", req.ResourceID, &resourceIDs,
		runtime.BindStyledParameterOptions{Explode: false, Required: true}); err != nil {
		return availability.Query{}, fmt.Errorf("decoding resource_id: %w", err)
	}
	for _, id := range resourceIDs {
		if err := t.fields.requireID("resource_id", id); err != nil {
			return availability.Query{}, err
		}
	}

	return availability.Query{
		ResourceIDs:  resourceIDs,
		Window:       model.Span{Start: req.Start, End: req.End},
		MinDuration:  req.MinDuration,
		MinAvailable: req.MinAvailable,
	}, nil
}
