// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/availdb/timelinedb/internal/core/model"
)

func TestBookingLifecycle(t *testing.T) {
	s := New()
	s, err := s.InsertBooking(model.Booking{ID: "b1", ResourceID: "r1", Span: model.Span{Start: 0, End: 1000}})
	require.NoError(t, err)
	assert.True(t, s.HasAttachments("r1", 0))

	s, err = s.DeleteBooking("b1")
	require.NoError(t, err)
	assert.False(t, s.HasAttachments("r1", 0))
}

func TestHoldExpiry(t *testing.T) {
	s := New()
	s, _ = s.InsertHold(model.Hold{ID: "h1", ResourceID: "r1", Span: model.Span{Start: 0, End: 1000}, ExpiresAt: 500})

	assert.True(t, s.HasAttachments("r1", 100))
	assert.False(t, s.HasAttachments("r1", 500))

	active := s.ActiveHoldsForResource("r1", 100)
	assert.Len(t, active, 1)
	active = s.ActiveHoldsForResource("r1", 500)
	assert.Empty(t, active)
}

func TestExpiredHolds(t *testing.T) {
	s := New()
	s, _ = s.InsertHold(model.Hold{ID: "h1", ResourceID: "r1", ExpiresAt: 500})
	s, _ = s.InsertHold(model.Hold{ID: "h2", ResourceID: "r1", ExpiresAt: 1500})

	expired := s.ExpiredHolds(1000)
	require.Len(t, expired, 1)
	assert.Equal(t, "h1", expired[0].ID)
}

func TestReleaseHold_NotFound(t *testing.T) {
	s := New()
	_, err := s.ReleaseHold("ghost")
	assert.Error(t, err)
}

func TestDeleteResource_ClearsAllAttachments(t *testing.T) {
	s := New()
	s, _ = s.InsertBooking(model.Booking{ID: "b1", ResourceID: "r1"})
	s, _ = s.InsertHold(model.Hold{ID: "h1", ResourceID: "r1", ExpiresAt: 100000})

	s = s.DeleteResource("r1")
	assert.Empty(t, s.BookingsForResource("r1"))
	assert.Empty(t, s.ActiveHoldsForResource("r1", 0))
}
