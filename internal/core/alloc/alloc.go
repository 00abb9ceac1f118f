// SPDX-License-Identifier: Apache-2.0

// Package alloc implements C4, the allocation store: the authoritative
// record of bookings and holds attached to resources. internal/core/span
// holds a derived, query-optimized projection of the same segments; this
// package is the one that owns labels, expiry timestamps, and the
// resource-attachment bookkeeping behind "has bookings" / "has active
// holds" checks.
package alloc

import (
	"github.com/benbjohnson/immutable"

	"github.com/availdb/timelinedb/internal/core/model"
	timelineerrors "github.com/availdb/timelinedb/pkg/errors"
)

// Store is the per-tenant booking and hold collection.
type Store struct {
	bookings           *immutable.Map[string, model.Booking]
	holds              *immutable.Map[string, model.Hold]
	bookingsByResource *immutable.Map[string, *immutable.Map[string, struct{}]]
	holdsByResource    *immutable.Map[string, *immutable.Map[string, struct{}]]
}

// New returns an empty allocation store.
func New() *Store {
	return &Store{
		bookings:           immutable.NewMap[string, model.Booking](nil),
		holds:              immutable.NewMap[string, model.Hold](nil),
		bookingsByResource: immutable.NewMap[string, *immutable.Map[string, struct{}]](nil),
		holdsByResource:    immutable.NewMap[string, *immutable.Map[string, struct{}]](nil),
	}
}

func setFor(m *immutable.Map[string, *immutable.Map[string, struct{}]], key string) *immutable.Map[string, struct{}] {
	if s, ok := m.Get(key); ok {
		return s
	}
	return immutable.NewMap[string, struct{}](nil)
}

// InsertBooking records b, rejecting a duplicate identity.
func (s *Store) InsertBooking(b model.Booking) (*Store, error) {
	if _, ok := s.bookings.Get(b.ID); ok {
		return nil, timelineerrors.New(timelineerrors.KindAlreadyExists, "booking already exists").WithResource(b.ID)
	}
	byRes := setFor(s.bookingsByResource, b.ResourceID).Set(b.ID, struct{}{})
	return &Store{
		bookings:           s.bookings.Set(b.ID, b),
		holds:              s.holds,
		bookingsByResource: s.bookingsByResource.Set(b.ResourceID, byRes),
		holdsByResource:    s.holdsByResource,
	}, nil
}

// DeleteBooking removes a booking.
func (s *Store) DeleteBooking(id string) (*Store, error) {
	b, ok := s.bookings.Get(id)
	if !ok {
		return nil, timelineerrors.New(timelineerrors.KindNotFound, "booking not found").WithResource(id)
	}
	byRes := setFor(s.bookingsByResource, b.ResourceID).Delete(id)
	return &Store{
		bookings:           s.bookings.Delete(id),
		holds:              s.holds,
		bookingsByResource: s.bookingsByResource.Set(b.ResourceID, byRes),
		holdsByResource:    s.holdsByResource,
	}, nil
}

// GetBooking returns a booking by identity.
func (s *Store) GetBooking(id string) (model.Booking, bool) { return s.bookings.Get(id) }

// BookingsForResource returns every booking attached to resourceID.
func (s *Store) BookingsForResource(resourceID string) []model.Booking {
	set := setFor(s.bookingsByResource, resourceID)
	out := make([]model.Booking, 0, set.Len())
	itr := set.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		if b, ok := s.bookings.Get(id); ok {
			out = append(out, b)
		}
	}
	return out
}

// InsertHold records h (pending->active on commit), rejecting a duplicate
// identity.
func (s *Store) InsertHold(h model.Hold) (*Store, error) {
	if _, ok := s.holds.Get(h.ID); ok {
		return nil, timelineerrors.New(timelineerrors.KindAlreadyExists, "hold already exists").WithResource(h.ID)
	}
	byRes := setFor(s.holdsByResource, h.ResourceID).Set(h.ID, struct{}{})
	return &Store{
		bookings:           s.bookings,
		holds:              s.holds.Set(h.ID, h),
		bookingsByResource: s.bookingsByResource,
		holdsByResource:    s.holdsByResource.Set(h.ResourceID, byRes),
	}, nil
}

// ReleaseHold removes a hold, whether by explicit delete or by the
// reaper's synthetic release_hold command.
func (s *Store) ReleaseHold(id string) (*Store, error) {
	h, ok := s.holds.Get(id)
	if !ok {
		return nil, timelineerrors.New(timelineerrors.KindNotFound, "hold not found").WithResource(id)
	}
	byRes := setFor(s.holdsByResource, h.ResourceID).Delete(id)
	return &Store{
		bookings:           s.bookings,
		holds:              s.holds.Delete(id),
		bookingsByResource: s.bookingsByResource,
		holdsByResource:    s.holdsByResource.Set(h.ResourceID, byRes),
	}, nil
}

// GetHold returns a hold by identity, regardless of whether it is active.
func (s *Store) GetHold(id string) (model.Hold, bool) { return s.holds.Get(id) }

// ActiveHoldsForResource returns resourceID's holds that have not expired
// as of nowMillis.
func (s *Store) ActiveHoldsForResource(resourceID string, nowMillis int64) []model.Hold {
	set := setFor(s.holdsByResource, resourceID)
	out := make([]model.Hold, 0, set.Len())
	itr := set.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		if h, ok := s.holds.Get(id); ok && h.Active(nowMillis) {
			out = append(out, h)
		}
	}
	return out
}

// ExpiredHolds returns every hold across the whole store whose expiry has
// passed as of nowMillis. The expiry reaper (C9) drives its scan from
// this.
func (s *Store) ExpiredHolds(nowMillis int64) []model.Hold {
	var out []model.Hold
	itr := s.holds.Iterator()
	for !itr.Done() {
		_, h, _ := itr.Next()
		if !h.Active(nowMillis) {
			out = append(out, h)
		}
	}
	return out
}

// HasAttachments reports whether resourceID has any booking or active
// hold, the condition that blocks resource deletion with "in use".
// Expired holds not yet reaped do not count.
func (s *Store) HasAttachments(resourceID string, nowMillis int64) bool {
	if setFor(s.bookingsByResource, resourceID).Len() > 0 {
		return true
	}
	return len(s.ActiveHoldsForResource(resourceID, nowMillis)) > 0
}

// DeleteResource drops every booking and hold attached to resourceID.
// Callers must have already verified there are none live; this exists
// for WAL replay rebuilding a fresh store and forced teardown paths.
func (s *Store) DeleteResource(resourceID string) *Store {
	newBookings := s.bookings
	bset := setFor(s.bookingsByResource, resourceID)
	bitr := bset.Iterator()
	for !bitr.Done() {
		id, _, _ := bitr.Next()
		newBookings = newBookings.Delete(id)
	}
	newHolds := s.holds
	hset := setFor(s.holdsByResource, resourceID)
	hitr := hset.Iterator()
	for !hitr.Done() {
		id, _, _ := hitr.Next()
		newHolds = newHolds.Delete(id)
	}
	return &Store{
		bookings:           newBookings,
		holds:              newHolds,
		bookingsByResource: s.bookingsByResource.Delete(resourceID),
		holdsByResource:    s.holdsByResource.Delete(resourceID),
	}
}
