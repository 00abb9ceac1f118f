// SPDX-License-Identifier: Apache-2.0

package mutation

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/availdb/timelinedb/internal/core/broadcast"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/wal"
	"github.com/availdb/timelinedb/pkg/metrics"
)

func newCoordinator(t *testing.T) (*Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tenant.wal")
	w, records, err := wal.Open(path)
	require.NoError(t, err)
	require.Empty(t, records)
	b := broadcast.New(4)
	m := metrics.NewInMemoryCollector()
	return NewCoordinator(NewState(), w, b, m, nil), path
}

func TestCommit_CreateResourceAndBooking_PublishesState(t *testing.T) {
	c, _ := newCoordinator(t)

	batchID, err := c.Commit([]Command{
		{Kind: CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 1}},
		{Kind: CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 100000}, Blocking: false}},
		{Kind: CreateBookings, Bookings: []model.Booking{{ID: "b1", ResourceID: "r1", Span: model.Span{Start: 1000, End: 2000}}}},
	}, 500)
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)

	snap := c.Snapshot()
	_, ok := snap.Graph.Get("r1")
	assert.True(t, ok)
	b, ok := snap.Alloc.GetBooking("b1")
	require.True(t, ok)
	assert.Equal(t, int64(1000), b.Span.Start)
}

func TestCommit_AbortsWholeBatchOnConflict_LeavesStateAndWALUntouched(t *testing.T) {
	c, path := newCoordinator(t)

	_, err := c.Commit([]Command{
		{Kind: CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 1}},
		{Kind: CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 100000}, Blocking: false}},
	}, 0)
	require.NoError(t, err)

	before := c.Snapshot()

	_, err = c.Commit([]Command{
		{Kind: CreateBookings, Bookings: []model.Booking{
			{ID: "b1", ResourceID: "r1", Span: model.Span{Start: 1000, End: 2000}},
			{ID: "b2", ResourceID: "r1", Span: model.Span{Start: 1500, End: 2500}}, // collides, capacity 1
		}},
	}, 0)
	require.Error(t, err)

	after := c.Snapshot()
	assert.Same(t, before, after)
	_, ok := after.Alloc.GetBooking("b1")
	assert.False(t, ok, "partially applied first booking of the aborted batch must not be visible")

	w, records, err := wal.Open(path)
	require.NoError(t, err)
	defer w.Close()
	assert.Len(t, records, 1, "only the first successful batch should have reached the WAL")
}

func TestCommit_ReplayRebuildsEquivalentState(t *testing.T) {
	c1, path := newCoordinator(t)

	_, err := c1.Commit([]Command{
		{Kind: CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 2}},
		{Kind: CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 100000}, Blocking: false}},
	}, 0)
	require.NoError(t, err)
	_, err = c1.Commit([]Command{
		{Kind: CreateBookings, Bookings: []model.Booking{{ID: "b1", ResourceID: "r1", Span: model.Span{Start: 1000, End: 2000}}}},
	}, 0)
	require.NoError(t, err)

	w, records, err := wal.Open(path)
	require.NoError(t, err)
	defer w.Close()
	require.Len(t, records, 2)

	st := NewState()
	for _, rec := range records {
		var batch []Command
		require.NoError(t, json.Unmarshal(rec.Payload, &batch))
		for _, cmd := range batch {
			next, _, err := applyOne(st, cmd, rec.CommittedAtMillis)
			require.NoError(t, err)
			st = next
		}
	}

	b, ok := st.Alloc.GetBooking("b1")
	require.True(t, ok)
	assert.Equal(t, int64(1000), b.Span.Start)
	_, ok = st.Graph.Get("r1")
	assert.True(t, ok)
}

func TestCommit_DeleteResource_RejectsWhenInUse(t *testing.T) {
	c, _ := newCoordinator(t)
	_, err := c.Commit([]Command{
		{Kind: CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 1}},
		{Kind: CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 100000}, Blocking: false}},
		{Kind: CreateBookings, Bookings: []model.Booking{{ID: "b1", ResourceID: "r1", Span: model.Span{Start: 1000, End: 2000}}}},
	}, 0)
	require.NoError(t, err)

	_, err = c.Commit([]Command{{Kind: DeleteResource, ResourceID: "r1"}}, 0)
	require.Error(t, err)
}

func TestCommit_PlaceAndReleaseHold(t *testing.T) {
	c, _ := newCoordinator(t)
	_, err := c.Commit([]Command{
		{Kind: CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 1}},
		{Kind: CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 100000}, Blocking: false}},
		{Kind: PlaceHold, Hold: &model.Hold{ID: "h1", ResourceID: "r1", Span: model.Span{Start: 1000, End: 2000}, ExpiresAt: 9000}},
	}, 0)
	require.NoError(t, err)

	h, ok := c.Snapshot().Alloc.GetHold("h1")
	require.True(t, ok)
	assert.True(t, h.Active(500))

	_, err = c.Commit([]Command{{Kind: ReleaseHold, HoldID: "h1"}}, 500)
	require.NoError(t, err)
	_, ok = c.Snapshot().Alloc.GetHold("h1")
	assert.False(t, ok)
}
