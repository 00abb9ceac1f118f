// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/availdb/timelinedb/internal/core/availability"
	"github.com/availdb/timelinedb/internal/core/model"
	"github.com/availdb/timelinedb/internal/core/mutation"
)

func TestOpen_ReplaysExistingWAL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenant.wal")

	e1, err := Open("tenant-a", Options{WALPath: path})
	require.NoError(t, err)
	_, err = e1.Commit([]mutation.Command{
		{Kind: mutation.CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 1}},
		{Kind: mutation.CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 100000}, Blocking: false}},
		{Kind: mutation.CreateBookings, Bookings: []model.Booking{{ID: "b1", ResourceID: "r1", Span: model.Span{Start: 1000, End: 2000}}}},
	}, 0)
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	e2, err := Open("tenant-a", Options{WALPath: path})
	require.NoError(t, err)
	defer e2.Close()

	snap := e2.Snapshot()
	b, ok := snap.Alloc.GetBooking("b1")
	require.True(t, ok)
	assert.Equal(t, int64(1000), b.Span.Start)
}

func TestEngine_SolveAfterCommit(t *testing.T) {
	dir := t.TempDir()
	e, err := Open("tenant-b", Options{WALPath: filepath.Join(dir, "tenant.wal")})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Commit([]mutation.Command{
		{Kind: mutation.CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 1}},
		{Kind: mutation.CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 10000}, Blocking: false}},
		{Kind: mutation.CreateBookings, Bookings: []model.Booking{{ID: "b1", ResourceID: "r1", Span: model.Span{Start: 3000, End: 5000}}}},
	}, 0)
	require.NoError(t, err)

	gaps, err := e.Solve(availability.Query{ResourceIDs: []string{"r1"}, Window: model.Span{Start: 0, End: 10000}}, 0)
	require.NoError(t, err)
	require.Len(t, gaps, 2)
	assert.Equal(t, model.Span{Start: 0, End: 3000}, gaps[0])
	assert.Equal(t, model.Span{Start: 5000, End: 10000}, gaps[1])
}

func TestEngine_StartRunsReaperInBackground(t *testing.T) {
	dir := t.TempDir()
	e, err := Open("tenant-c", Options{WALPath: filepath.Join(dir, "tenant.wal"), ReaperInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Commit([]mutation.Command{
		{Kind: mutation.CreateResource, Resource: &model.Resource{ID: "r1", Capacity: 1}},
		{Kind: mutation.CreateRule, Rule: &model.Rule{ID: "rule1", ResourceID: "r1", Span: model.Span{Start: 0, End: 100000}, Blocking: false}},
		{Kind: mutation.PlaceHold, Hold: &model.Hold{ID: "h1", ResourceID: "r1", Span: model.Span{Start: 0, End: 1000}, ExpiresAt: 1}},
	}, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	assert.Eventually(t, func() bool {
		_, ok := e.Snapshot().Alloc.GetHold("h1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
