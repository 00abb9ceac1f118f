// SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	events chan Event
	err    error
}

func (f *fakeSource) Subscribe(ctx context.Context, resourceID string) (<-chan Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func TestSSEServer_StreamsEvents(t *testing.T) {
	events := make(chan Event, 1)
	events <- Event{Type: "booking_created", ResourceID: "r1", BatchID: "b1", OccurredAt: time.Now()}
	close(events)

	srv := NewSSEServer(&fakeSource{events: events})

	req := httptest.NewRequest(http.MethodGet, "/resources/r1/events", nil)
	ctx, cancel := context.WithTimeout(req.Context(), time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	srv.HandleSSE("r1")(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: booking_created")
	assert.Contains(t, body, "event: stream_closed")
}

func TestSSEServer_SubscribeError(t *testing.T) {
	srv := NewSSEServer(&fakeSource{err: assertErr{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resources/r1/events", nil)
	srv.HandleSSE("r1")(rec, req)

	require.True(t, strings.Contains(rec.Body.String(), "event: error"))
}

type assertErr struct{}

func (assertErr) Error() string { return "subscribe failed" }
