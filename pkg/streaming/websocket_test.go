// SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/availdb/timelinedb/pkg/logging"
)

func TestWebSocketServer_StreamsEvents(t *testing.T) {
	events := make(chan Event, 1)
	events <- Event{Type: "hold_placed", ResourceID: "r1", BatchID: "b1", OccurredAt: time.Now()}

	srv := NewWebSocketServer(&fakeSource{events: events}, logging.NoOpLogger{})

	server := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket("r1")))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))

	require.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	require.Equal(t, "hold_placed", msg.Event.Type)
}

func TestWebSocketServer_SubscribeError(t *testing.T) {
	srv := NewWebSocketServer(&fakeSource{err: assertErr{}}, logging.NoOpLogger{})

	server := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket("r1")))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))

	require.Equal(t, "error", msg.Type)
}
