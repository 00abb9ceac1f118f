// SPDX-License-Identifier: Apache-2.0

// Package streaming delivers change-broadcaster (C10) events to external
// subscribers over WebSocket and Server-Sent Events, for cmd/timelined.
package streaming

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/availdb/timelinedb/pkg/logging"
)

// Event is the wire representation of one broadcaster event.
type Event struct {
	Type       string    `json:"type"`
	ResourceID string    `json:"resource_id"`
	EntityID   string    `json:"entity_id,omitempty"`
	BatchID    string    `json:"batch_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Source subscribes to a resource's event stream. internal/core/broadcast's
// Broadcaster satisfies this interface.
type Source interface {
	Subscribe(ctx context.Context, resourceID string) (<-chan Event, error)
}

// WebSocketServer upgrades HTTP connections and forwards one resource's
// event stream to each connected client.
type WebSocketServer struct {
	source   Source
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewWebSocketServer creates a WebSocketServer backed by source.
func NewWebSocketServer(source Source, logger logging.Logger) *WebSocketServer {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &WebSocketServer{
		source: source,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// StreamMessage is one WebSocket frame sent to a subscriber.
type StreamMessage struct {
	Type      string `json:"type"`
	Event     *Event `json:"event,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleWebSocket upgrades the connection and streams events for
// resourceID until the client disconnects or the server shuts down.
func (ws *WebSocketServer) HandleWebSocket(resourceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.upgrader.Upgrade(w, r, nil)
		if err != nil {
			ws.logger.Warn("websocket upgrade failed", "error", err.Error())
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go ws.watchForClose(conn, cancel)

		events, err := ws.source.Subscribe(ctx, resourceID)
		if err != nil {
			ws.sendMessage(conn, StreamMessage{Type: "error", Error: err.Error(), Timestamp: time.Now()})
			return
		}

		go ws.keepAlive(ctx, conn)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					ws.sendMessage(conn, StreamMessage{Type: "stream_closed", Timestamp: time.Now()})
					return
				}
				ws.sendMessage(conn, StreamMessage{Type: "event", Event: &ev, Timestamp: time.Now()})
			}
		}
	}
}

// watchForClose drains client-sent frames so the read deadline doesn't trip
// the connection, and cancels ctx once the client goes away.
func (ws *WebSocketServer) watchForClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (ws *WebSocketServer) sendMessage(conn *websocket.Conn, msg StreamMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		ws.logger.Warn("websocket write failed", "error", err.Error())
	}
}

// keepAlive pings the client periodically so idle timeouts on
// intermediaries don't close the subscription.
func (ws *WebSocketServer) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
