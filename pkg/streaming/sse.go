// SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEServer provides a Server-Sent Events alternative to WebSocketServer
// for clients that prefer a plain long-lived HTTP response (simpler load
// balancer/proxy configuration, no upgrade handshake).
type SSEServer struct {
	source Source
}

// NewSSEServer creates an SSEServer backed by source.
func NewSSEServer(source Source) *SSEServer {
	return &SSEServer{source: source}
}

// sseEvent is one Server-Sent Events frame.
type sseEvent struct {
	ID    string
	Event string
	Data  any
}

// HandleSSE streams events for resourceID as Server-Sent Events until the
// client disconnects.
func (sse *SSEServer) HandleSSE(resourceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ctx := r.Context()

		events, err := sse.source.Subscribe(ctx, resourceID)
		if err != nil {
			sse.write(w, flusher, sseEvent{Event: "error", Data: map[string]string{"error": err.Error()}})
			return
		}

		sse.write(w, flusher, sseEvent{Event: "connected", Data: map[string]string{"resource_id": resourceID}})

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					sse.write(w, flusher, sseEvent{Event: "stream_closed", Data: map[string]string{"resource_id": resourceID}})
					return
				}
				sse.write(w, flusher, sseEvent{Event: ev.Type, ID: ev.BatchID, Data: ev})
			}
		}
	}
}

func (sse *SSEServer) write(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	if event.Event != "" {
		fmt.Fprintf(w, "event: %s\n", event.Event)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		fmt.Fprint(w, "data: {\"error\": \"failed to marshal event\"}\n\n")
		flusher.Flush()
		return
	}

	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
