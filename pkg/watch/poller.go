// SPDX-License-Identifier: Apache-2.0

// Package watch provides a reconnecting client for the change event stream
// published by cmd/timelined's WebSocket adapter over the broadcaster
// (C10). cmd/timelinectl's watch subcommand uses it to print a live feed of
// mutations for one resource.
package watch

import (
	"context"
	"sync"
	"time"
)

// DefaultReconnectInterval is how long the subscriber waits before redialing
// after a lost connection.
const DefaultReconnectInterval = 2 * time.Second

// Conn is the subset of *websocket.Conn the subscriber needs; satisfied
// directly by gorilla/websocket's connection type.
type Conn interface {
	ReadJSON(v any) error
	Close() error
}

// DialFunc opens a new Conn to the event stream for resourceID.
type DialFunc func(ctx context.Context, resourceID string) (Conn, error)

// Event mirrors the JSON payload published by the broadcaster: one
// committed mutation affecting the watched resource.
type Event struct {
	EventType  string    `json:"event_type"`
	ResourceID string    `json:"resource_id"`
	EntityID   string    `json:"entity_id,omitempty"`
	BatchID    string    `json:"batch_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Subscriber maintains a live event feed for one resource, transparently
// reconnecting when the underlying connection drops.
type Subscriber struct {
	dial              DialFunc
	reconnectInterval time.Duration
	bufferSize        int

	mu          sync.Mutex
	eventsSeen  int64
	reconnects  int64
}

// NewSubscriber creates a Subscriber that dials new connections via dial.
func NewSubscriber(dial DialFunc) *Subscriber {
	return &Subscriber{
		dial:              dial,
		reconnectInterval: DefaultReconnectInterval,
		bufferSize:        64,
	}
}

// WithReconnectInterval overrides the delay between reconnect attempts.
func (s *Subscriber) WithReconnectInterval(d time.Duration) *Subscriber {
	s.reconnectInterval = d
	return s
}

// WithBufferSize overrides the event channel's buffer size.
func (s *Subscriber) WithBufferSize(n int) *Subscriber {
	s.bufferSize = n
	return s
}

// Watch starts streaming events for resourceID until ctx is canceled. The
// returned channel is closed when ctx is done.
func (s *Subscriber) Watch(ctx context.Context, resourceID string) <-chan Event {
	eventChan := make(chan Event, s.bufferSize)
	go s.run(ctx, resourceID, eventChan)
	return eventChan
}

// Stats reports how many events have been delivered and how many times the
// subscriber has had to reconnect.
type Stats struct {
	EventsSeen int64
	Reconnects int64
}

// Stats returns a snapshot of the subscriber's lifetime activity.
func (s *Subscriber) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{EventsSeen: s.eventsSeen, Reconnects: s.reconnects}
}

func (s *Subscriber) run(ctx context.Context, resourceID string, eventChan chan<- Event) {
	defer close(eventChan)

	first := true
	for {
		if !first {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectInterval):
			}
			s.mu.Lock()
			s.reconnects++
			s.mu.Unlock()
		}
		first = false

		conn, err := s.dial(ctx, resourceID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		s.readLoop(ctx, conn, eventChan)

		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Subscriber) readLoop(ctx context.Context, conn Conn, eventChan chan<- Event) {
	defer conn.Close()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = time.Now()
		}

		s.mu.Lock()
		s.eventsSeen++
		s.mu.Unlock()

		select {
		case eventChan <- ev:
		case <-ctx.Done():
			return
		}
	}
}
