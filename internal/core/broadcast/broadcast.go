// SPDX-License-Identifier: Apache-2.0

// Package broadcast implements C10, the per-tenant change broadcaster: a
// registry from resource_id to a set of subscriber channels. Every commit
// that touches a resource publishes one tagged event to that resource's
// subscribers only — events never propagate to ancestor or descendant
// channels. Each subscriber receives its own deep copy of the changed
// entity (github.com/mohae/deepcopy) so one slow or mutating subscriber
// can never corrupt or block another's view of the same commit.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/mohae/deepcopy"

	"github.com/availdb/timelinedb/pkg/streaming"
)

// Kind is the tag of the event sum type.
type Kind string

const (
	ResourceCreated  Kind = "resource_created"
	ResourceUpdated  Kind = "resource_updated"
	ResourceDeleted  Kind = "resource_deleted"
	RuleAdded        Kind = "rule_added"
	RuleUpdated      Kind = "rule_updated"
	RuleRemoved      Kind = "rule_removed"
	HoldPlaced       Kind = "hold_placed"
	HoldReleased     Kind = "hold_released"
	BookingConfirmed Kind = "booking_confirmed"
	BookingCancelled Kind = "booking_cancelled"
)

// Event is one committed change to a single resource.
type Event struct {
	Kind             Kind
	ResourceID       string
	EntityID         string
	BatchID          string // correlation id, minted by internal/core/mutation's Commit
	OccurredAtMillis int64
	Entity           any // model.Resource, model.Rule, model.Booking, or model.Hold
}

// Broadcaster is the per-tenant subscriber registry.
type Broadcaster struct {
	mu         sync.Mutex
	subs       map[string]map[uint64]chan streaming.Event
	nextSubID  uint64
	bufferSize int
}

// New returns a Broadcaster whose per-subscriber channels are buffered to
// bufferSize.
func New(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Broadcaster{subs: make(map[string]map[uint64]chan streaming.Event), bufferSize: bufferSize}
}

// Subscribe registers a new subscriber to resourceID's channel, satisfying
// pkg/streaming.Source so pkg/streaming's WebSocket and SSE servers (of
// which cmd/timelined mounts the WebSocket one) can relay engine events
// directly. The subscription is removed automatically
// when ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, resourceID string) (<-chan streaming.Event, error) {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	ch := make(chan streaming.Event, b.bufferSize)
	if b.subs[resourceID] == nil {
		b.subs[resourceID] = make(map[uint64]chan streaming.Event)
	}
	b.subs[resourceID][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(resourceID, id)
	}()

	return ch, nil
}

func (b *Broadcaster) remove(resourceID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[resourceID]
	if !ok {
		return
	}
	if ch, ok := set[id]; ok {
		close(ch)
		delete(set, id)
	}
	if len(set) == 0 {
		delete(b.subs, resourceID)
	}
}

// Publish delivers ev to every current subscriber of ev.ResourceID. A
// subscriber whose buffered channel is full cannot keep up and is dropped
// rather than let one slow reader stall the committing writer.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[ev.ResourceID]
	if len(set) == 0 {
		return
	}

	for id, ch := range set {
		payload := streaming.Event{
			Type:       string(ev.Kind),
			ResourceID: ev.ResourceID,
			EntityID:   ev.EntityID,
			BatchID:    ev.BatchID,
			OccurredAt: time.UnixMilli(ev.OccurredAtMillis),
			Payload:    deepcopy.Copy(ev.Entity),
		}
		select {
		case ch <- payload:
		default:
			close(ch)
			delete(set, id)
		}
	}
	if len(set) == 0 {
		delete(b.subs, ev.ResourceID)
	}
}

// SubscriberCount reports how many subscribers resourceID currently has,
// for tests and diagnostics.
func (b *Broadcaster) SubscriberCount(resourceID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[resourceID])
}

// Close disconnects every subscriber across every resource, used when a
// tenant engine shuts down.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for resourceID, set := range b.subs {
		for id, ch := range set {
			close(ch)
			delete(set, id)
		}
		delete(b.subs, resourceID)
	}
}
