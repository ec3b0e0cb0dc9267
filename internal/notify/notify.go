// Package notify carries room change events from writers to watchers.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
)

// EventUpdate is the only event type: the room row changed.
const EventUpdate = "update"

// Event is published after every successful room mutation.
type Event struct {
	Type   string            `json:"type"`
	RoomID uuid.UUID         `json:"room_id"`
	Status models.RoomStatus `json:"status"`
	At     time.Time         `json:"at"`
}

// Update builds the event announcing that roomID now has status.
func Update(roomID uuid.UUID, status models.RoomStatus) Event {
	return Event{Type: EventUpdate, RoomID: roomID, Status: status, At: time.Now().UTC()}
}

// Channel names the room-scoped channel events for roomID are sent on.
func Channel(roomID uuid.UUID) string {
	return "room:" + roomID.String()
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription is a live, room-scoped event stream.
//
// Ready is closed once the transport confirms the subscription. Events is
// closed when the subscription ends, after which Err reports why (nil when
// Close was called or the context ended).
type Subscription interface {
	Ready() <-chan struct{}
	Events() <-chan Event
	Err() error
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error)
}

// Notifier both publishes and subscribes.
type Notifier interface {
	Publisher
	Subscriber
}
