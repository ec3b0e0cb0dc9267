package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Broker is an in-process pub/sub keyed by room ID. Slow subscribers miss
// events rather than block publishers.
type Broker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[*brokerSub]struct{}
}

var _ Notifier = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[uuid.UUID]map[*brokerSub]struct{}),
	}
}

// Subscribe registers a subscriber for roomID. The subscription is confirmed
// immediately and closes when ctx ends.
func (b *Broker) Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &brokerSub{
		broker: b,
		roomID: roomID,
		ch:     make(chan Event, 16),
		ready:  make(chan struct{}),
	}
	close(sub.ready)

	b.mu.Lock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[*brokerSub]struct{})
	}
	b.subs[roomID][sub] = struct{}{}
	b.mu.Unlock()

	context.AfterFunc(ctx, func() { sub.Close() })
	return sub, nil
}

// Publish sends ev to every subscriber of ev.RoomID.
func (b *Broker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	for sub := range b.subs[ev.RoomID] {
		select {
		case sub.ch <- ev:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
	return nil
}

// Subscribers reports how many subscriptions roomID currently has.
func (b *Broker) Subscribers(roomID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[roomID])
}

func (b *Broker) unsubscribe(sub *brokerSub) {
	b.mu.Lock()
	delete(b.subs[sub.roomID], sub)
	if len(b.subs[sub.roomID]) == 0 {
		delete(b.subs, sub.roomID)
	}
	close(sub.ch)
	b.mu.Unlock()
}

type brokerSub struct {
	broker *Broker
	roomID uuid.UUID
	ch     chan Event
	ready  chan struct{}
	once   sync.Once
}

func (s *brokerSub) Ready() <-chan struct{} { return s.ready }
func (s *brokerSub) Events() <-chan Event   { return s.ch }
func (s *brokerSub) Err() error             { return nil }

func (s *brokerSub) Close() error {
	s.once.Do(func() { s.broker.unsubscribe(s) })
	return nil
}
