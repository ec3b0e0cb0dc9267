package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrSubscriptionClosed is reported by a Redis subscription whose server side
// went away.
var ErrSubscriptionClosed = errors.New("subscription closed by server")

// ConnectRedis opens a client for url and pings it within five seconds.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// RedisNotifier fans room events out across server instances over Redis
// pub/sub, one channel per room.
type RedisNotifier struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

var _ Notifier = (*RedisNotifier)(nil)

func NewRedis(rdb *redis.Client, logger *logrus.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, logger: logger}
}

// Publish serializes ev and sends it on the room's channel.
func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ch := Channel(ev.RoomID)
	if err := n.rdb.Publish(ctx, ch, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", ch, err)
	}
	return nil
}

// Subscribe blocks until Redis confirms the subscription, then forwards
// decoded events until ctx ends or Close is called.
func (n *RedisNotifier) Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error) {
	ps := n.rdb.Subscribe(ctx, Channel(roomID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(roomID), err)
	}

	sub := &redisSub{
		ps:     ps,
		events: make(chan Event, 16),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	close(sub.ready)
	go sub.forward(ctx, n.logger.WithField("room_id", roomID))
	return sub, nil
}

// Ping reports whether Redis is reachable.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.rdb.Ping(ctx).Err()
}

type redisSub struct {
	ps     *redis.PubSub
	events chan Event
	ready  chan struct{}
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

func (s *redisSub) forward(ctx context.Context, log *logrus.Entry) {
	defer close(s.events)
	defer s.ps.Close()

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				s.fail(ErrSubscriptionClosed)
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warnf("dropping malformed event: %v", err)
				continue
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSub) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *redisSub) Ready() <-chan struct{} { return s.ready }
func (s *redisSub) Events() <-chan Event   { return s.events }

func (s *redisSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *redisSub) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
