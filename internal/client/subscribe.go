package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/handlers"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/jason-s-yu/ludo/internal/watcher"
)

var _ notify.Subscriber = (*Client)(nil)

// Subscribe opens the room watch stream. The subscription is confirmed when
// the server's "subscribed" frame arrives.
func (c *Client) Subscribe(ctx context.Context, roomID uuid.UUID) (notify.Subscription, error) {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/rooms/" + roomID.String() + "/ws"
	header := http.Header{}
	if tok := c.currentToken(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient:   c.http,
		HTTPHeader:   header,
		Subprotocols: []string{handlers.RoomSubprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial room stream: %w", err)
	}
	if conn.Subprotocol() != handlers.RoomSubprotocol {
		conn.Close(websocket.StatusPolicyViolation, "expected the 'room' subprotocol")
		return nil, errors.New("server did not accept the room subprotocol")
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &wsSub{
		conn:   conn,
		cancel: cancel,
		ready:  make(chan struct{}),
		events: make(chan notify.Event, 16),
	}
	go sub.readLoop(ctx)
	return sub, nil
}

type wsSub struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	ready  chan struct{}
	events chan notify.Event
	once   sync.Once

	mu  sync.Mutex
	err error
}

func (s *wsSub) readLoop(ctx context.Context) {
	defer close(s.events)
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				s.fail(err)
			}
			return
		}
		var frame handlers.RoomFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case handlers.FrameSubscribed:
			select {
			case <-s.ready:
			default:
				close(s.ready)
			}
		case notify.EventUpdate:
			ev := notify.Event{Type: frame.Type, RoomID: frame.RoomID, Status: frame.Status, At: time.Now().UTC()}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *wsSub) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *wsSub) Ready() <-chan struct{}      { return s.ready }
func (s *wsSub) Events() <-chan notify.Event { return s.events }

func (s *wsSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *wsSub) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}

// WatchRoom returns a watcher for roomID backed by this client: its session,
// its websocket subscription and its status reads.
func (c *Client) WatchRoom(roomID uuid.UUID, lastKnown models.RoomStatus, sink func(watcher.Signal), cfg watcher.Config) *watcher.Watcher {
	return watcher.New(roomID, lastKnown, watcher.Deps{
		Sessions:   c,
		Subscriber: c,
		Reader:     c,
		Sink:       sink,
		Logger:     c.logger,
	}, cfg)
}
