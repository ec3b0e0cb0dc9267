// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/auth"
	"github.com/jason-s-yu/ludo/internal/middleware"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/sirupsen/logrus"
)

// RoomSubprotocol is the websocket subprotocol of the room watch stream.
const RoomSubprotocol = "room"

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// RoomFrame is a server-to-client message on the room watch stream. The first
// frame is "subscribed", sent once the room channel is confirmed; every room
// change after that is an "update".
type RoomFrame struct {
	Type   string            `json:"type"`
	RoomID uuid.UUID         `json:"room_id"`
	Status models.RoomStatus `json:"status,omitempty"`
}

const FrameSubscribed = "subscribed"

// RoomWSHandler streams change notifications for one room to a participant.
// The stream is write-only; anything the client sends is discarded.
func RoomWSHandler(logger *logrus.Logger, rooms RoomService, subscriber notify.Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserFrom(r.Context())
		roomID, err := roomIDParam(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		room, err := rooms.GetRoom(r.Context(), roomID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if _, ok := room.SeatOf(userID); !ok {
			writeError(w, logger, apperr.Validation("you are not in this room"))
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{RoomSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for room %s: %v", roomID, err)
			return
		}
		defer c.CloseNow()

		if c.Subprotocol() != RoomSubprotocol {
			c.Close(BadSubprotocolError, "client must use the 'room' subprotocol")
			return
		}

		fields := logrus.Fields{"room_id": roomID, "user_id": userID}
		middleware.LogWebSocketConnect(logger, r, fields)
		err = streamRoom(c.CloseRead(r.Context()), c, subscriber, roomID)
		middleware.LogWebSocketDisconnect(logger, r, fields, err)
	}
}

// streamRoom forwards room events to c until the client goes away or the
// subscription ends.
func streamRoom(ctx context.Context, c *websocket.Conn, subscriber notify.Subscriber, roomID uuid.UUID) error {
	sub, err := subscriber.Subscribe(ctx, roomID)
	if err != nil {
		c.Close(SubscriptionFailedError, "could not subscribe to room")
		return err
	}
	defer sub.Close()

	select {
	case <-sub.Ready():
	case <-ctx.Done():
		return nil
	}
	if err := writeFrame(ctx, c, RoomFrame{Type: FrameSubscribed, RoomID: roomID}); err != nil {
		return err
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				c.Close(SubscriptionFailedError, "room subscription lost")
				return sub.Err()
			}
			frame := RoomFrame{Type: ev.Type, RoomID: ev.RoomID, Status: ev.Status}
			if err := writeFrame(ctx, c, frame); err != nil {
				return err
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, frame RoomFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}
