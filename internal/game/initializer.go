// internal/game/initializer.go
package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/jason-s-yu/ludo/internal/store"
	"github.com/sirupsen/logrus"
)

// Initializer turns a ready room into exactly one game session.
type Initializer struct {
	rooms     store.RoomStore
	publisher notify.Publisher
	logger    *logrus.Logger

	// coin returns 0 or 1 with equal probability; 0 means seat one starts.
	coin func() int
	now  func() time.Time
}

// Option customizes an Initializer.
type Option func(*Initializer)

// WithCoin replaces the fair coin used to pick the starting player.
func WithCoin(coin func() int) Option {
	return func(in *Initializer) { in.coin = coin }
}

func NewInitializer(rooms store.RoomStore, publisher notify.Publisher, logger *logrus.Logger, opts ...Option) *Initializer {
	in := &Initializer{
		rooms:     rooms,
		publisher: publisher,
		logger:    logger,
		coin:      func() int { return rand.IntN(2) },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// StartGame creates the session for roomID and flips the room to playing in
// one store operation. Any unmet precondition, including losing a race with a
// concurrent start, is reported as NotReady.
func (in *Initializer) StartGame(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	room, err := in.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, apperr.ErrNotFound) {
		return uuid.Nil, apperr.NotReady("room not found")
	}
	if err != nil {
		return uuid.Nil, apperr.Store("get room", err)
	}
	switch {
	case room.Status != models.RoomWaiting:
		return uuid.Nil, apperr.NotReady("room is not waiting")
	case !room.Full():
		return uuid.Nil, apperr.NotReady("waiting for a second player")
	case !room.Ready():
		return uuid.Nil, apperr.NotReady("both players must choose a theme")
	}

	session := in.newSession(room)
	if err := in.rooms.StartSession(ctx, session); err != nil {
		return uuid.Nil, apperr.Store("start session", err)
	}

	in.logger.WithFields(logrus.Fields{
		"room_id":    roomID,
		"session_id": session.ID,
		"starter":    session.CurrentPlayerID,
	}).Info("game started")
	in.publish(ctx, roomID)
	return session.ID, nil
}

// Session returns the game session of roomID.
func (in *Initializer) Session(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	sess, err := in.rooms.SessionByRoom(ctx, roomID)
	if err != nil {
		return nil, apperr.Store("get session", err)
	}
	return sess, nil
}

func (in *Initializer) newSession(room *models.Room) *models.GameSession {
	p1 := room.Seats[models.SeatOne].UserID
	p2 := room.Seats[models.SeatTwo].UserID
	starter := p1
	if in.coin() == 1 {
		starter = p2
	}
	return &models.GameSession{
		ID:              uuid.New(),
		RoomID:          room.ID,
		Player1ID:       p1,
		Player2ID:       p2,
		CurrentPlayerID: starter,
		Status:          models.SessionPlaying,
		Board:           NewBoard(),
		CreatedAt:       in.now().UTC(),
	}
}

func (in *Initializer) publish(ctx context.Context, roomID uuid.UUID) {
	if in.publisher == nil {
		return
	}
	if err := in.publisher.Publish(ctx, notify.Update(roomID, models.RoomPlaying)); err != nil {
		in.logger.WithField("room_id", roomID).Warnf("publish room update failed: %v", err)
	}
}
