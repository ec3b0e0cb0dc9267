// internal/lobby/manager.go
package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/jason-s-yu/ludo/internal/roomcode"
	"github.com/jason-s-yu/ludo/internal/store"
	"github.com/sirupsen/logrus"
)

// maxCodeAttempts bounds code regeneration when a waiting room already holds
// the drawn code.
const maxCodeAttempts = 5

// Manager drives the room lifecycle: create, join, pick a seat theme. It holds
// no locks of its own; every race is settled by the store's guarded writes.
type Manager struct {
	rooms     store.RoomStore
	themes    store.ThemeCatalog
	profiles  store.ProfileStore
	publisher notify.Publisher
	logger    *logrus.Logger

	newCode func() (string, error)
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCodeGenerator replaces roomcode.Generate.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.newCode = gen }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(rooms store.RoomStore, themes store.ThemeCatalog, profiles store.ProfileStore,
	publisher notify.Publisher, logger *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		rooms:     rooms,
		themes:    themes,
		profiles:  profiles,
		publisher: publisher,
		logger:    logger,
		newCode:   roomcode.Generate,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRoom opens a waiting room with the owner in seat one.
func (m *Manager) CreateRoom(ctx context.Context, ownerID uuid.UUID, themeID *uuid.UUID) (uuid.UUID, error) {
	if ownerID == uuid.Nil {
		return uuid.Nil, apperr.Auth("sign in required")
	}
	if err := m.checkTheme(ctx, ownerID, themeID); err != nil {
		return uuid.Nil, err
	}

	room := &models.Room{
		ID:        uuid.New(),
		Status:    models.RoomWaiting,
		CreatorID: ownerID,
		CreatedAt: m.now().UTC(),
	}
	room.Seats[models.SeatOne] = models.Seat{
		UserID:   ownerID,
		Nickname: m.nickname(ctx, ownerID),
		ThemeID:  copyID(themeID),
	}

	log := m.logger.WithFields(logrus.Fields{"room_id": room.ID, "user_id": ownerID})
	for attempt := 1; ; attempt++ {
		code, err := m.newCode()
		if err != nil {
			return uuid.Nil, apperr.Wrap(apperr.CodeStore, "generate room code", err)
		}
		room.Code = code

		err = m.rooms.InsertRoom(ctx, room)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrCodeTaken) {
			return uuid.Nil, apperr.Store("create room", err)
		}
		if attempt == maxCodeAttempts {
			return uuid.Nil, apperr.Wrap(apperr.CodeStore, "could not allocate a free room code", err)
		}
		log.Debugf("room code %s taken, retrying (attempt %d)", code, attempt)
	}

	log.WithField("code", room.Code).Info("room created")
	m.publish(ctx, room.ID, models.RoomWaiting)
	return room.ID, nil
}

// JoinRoom seats userID in seat two of the waiting room holding code. Of any
// number of concurrent joiners at most one succeeds.
func (m *Manager) JoinRoom(ctx context.Context, code string, userID uuid.UUID, themeID *uuid.UUID) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, apperr.Auth("sign in required")
	}
	code = roomcode.Normalize(code)
	if code == "" {
		return uuid.Nil, apperr.Validation("room code is required")
	}
	if err := m.checkTheme(ctx, userID, themeID); err != nil {
		return uuid.Nil, err
	}
	if !roomcode.Valid(code) {
		return uuid.Nil, apperr.NotFound("no waiting room with that code")
	}

	room, err := m.rooms.FindWaitingRoom(ctx, code)
	if err != nil {
		return uuid.Nil, apperr.Store("find room", err)
	}
	if room.Seats[models.SeatOne].UserID == userID {
		return uuid.Nil, apperr.Conflict("cannot join your own room")
	}
	if room.Seats[models.SeatTwo].Occupied() {
		return uuid.Nil, apperr.Conflict("room is full")
	}

	seat := models.Seat{
		UserID:   userID,
		Nickname: m.nickname(ctx, userID),
		ThemeID:  copyID(themeID),
	}
	ok, err := m.rooms.UpdateIf(ctx, room.ID,
		store.Guard{Status: models.RoomWaiting, Seat2Vacant: true},
		store.RoomPatch{Join: &seat},
	)
	if err != nil {
		return uuid.Nil, apperr.Store("join room", err)
	}
	if !ok {
		return uuid.Nil, m.lostJoin(ctx, room.ID)
	}

	m.logger.WithFields(logrus.Fields{"room_id": room.ID, "user_id": userID}).Info("joined room")
	m.publish(ctx, room.ID, models.RoomWaiting)
	return room.ID, nil
}

// lostJoin classifies a join whose guard failed by re-reading the room.
func (m *Manager) lostJoin(ctx context.Context, roomID uuid.UUID) error {
	current, err := m.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return apperr.Store("reload room", err)
	}
	if current.Status != models.RoomWaiting {
		return apperr.NotFound("room is no longer waiting")
	}
	return apperr.Conflict("room is full")
}

// SetSeatTheme changes the theme of the seat held by userID and nothing else.
func (m *Manager) SetSeatTheme(ctx context.Context, roomID, userID uuid.UUID, themeID *uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.Auth("sign in required")
	}
	if err := m.checkTheme(ctx, userID, themeID); err != nil {
		return err
	}

	room, err := m.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return apperr.Store("get room", err)
	}
	idx, ok := room.SeatOf(userID)
	if !ok {
		return apperr.Validation("you are not in this room")
	}

	ok, err = m.rooms.UpdateIf(ctx, roomID,
		store.Guard{Status: models.RoomWaiting, SeatOwner: &store.SeatOwner{Index: idx, UserID: userID}},
		store.RoomPatch{Theme: &store.SeatTheme{Index: idx, ThemeID: *themeID}},
	)
	if err != nil {
		return apperr.Store("set seat theme", err)
	}
	if !ok {
		return apperr.Conflict("room has already started")
	}

	m.logger.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "seat": int(idx)}).Debug("seat theme set")
	m.publish(ctx, roomID, models.RoomWaiting)
	return nil
}

// GetRoom returns the current room.
func (m *Manager) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	room, err := m.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, apperr.Store("get room", err)
	}
	return room, nil
}

// checkTheme requires themeID to name a theme owned by userID.
func (m *Manager) checkTheme(ctx context.Context, userID uuid.UUID, themeID *uuid.UUID) error {
	if themeID == nil || *themeID == uuid.Nil {
		return apperr.Validation("theme is required")
	}
	theme, err := m.themes.GetTheme(ctx, *themeID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Validation("unknown theme")
	}
	if err != nil {
		return apperr.Store("get theme", err)
	}
	if theme.OwnerID != userID {
		return apperr.Validation("theme is not yours")
	}
	return nil
}

// nickname snapshots the profile nickname; a lookup failure yields none.
func (m *Manager) nickname(ctx context.Context, userID uuid.UUID) *string {
	if m.profiles == nil {
		return nil
	}
	nick, err := m.profiles.Nickname(ctx, userID)
	if err != nil {
		m.logger.WithField("user_id", userID).Debugf("nickname lookup failed: %v", err)
		return nil
	}
	return nick
}

// publish announces a room change. Watchers reconcile on their own, so a
// failed publish is only logged.
func (m *Manager) publish(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, notify.Update(roomID, status)); err != nil {
		m.logger.WithField("room_id", roomID).Warnf("publish room update failed: %v", err)
	}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
