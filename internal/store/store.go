// Package store declares the persistence contracts consumed by the room core.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
)

// ErrCodeTaken is returned by InsertRoom when another waiting room already
// uses the generated code.
var ErrCodeTaken = errors.New("room code already in use")

// RoomStore persists rooms and game sessions. Implementations must be safe
// for concurrent use; UpdateIf and StartSession are the only coordination
// primitives the room core relies on.
type RoomStore interface {
	InsertRoom(ctx context.Context, room *models.Room) error
	// GetRoom returns an apperr NotFound error when no room has the id.
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	// FindWaitingRoom looks up a waiting room by canonical code.
	FindWaitingRoom(ctx context.Context, code string) (*models.Room, error)
	// UpdateIf applies patch only if guard still holds on the current row,
	// evaluated atomically with the write. It reports whether the write happened.
	UpdateIf(ctx context.Context, id uuid.UUID, guard Guard, patch RoomPatch) (bool, error)

	// StartSession inserts the session and flips its room to playing in one
	// atomic step, provided the room is waiting with both seats ready.
	// It returns an apperr NotReady error when that guard fails.
	StartSession(ctx context.Context, session *models.GameSession) error
	// InsertSession inserts a session unless its room already has one.
	// It reports whether a row was written.
	InsertSession(ctx context.Context, session *models.GameSession) (bool, error)
	SessionByRoom(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error)
	// StartAnomalies lists rooms whose status and session disagree.
	StartAnomalies(ctx context.Context) ([]StartAnomaly, error)
}

// ThemeCatalog supplies the themes a participant owns.
type ThemeCatalog interface {
	// ListOwnedThemes returns the owner's themes, most recent first.
	ListOwnedThemes(ctx context.Context, ownerID uuid.UUID) ([]models.Theme, error)
	GetTheme(ctx context.Context, id uuid.UUID) (*models.Theme, error)
}

// ThemeSeeder creates default themes (and their tasks) for an owner. Seeding
// is idempotent per title.
type ThemeSeeder interface {
	SeedThemes(ctx context.Context, ownerID uuid.UUID, templates []models.ThemeTemplate) error
}

// ProfileStore reads participant nicknames. A missing profile is not an error.
type ProfileStore interface {
	Nickname(ctx context.Context, userID uuid.UUID) (*string, error)
}

// AnomalyKind classifies a half-finished game start.
type AnomalyKind string

const (
	// SessionWithoutFlip: a session exists but the room is still waiting.
	SessionWithoutFlip AnomalyKind = "session_without_flip"
	// FlipWithoutSession: the room is playing but has no session.
	FlipWithoutSession AnomalyKind = "flip_without_session"
)

type StartAnomaly struct {
	RoomID uuid.UUID
	Kind   AnomalyKind
}
