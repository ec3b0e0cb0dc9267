package store

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
)

// Guard is a predicate over the current room row. Zero fields are not checked.
type Guard struct {
	Status      models.RoomStatus // required status
	Seat2Vacant bool              // seat two has no participant
	SeatOwner   *SeatOwner        // the given seat is held by the given user
	Ready       bool              // both seats occupied with a theme
}

// SeatOwner pins a seat to a participant.
type SeatOwner struct {
	Index  models.SeatIndex
	UserID uuid.UUID
}

// Matches evaluates the guard against r.
func (g Guard) Matches(r *models.Room) bool {
	if g.Status != "" && r.Status != g.Status {
		return false
	}
	if g.Seat2Vacant && r.Seats[models.SeatTwo].Occupied() {
		return false
	}
	if g.SeatOwner != nil {
		if g.SeatOwner.UserID == uuid.Nil || r.Seats[g.SeatOwner.Index].UserID != g.SeatOwner.UserID {
			return false
		}
	}
	if g.Ready && !r.Ready() {
		return false
	}
	return true
}

// RoomPatch describes a partial room update. Nil fields are left unchanged.
type RoomPatch struct {
	Join   *models.Seat      // occupy seat two
	Theme  *SeatTheme        // set one seat's theme
	Status models.RoomStatus // "" leaves the status unchanged
}

// SeatTheme targets a single seat's theme.
type SeatTheme struct {
	Index   models.SeatIndex
	ThemeID uuid.UUID
}

// Empty reports whether the patch changes nothing.
func (p RoomPatch) Empty() bool {
	return p.Join == nil && p.Theme == nil && p.Status == ""
}

// Apply mutates r in place.
func (p RoomPatch) Apply(r *models.Room) {
	if p.Join != nil {
		seat := *p.Join
		r.Seats[models.SeatTwo] = seat
	}
	if p.Theme != nil {
		id := p.Theme.ThemeID
		r.Seats[p.Theme.Index].ThemeID = &id
	}
	if p.Status != "" {
		r.Status = p.Status
	}
}
