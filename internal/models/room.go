// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the lifecycle state of a room. It only ever moves
// from RoomWaiting to RoomPlaying.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// Valid reports whether s is a known room status.
func (s RoomStatus) Valid() bool {
	return s == RoomWaiting || s == RoomPlaying
}

// SeatIndex addresses one of the two fixed seats of a room.
type SeatIndex int

const (
	SeatOne SeatIndex = 0
	SeatTwo SeatIndex = 1
)

// Seat is one participant slot. A zero UserID means the seat is vacant.
type Seat struct {
	UserID   uuid.UUID  `json:"user_id"`
	Nickname *string    `json:"nickname,omitempty"`
	ThemeID  *uuid.UUID `json:"theme_id,omitempty"`
}

// Occupied reports whether a participant holds the seat.
func (s Seat) Occupied() bool {
	return s.UserID != uuid.Nil
}

// Ready reports whether the seat is occupied and has picked a theme.
func (s Seat) Ready() bool {
	return s.Occupied() && s.ThemeID != nil && *s.ThemeID != uuid.Nil
}

// Room represents a row in the rooms table. Seats is a fixed two-element
// array so that "room full" is structural rather than a length check.
type Room struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Status    RoomStatus `json:"status"`
	CreatorID uuid.UUID  `json:"creator_id"`
	Seats     [2]Seat    `json:"seats"`
	CreatedAt time.Time  `json:"created_at"`
}

// SeatOf returns the index of the seat held by userID.
func (r *Room) SeatOf(userID uuid.UUID) (SeatIndex, bool) {
	if userID == uuid.Nil {
		return 0, false
	}
	for i, s := range r.Seats {
		if s.UserID == userID {
			return SeatIndex(i), true
		}
	}
	return 0, false
}

// Full reports whether both seats are occupied.
func (r *Room) Full() bool {
	return r.Seats[SeatOne].Occupied() && r.Seats[SeatTwo].Occupied()
}

// Ready reports whether both seats are occupied and both have a theme.
func (r *Room) Ready() bool {
	return r.Seats[SeatOne].Ready() && r.Seats[SeatTwo].Ready()
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	c := *r
	for i := range c.Seats {
		if s := r.Seats[i].Nickname; s != nil {
			v := *s
			c.Seats[i].Nickname = &v
		}
		if t := r.Seats[i].ThemeID; t != nil {
			v := *t
			c.Seats[i].ThemeID = &v
		}
	}
	return &c
}
