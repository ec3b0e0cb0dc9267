package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoomSeatsAndReadiness(t *testing.T) {
	owner, guest := uuid.New(), uuid.New()
	theme := uuid.New()
	r := &Room{
		ID:     uuid.New(),
		Status: RoomWaiting,
		Seats:  [2]Seat{{UserID: owner, ThemeID: &theme}},
	}

	idx, ok := r.SeatOf(owner)
	assert.True(t, ok)
	assert.Equal(t, SeatOne, idx)
	_, ok = r.SeatOf(guest)
	assert.False(t, ok)
	_, ok = r.SeatOf(uuid.Nil)
	assert.False(t, ok, "vacant seat must not match the nil id")

	assert.False(t, r.Full())
	assert.False(t, r.Ready())

	r.Seats[SeatTwo] = Seat{UserID: guest}
	assert.True(t, r.Full())
	assert.False(t, r.Ready())

	other := uuid.New()
	r.Seats[SeatTwo].ThemeID = &other
	assert.True(t, r.Ready())
}

func TestRoomCloneIsDeep(t *testing.T) {
	theme := uuid.New()
	nick := "kiwi"
	r := &Room{Seats: [2]Seat{{UserID: uuid.New(), ThemeID: &theme, Nickname: &nick}}}

	c := r.Clone()
	*c.Seats[SeatOne].ThemeID = uuid.New()
	*c.Seats[SeatOne].Nickname = "changed"

	assert.Equal(t, theme, *r.Seats[SeatOne].ThemeID)
	assert.Equal(t, "kiwi", *r.Seats[SeatOne].Nickname)
}
