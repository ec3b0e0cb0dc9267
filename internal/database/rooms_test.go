package database

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGuardedUpdateJoin(t *testing.T) {
	id := uuid.New()
	user := uuid.New()
	theme := uuid.New()
	nick := "pip"

	q, args, err := buildGuardedUpdate(id,
		store.Guard{Status: models.RoomWaiting, Seat2Vacant: true},
		store.RoomPatch{Join: &models.Seat{UserID: user, Nickname: &nick, ThemeID: &theme}},
	)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE rooms SET player2_id = $2, player2_nickname = $3, player2_theme_id = $4 "+
			"WHERE id = $1 AND status = $5 AND player2_id IS NULL",
		q)
	require.Len(t, args, 5)
	assert.Equal(t, id, args[0])
	assert.Equal(t, user, args[1])
	assert.Equal(t, &nick, args[2])
	assert.Equal(t, uuid.NullUUID{UUID: theme, Valid: true}, args[3])
	assert.Equal(t, "waiting", args[4])
}

func TestBuildGuardedUpdateSeatTheme(t *testing.T) {
	id := uuid.New()
	user := uuid.New()
	theme := uuid.New()

	q, args, err := buildGuardedUpdate(id,
		store.Guard{Status: models.RoomWaiting, SeatOwner: &store.SeatOwner{Index: models.SeatTwo, UserID: user}},
		store.RoomPatch{Theme: &store.SeatTheme{Index: models.SeatTwo, ThemeID: theme}},
	)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE rooms SET player2_theme_id = $2 WHERE id = $1 AND status = $3 AND player2_id = $4",
		q)
	assert.Equal(t, []any{id, theme, "waiting", user}, args)
	assert.NotContains(t, q, "player1_", "only the caller's seat is touched")
}

func TestBuildGuardedUpdateReady(t *testing.T) {
	q, _, err := buildGuardedUpdate(uuid.New(),
		store.Guard{Status: models.RoomWaiting, Ready: true},
		store.RoomPatch{Status: models.RoomPlaying},
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(q, "UPDATE rooms SET status = $2 WHERE id = $1 AND status = $3 AND "))
	assert.Contains(t, q, "player2_theme_id IS NOT NULL")
}

func TestBuildGuardedUpdateEmptyPatch(t *testing.T) {
	_, _, err := buildGuardedUpdate(uuid.New(), store.Guard{}, store.RoomPatch{})
	assert.Error(t, err)
}
