package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const SessionPlaying SessionStatus = "playing"

// CellKind tags a special board position.
type CellKind string

const (
	CellStar CellKind = "star"
	CellTrap CellKind = "trap"
)

// Board is the persisted board-state document of a game session.
type Board struct {
	Player1Position int              `json:"player1_position"`
	Player2Position int              `json:"player2_position"`
	BoardSize       int              `json:"board_size"`
	SpecialCells    map[int]CellKind `json:"special_cells"`
}

// GameSession is created once per room when the game starts.
type GameSession struct {
	ID              uuid.UUID     `json:"id"`
	RoomID          uuid.UUID     `json:"room_id"`
	Player1ID       uuid.UUID     `json:"player1_id"`
	Player2ID       uuid.UUID     `json:"player2_id"`
	CurrentPlayerID uuid.UUID     `json:"current_player_id"`
	Status          SessionStatus `json:"status"`
	Board           Board         `json:"board"`
	CreatedAt       time.Time     `json:"created_at"`
}
