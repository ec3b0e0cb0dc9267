// internal/game/board.go
package game

import "github.com/jason-s-yu/ludo/internal/models"

// BoardSize is the number of cells on the track.
const BoardSize = 49

// StarIndices and TrapIndices are the fixed special cells of every board.
var (
	StarIndices = []int{2, 4, 6, 8, 9, 11, 12, 15, 22, 25, 27, 31, 36, 37, 40, 41, 43}
	TrapIndices = []int{3, 14, 19, 33, 42, 46, 47}
)

// NewBoard returns the starting board: both players on cell 0 and the fixed
// star and trap layout.
func NewBoard() models.Board {
	cells := make(map[int]models.CellKind, len(StarIndices)+len(TrapIndices))
	for _, i := range StarIndices {
		cells[i] = models.CellStar
	}
	for _, i := range TrapIndices {
		cells[i] = models.CellTrap
	}
	return models.Board{
		Player1Position: 0,
		Player2Position: 0,
		BoardSize:       BoardSize,
		SpecialCells:    cells,
	}
}
