package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Nickname returns the profile nickname of userID, or nil when the user has
// no profile or no nickname.
func (s *Store) Nickname(ctx context.Context, userID uuid.UUID) (*string, error) {
	var nick *string
	err := s.pool.QueryRow(ctx, `SELECT nickname FROM profiles WHERE id = $1`, userID).Scan(&nick)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get nickname: %w", err)
	}
	return nick, nil
}
