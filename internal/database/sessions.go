package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/store"
)

var errStartGuard = apperr.NotReady("room is not waiting with both seats ready")

// StartSession flips the room to playing and inserts the session in one
// transaction. The flip runs first so its row lock serializes concurrent starts.
func (s *Store) StartSession(ctx context.Context, session *models.GameSession) error {
	state, err := json.Marshal(session.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	flip := `
		UPDATE rooms
		SET status = 'playing'
		WHERE id = $1 AND status = 'waiting' AND ` + readyPredicate
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, flip, session.RoomID)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return errStartGuard
		}
		_, e = tx.Exec(ctx, insertSessionSQL, sessionArgs(session, state)...)
		return e
	})
	if errors.Is(err, errStartGuard) {
		return errStartGuard
	}
	if isUniqueViolation(err) {
		return apperr.NotReady("room already has a game session")
	}
	if err != nil {
		return fmt.Errorf("tx start session: %w", err)
	}
	return nil
}

const insertSessionSQL = `
	INSERT INTO game_sessions (
		id, room_id, player1_id, player2_id, current_player_id, status, game_state, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

func sessionArgs(session *models.GameSession, state []byte) []any {
	return []any{
		session.ID,
		session.RoomID,
		session.Player1ID,
		session.Player2ID,
		session.CurrentPlayerID,
		string(session.Status),
		state,
		session.CreatedAt,
	}
}

// InsertSession writes a session unless the room already has one.
func (s *Store) InsertSession(ctx context.Context, session *models.GameSession) (bool, error) {
	state, err := json.Marshal(session.Board)
	if err != nil {
		return false, fmt.Errorf("failed to marshal board: %w", err)
	}
	q := insertSessionSQL + ` ON CONFLICT (room_id) DO NOTHING`
	var inserted bool
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q, sessionArgs(session, state)...)
		inserted = tag.RowsAffected() == 1
		return e
	})
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}
	return inserted, nil
}

// SessionByRoom fetches the game session of a room.
func (s *Store) SessionByRoom(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	q := `
	SELECT id, room_id, player1_id, player2_id, current_player_id, status, game_state, created_at
	FROM game_sessions
	WHERE room_id = $1
	`
	var (
		sess   models.GameSession
		status string
		state  []byte
	)
	err := s.pool.QueryRow(ctx, q, roomID).Scan(
		&sess.ID,
		&sess.RoomID,
		&sess.Player1ID,
		&sess.Player2ID,
		&sess.CurrentPlayerID,
		&status,
		&state,
		&sess.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("game session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.Status = models.SessionStatus(status)
	if err := json.Unmarshal(state, &sess.Board); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &sess, nil
}

// StartAnomalies lists rooms whose status disagrees with session existence.
func (s *Store) StartAnomalies(ctx context.Context) ([]store.StartAnomaly, error) {
	q := `
		SELECT r.id, 'session_without_flip'
		FROM rooms r
		JOIN game_sessions s ON s.room_id = r.id
		WHERE r.status = 'waiting'
		UNION ALL
		SELECT r.id, 'flip_without_session'
		FROM rooms r
		LEFT JOIN game_sessions s ON s.room_id = r.id
		WHERE r.status = 'playing' AND s.id IS NULL
	`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query start anomalies: %w", err)
	}
	defer rows.Close()

	var out []store.StartAnomaly
	for rows.Next() {
		var (
			a    store.StartAnomaly
			kind string
		)
		if err := rows.Scan(&a.RoomID, &kind); err != nil {
			return nil, err
		}
		a.Kind = store.AnomalyKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
