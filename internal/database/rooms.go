package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/store"
)

const uniqueViolation = "23505"

const roomColumns = `
	id, room_code, status, creator_id,
	player1_id, player1_nickname, player1_theme_id,
	player2_id, player2_nickname, player2_theme_id,
	created_at`

// readyPredicate holds when both seats are occupied and both picked a theme.
const readyPredicate = `player1_id IS NOT NULL AND player1_theme_id IS NOT NULL
	AND player2_id IS NOT NULL AND player2_theme_id IS NOT NULL`

// InsertRoom creates a new room row. A waiting room whose code collides with
// another waiting room yields store.ErrCodeTaken.
func (s *Store) InsertRoom(ctx context.Context, room *models.Room) error {
	q := `
	INSERT INTO rooms (
		id, room_code, status, creator_id,
		player1_id, player1_nickname, player1_theme_id,
		player2_id, player2_nickname, player2_theme_id,
		created_at
	)
	VALUES ($1, $2, $3, $4,
	        $5, $6, $7,
	        $8, $9, $10,
	        $11)
	`
	seat1, seat2 := room.Seats[models.SeatOne], room.Seats[models.SeatTwo]
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			room.ID,
			room.Code,
			string(room.Status),
			room.CreatorID,
			seat1.UserID,
			seat1.Nickname,
			nullUUID(seat1.ThemeID),
			seatUser(seat2),
			seat2.Nickname,
			nullUUID(seat2.ThemeID),
			room.CreatedAt,
		)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "rooms_waiting_code_key" {
			return store.ErrCodeTaken
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// GetRoom fetches a room by ID.
func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	r, err := scanRoom(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("room not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}

// FindWaitingRoom fetches the waiting room holding code.
func (s *Store) FindWaitingRoom(ctx context.Context, code string) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE room_code = $1 AND status = 'waiting'`
	r, err := scanRoom(s.pool.QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no waiting room with that code")
	}
	if err != nil {
		return nil, fmt.Errorf("find waiting room: %w", err)
	}
	return r, nil
}

// UpdateIf runs a single guarded UPDATE; the guard is part of the WHERE
// clause so it is evaluated against the row under the write lock.
func (s *Store) UpdateIf(ctx context.Context, id uuid.UUID, guard store.Guard, patch store.RoomPatch) (bool, error) {
	q, args, err := buildGuardedUpdate(id, guard, patch)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("guarded room update: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// buildGuardedUpdate renders patch as SET clauses and guard as WHERE clauses.
func buildGuardedUpdate(id uuid.UUID, guard store.Guard, patch store.RoomPatch) (string, []any, error) {
	if patch.Empty() {
		return "", nil, errors.New("empty room patch")
	}
	args := []any{id}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var sets []string
	if j := patch.Join; j != nil {
		sets = append(sets,
			"player2_id = "+arg(j.UserID),
			"player2_nickname = "+arg(j.Nickname),
			"player2_theme_id = "+arg(nullUUID(j.ThemeID)),
		)
	}
	if t := patch.Theme; t != nil {
		sets = append(sets, seatColumn(t.Index, "theme_id")+" = "+arg(t.ThemeID))
	}
	if patch.Status != "" {
		sets = append(sets, "status = "+arg(string(patch.Status)))
	}

	where := []string{"id = $1"}
	if guard.Status != "" {
		where = append(where, "status = "+arg(string(guard.Status)))
	}
	if guard.Seat2Vacant {
		where = append(where, "player2_id IS NULL")
	}
	if o := guard.SeatOwner; o != nil {
		where = append(where, seatColumn(o.Index, "id")+" = "+arg(o.UserID))
	}
	if guard.Ready {
		where = append(where, readyPredicate)
	}

	q := fmt.Sprintf("UPDATE rooms SET %s WHERE %s", strings.Join(sets, ", "), strings.Join(where, " AND "))
	return q, args, nil
}

// seatColumn maps a seat index to its playerN_<field> column.
func seatColumn(idx models.SeatIndex, field string) string {
	if idx == models.SeatTwo {
		return "player2_" + field
	}
	return "player1_" + field
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var (
		r                models.Room
		status           string
		p1Theme, p2Theme uuid.NullUUID
		p2ID             uuid.NullUUID
		p1Nick, p2Nick   *string
	)
	err := row.Scan(
		&r.ID,
		&r.Code,
		&status,
		&r.CreatorID,
		&r.Seats[models.SeatOne].UserID,
		&p1Nick,
		&p1Theme,
		&p2ID,
		&p2Nick,
		&p2Theme,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.RoomStatus(status)
	r.Seats[models.SeatOne].Nickname = p1Nick
	r.Seats[models.SeatOne].ThemeID = uuidPtr(p1Theme)
	if p2ID.Valid {
		r.Seats[models.SeatTwo] = models.Seat{
			UserID:   p2ID.UUID,
			Nickname: p2Nick,
			ThemeID:  uuidPtr(p2Theme),
		}
	}
	return &r, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func seatUser(s models.Seat) uuid.NullUUID {
	if !s.Occupied() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: s.UserID, Valid: true}
}
