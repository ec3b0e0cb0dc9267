package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/models"
)

const themeColumns = `id, title, description, COALESCE(task_count, 0), creator_id, created_at`

// ListOwnedThemes returns the themes created by ownerID, most recent first.
func (s *Store) ListOwnedThemes(ctx context.Context, ownerID uuid.UUID) ([]models.Theme, error) {
	q := `SELECT ` + themeColumns + ` FROM themes WHERE creator_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var out []models.Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetTheme fetches a single theme by ID.
func (s *Store) GetTheme(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	q := `SELECT ` + themeColumns + ` FROM themes WHERE id = $1`
	t, err := scanTheme(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("theme not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get theme: %w", err)
	}
	return t, nil
}

// SeedThemes inserts each template (and its ordered tasks) that the owner
// does not already have a theme titled after. The (creator_id, title) unique
// index makes concurrent seeders for the same owner insert each title once.
func (s *Store) SeedThemes(ctx context.Context, ownerID uuid.UUID, templates []models.ThemeTemplate) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, tpl := range templates {
			var desc *string
			if tpl.Description != "" {
				desc = &tpl.Description
			}
			var themeID uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO themes (id, title, description, task_count, creator_id, is_public)
				VALUES ($1, $2, $3, $4, $5, FALSE)
				ON CONFLICT (creator_id, title) DO NOTHING
				RETURNING id
			`, uuid.New(), tpl.Title, desc, len(tpl.Tasks), ownerID).Scan(&themeID)
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("insert theme %q: %w", tpl.Title, err)
			}

			batch := &pgx.Batch{}
			for i, task := range tpl.Tasks {
				batch.Queue(`
					INSERT INTO tasks (id, theme_id, description, type, order_index, is_ai_generated)
					VALUES ($1, $2, $3, 'default', $4, FALSE)
				`, uuid.New(), themeID, task, i)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert tasks for %q: %w", tpl.Title, err)
			}
		}
		return nil
	})
}

func scanTheme(row pgx.Row) (*models.Theme, error) {
	var t models.Theme
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.TaskCount, &t.OwnerID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
