package models

import (
	"time"

	"github.com/google/uuid"
)

// Theme is a content bundle owned by a participant. Read-only to the room core.
type Theme struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	TaskCount   int       `json:"task_count"`
	OwnerID     uuid.UUID `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ThemeTemplate is a default theme with its tasks, used to bootstrap a
// participant's empty catalog.
type ThemeTemplate struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tasks       []string `json:"tasks"`
}
