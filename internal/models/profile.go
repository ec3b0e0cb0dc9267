package models

import "github.com/google/uuid"

// Profile is the nickname record of a participant. Profiles are owned by an
// external service; rooms only snapshot the nickname at seat time.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Nickname *string   `json:"nickname,omitempty"`
}
