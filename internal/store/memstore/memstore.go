// Package memstore is an in-memory implementation of the store contracts,
// used for local development and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/store"
)

// Store keeps rooms, sessions, themes and profiles in memory. A single mutex
// makes every guarded write atomic with respect to its guard.
type Store struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]*models.Room
	codes    map[string]uuid.UUID // code -> waiting room
	sessions map[uuid.UUID]*models.GameSession
	byRoom   map[uuid.UUID]uuid.UUID // room -> session
	themes   map[uuid.UUID]*models.Theme
	tasks    map[uuid.UUID][]string
	profiles map[uuid.UUID]string
}

var (
	_ store.RoomStore    = (*Store)(nil)
	_ store.ThemeCatalog = (*Store)(nil)
	_ store.ThemeSeeder  = (*Store)(nil)
	_ store.ProfileStore = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms:    make(map[uuid.UUID]*models.Room),
		codes:    make(map[string]uuid.UUID),
		sessions: make(map[uuid.UUID]*models.GameSession),
		byRoom:   make(map[uuid.UUID]uuid.UUID),
		themes:   make(map[uuid.UUID]*models.Theme),
		tasks:    make(map[uuid.UUID][]string),
		profiles: make(map[uuid.UUID]string),
	}
}

func (s *Store) InsertRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.ID]; exists {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	if room.Status == models.RoomWaiting {
		if _, taken := s.codes[room.Code]; taken {
			return store.ErrCodeTaken
		}
		s.codes[room.Code] = room.ID
	}
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *Store) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, apperr.NotFound("room not found")
	}
	return r.Clone(), nil
}

func (s *Store) FindWaitingRoom(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, apperr.NotFound("no waiting room with that code")
	}
	return s.rooms[id].Clone(), nil
}

func (s *Store) UpdateIf(_ context.Context, id uuid.UUID, guard store.Guard, patch store.RoomPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok || !guard.Matches(r) {
		return false, nil
	}
	s.applyUnsafe(r, patch)
	return true, nil
}

// applyUnsafe mutates r and keeps the waiting-code index in sync. Caller holds mu.
func (s *Store) applyUnsafe(r *models.Room, patch store.RoomPatch) {
	patch.Apply(r)
	if r.Status != models.RoomWaiting && s.codes[r.Code] == r.ID {
		delete(s.codes, r.Code)
	}
}

func (s *Store) StartSession(_ context.Context, session *models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[session.RoomID]
	if !ok {
		return apperr.NotFound("room not found")
	}
	if !(store.Guard{Status: models.RoomWaiting, Ready: true}).Matches(r) {
		return apperr.NotReady("room is not waiting with both seats ready")
	}
	if _, exists := s.byRoom[session.RoomID]; exists {
		return apperr.NotReady("room already has a game session")
	}
	s.putSessionUnsafe(session)
	s.applyUnsafe(r, store.RoomPatch{Status: models.RoomPlaying})
	return nil
}

func (s *Store) InsertSession(_ context.Context, session *models.GameSession) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRoom[session.RoomID]; exists {
		return false, nil
	}
	s.putSessionUnsafe(session)
	return true, nil
}

func (s *Store) putSessionUnsafe(session *models.GameSession) {
	cp := *session
	cp.Board = cloneBoard(session.Board)
	s.sessions[cp.ID] = &cp
	s.byRoom[cp.RoomID] = cp.ID
}

func (s *Store) SessionByRoom(_ context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRoom[roomID]
	if !ok {
		return nil, apperr.NotFound("game session not found")
	}
	cp := *s.sessions[id]
	cp.Board = cloneBoard(cp.Board)
	return &cp, nil
}

func (s *Store) StartAnomalies(_ context.Context) ([]store.StartAnomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.StartAnomaly
	for id, r := range s.rooms {
		_, hasSession := s.byRoom[id]
		switch {
		case hasSession && r.Status == models.RoomWaiting:
			out = append(out, store.StartAnomaly{RoomID: id, Kind: store.SessionWithoutFlip})
		case !hasSession && r.Status == models.RoomPlaying:
			out = append(out, store.StartAnomaly{RoomID: id, Kind: store.FlipWithoutSession})
		}
	}
	return out, nil
}

// PutRoom stores r verbatim, bypassing every guard. Intended for tests that
// need to stage half-finished states.
func (s *Store) PutRoom(r *models.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r.Clone()
	if r.Status == models.RoomWaiting {
		s.codes[r.Code] = r.ID
	}
}

func (s *Store) ListOwnedThemes(_ context.Context, ownerID uuid.UUID) ([]models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Theme
	for _, t := range s.themes {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetTheme(_ context.Context, id uuid.UUID) (*models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.themes[id]
	if !ok {
		return nil, apperr.NotFound("theme not found")
	}
	cp := *t
	return &cp, nil
}

// AddTheme registers a theme owned by ownerID and returns it.
func (s *Store) AddTheme(ownerID uuid.UUID, title string, tasks ...string) models.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addThemeUnsafe(ownerID, title, nil, tasks)
}

func (s *Store) addThemeUnsafe(ownerID uuid.UUID, title string, description *string, tasks []string) models.Theme {
	t := models.Theme{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		TaskCount:   len(tasks),
		OwnerID:     ownerID,
		// strictly increasing so that "most recent first" is deterministic
		CreatedAt: time.Now().Add(time.Duration(len(s.themes)) * time.Microsecond),
	}
	s.themes[t.ID] = &t
	s.tasks[t.ID] = append([]string(nil), tasks...)
	return t
}

func (s *Store) SeedThemes(_ context.Context, ownerID uuid.UUID, templates []models.ThemeTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tpl := range templates {
		exists := false
		for _, t := range s.themes {
			if t.OwnerID == ownerID && t.Title == tpl.Title {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		var desc *string
		if tpl.Description != "" {
			d := tpl.Description
			desc = &d
		}
		s.addThemeUnsafe(ownerID, tpl.Title, desc, tpl.Tasks)
	}
	return nil
}

// Tasks returns the task descriptions of a theme in order.
func (s *Store) Tasks(themeID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tasks[themeID]...)
}

func (s *Store) Nickname(_ context.Context, userID uuid.UUID) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// SetNickname records a profile nickname.
func (s *Store) SetNickname(userID uuid.UUID, nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = nickname
}

func cloneBoard(b models.Board) models.Board {
	cells := make(map[int]models.CellKind, len(b.SpecialCells))
	for k, v := range b.SpecialCells {
		cells[k] = v
	}
	b.SpecialCells = cells
	return b
}
