// internal/handlers/rooms.go
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/auth"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/sirupsen/logrus"
)

// RoomService is the room lifecycle as seen by the HTTP layer.
type RoomService interface {
	CreateRoom(ctx context.Context, ownerID uuid.UUID, themeID *uuid.UUID) (uuid.UUID, error)
	JoinRoom(ctx context.Context, code string, userID uuid.UUID, themeID *uuid.UUID) (uuid.UUID, error)
	SetSeatTheme(ctx context.Context, roomID, userID uuid.UUID, themeID *uuid.UUID) error
	GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
}

// GameService starts games and serves their sessions.
type GameService interface {
	StartGame(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error)
	Session(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error)
}

// ThemeService lists a participant's themes.
type ThemeService interface {
	ListThemes(ctx context.Context, userID uuid.UUID) ([]models.Theme, error)
}

type themeRequest struct {
	ThemeID *uuid.UUID `json:"theme_id"`
}

type joinRequest struct {
	Code    string     `json:"code"`
	ThemeID *uuid.UUID `json:"theme_id"`
}

type roomIDResponse struct {
	RoomID uuid.UUID `json:"room_id"`
}

type sessionIDResponse struct {
	SessionID uuid.UUID `json:"session_id"`
}

// ListThemesHandler handles GET /themes.
func ListThemesHandler(logger *logrus.Logger, themes ThemeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserFrom(r.Context())
		list, err := themes.ListThemes(r.Context(), userID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if list == nil {
			list = []models.Theme{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateRoomHandler handles POST /rooms.
func CreateRoomHandler(logger *logrus.Logger, rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserFrom(r.Context())
		var req themeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}
		roomID, err := rooms.CreateRoom(r.Context(), userID, req.ThemeID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, roomIDResponse{RoomID: roomID})
	}
}

// JoinRoomHandler handles POST /rooms/join.
func JoinRoomHandler(logger *logrus.Logger, rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserFrom(r.Context())
		var req joinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}
		roomID, err := rooms.JoinRoom(r.Context(), req.Code, userID, req.ThemeID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, roomIDResponse{RoomID: roomID})
	}
}

// GetRoomHandler handles GET /rooms/{id}. Only a participant may read the
// room; others join by code.
func GetRoomHandler(logger *logrus.Logger, rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := participantRoom(w, r, logger, rooms)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// SetSeatThemeHandler handles PUT /rooms/{id}/theme.
func SetSeatThemeHandler(logger *logrus.Logger, rooms RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserFrom(r.Context())
		roomID, err := roomIDParam(r)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		var req themeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}
		if err := rooms.SetSeatTheme(r.Context(), roomID, userID, req.ThemeID); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// StartGameHandler handles POST /rooms/{id}/start. Only a participant may
// start the game.
func StartGameHandler(logger *logrus.Logger, rooms RoomService, games GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := participantRoom(w, r, logger, rooms)
		if !ok {
			return
		}
		sessionID, err := games.StartGame(r.Context(), room.ID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, sessionIDResponse{SessionID: sessionID})
	}
}

// GetSessionHandler handles GET /rooms/{id}/session.
func GetSessionHandler(logger *logrus.Logger, rooms RoomService, games GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, ok := participantRoom(w, r, logger, rooms)
		if !ok {
			return
		}
		sess, err := games.Session(r.Context(), room.ID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func roomIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid room id")
	}
	return id, nil
}

// participantRoom loads the room in the URL and checks the caller holds a
// seat in it. On failure the error response has been written.
func participantRoom(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, rooms RoomService) (*models.Room, bool) {
	userID, _ := auth.UserFrom(r.Context())
	roomID, err := roomIDParam(r)
	if err != nil {
		writeError(w, logger, err)
		return nil, false
	}
	room, err := rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, logger, err)
		return nil, false
	}
	if _, ok := room.SeatOf(userID); !ok {
		writeError(w, logger, apperr.Validation("you are not in this room"))
		return nil, false
	}
	return room, true
}
