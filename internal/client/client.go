// Package client is a Go client for the room service: JSON commands over
// HTTP and the room watch stream over a websocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/sirupsen/logrus"
)

// Client talks to one server on behalf of one participant.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger

	mu          sync.Mutex
	token       string
	established chan struct{}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used by subscriptions.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        http.DefaultClient,
		logger:      logrus.StandardLogger(),
		established: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the identity token. The first non-empty token
// establishes the session.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	if token == "" {
		return
	}
	select {
	case <-c.established:
	default:
		close(c.established)
	}
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// HasSession reports whether a token is installed.
func (c *Client) HasSession(context.Context) (bool, error) {
	return c.currentToken() != "", nil
}

// SessionEstablished is closed once a token has been installed.
func (c *Client) SessionEstablished() <-chan struct{} {
	return c.established
}

type errorBody struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code"`
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Error responses come back as *apperr.Error with the server's code.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.currentToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeStore, method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Code == "" {
			return apperr.New(apperr.CodeStore, fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode))
		}
		return apperr.New(eb.Code, eb.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type roomIDBody struct {
	RoomID uuid.UUID `json:"room_id"`
}

type sessionIDBody struct {
	SessionID uuid.UUID `json:"session_id"`
}

func (c *Client) ListThemes(ctx context.Context) ([]models.Theme, error) {
	var list []models.Theme
	err := c.do(ctx, http.MethodGet, "/themes", nil, &list)
	return list, err
}

func (c *Client) CreateRoom(ctx context.Context, themeID uuid.UUID) (uuid.UUID, error) {
	var out roomIDBody
	err := c.do(ctx, http.MethodPost, "/rooms", map[string]any{"theme_id": themeID}, &out)
	return out.RoomID, err
}

func (c *Client) JoinRoom(ctx context.Context, code string, themeID uuid.UUID) (uuid.UUID, error) {
	var out roomIDBody
	err := c.do(ctx, http.MethodPost, "/rooms/join", map[string]any{"code": code, "theme_id": themeID}, &out)
	return out.RoomID, err
}

func (c *Client) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := c.do(ctx, http.MethodGet, "/rooms/"+roomID.String(), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) SetSeatTheme(ctx context.Context, roomID, themeID uuid.UUID) error {
	return c.do(ctx, http.MethodPut, "/rooms/"+roomID.String()+"/theme", map[string]any{"theme_id": themeID}, nil)
}

func (c *Client) StartGame(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error) {
	var out sessionIDBody
	err := c.do(ctx, http.MethodPost, "/rooms/"+roomID.String()+"/start", nil, &out)
	return out.SessionID, err
}

func (c *Client) Session(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	var sess models.GameSession
	if err := c.do(ctx, http.MethodGet, "/rooms/"+roomID.String()+"/session", nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// RoomStatus reads the room's current status.
func (c *Client) RoomStatus(ctx context.Context, roomID uuid.UUID) (models.RoomStatus, error) {
	room, err := c.GetRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	return room.Status, nil
}
