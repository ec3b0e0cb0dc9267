package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/jason-s-yu/ludo/internal/auth"
	"github.com/jason-s-yu/ludo/internal/game"
	"github.com/jason-s-yu/ludo/internal/lobby"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/jason-s-yu/ludo/internal/store/memstore"
	"github.com/jason-s-yu/ludo/internal/themes"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	auth  *auth.Authority
	store *memstore.Store
}

func newTestServer(t *testing.T, checkers map[string]Checker) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	a, err := auth.New(time.Hour)
	require.NoError(t, err)
	s := memstore.New()
	b := notify.NewBroker()
	tpls, err := themes.Defaults()
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Logger:     logger,
		Auth:       a,
		Rooms:      lobby.NewManager(s, s, s, b, logger),
		Games:      game.NewInitializer(s, b, logger),
		Themes:     themes.NewLister(s, s, tpls, logger),
		Subscriber: b,
		Checkers:   checkers,
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, auth: a, store: s}
}

func (ts *testServer) token(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	tok, err := ts.auth.CreateJWT(id)
	require.NoError(t, err)
	return id, tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func errCode(t *testing.T, data []byte) apperr.Code {
	return decode[errorResponse](t, data).Code
}

// firstTheme lists the caller's themes (seeding defaults) and returns one.
func (ts *testServer) firstTheme(t *testing.T, token string) uuid.UUID {
	t.Helper()
	status, body := ts.do(t, http.MethodGet, "/themes", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	list := decode[[]models.Theme](t, body)
	require.NotEmpty(t, list)
	return list[0].ID
}

func TestRequiresIdentity(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/themes", "/rooms/" + uuid.NewString()} {
		status, body := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, apperr.CodeAuth, errCode(t, body))
	}
	status, _ := ts.do(t, http.MethodGet, "/themes", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, map[string]Checker{
		"store":  CheckerFunc(func(context.Context) error { return nil }),
		"notify": CheckerFunc(func(context.Context) error { return errors.New("down") }),
	})
	status, body := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	checks := decode[map[string]healthResult](t, body)
	assert.Equal(t, "ok", checks["store"].Status)
	assert.Equal(t, "error", checks["notify"].Status)
}

func TestRoomFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	owner, ownerTok := ts.token(t)
	guest, guestTok := ts.token(t)
	_, strangerTok := ts.token(t)

	ownerTheme := ts.firstTheme(t, ownerTok)
	guestTheme := ts.firstTheme(t, guestTok)

	status, body := ts.do(t, http.MethodPost, "/rooms", ownerTok, map[string]any{"theme_id": ownerTheme})
	require.Equal(t, http.StatusCreated, status, string(body))
	roomID := decode[roomIDResponse](t, body).RoomID

	status, body = ts.do(t, http.MethodGet, "/rooms/"+roomID.String(), ownerTok, nil)
	require.Equal(t, http.StatusOK, status)
	room := decode[models.Room](t, body)
	assert.Equal(t, owner, room.CreatorID)
	assert.Equal(t, models.RoomWaiting, room.Status)

	status, body = ts.do(t, http.MethodGet, "/rooms/"+roomID.String(), strangerTok, nil)
	assert.Equal(t, http.StatusBadRequest, status, "only participants read the room")
	assert.Equal(t, apperr.CodeValidation, errCode(t, body))

	status, body = ts.do(t, http.MethodPost, "/rooms/"+roomID.String()+"/start", ownerTok, nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, apperr.CodeNotReady, errCode(t, body))

	status, body = ts.do(t, http.MethodPost, "/rooms/join", guestTok,
		map[string]any{"code": " " + strings.ToLower(room.Code), "theme_id": guestTheme})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, roomID, decode[roomIDResponse](t, body).RoomID)

	status, body = ts.do(t, http.MethodPost, "/rooms/join", strangerTok,
		map[string]any{"code": room.Code, "theme_id": ts.firstTheme(t, strangerTok)})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperr.CodeConflict, errCode(t, body))

	status, body = ts.do(t, http.MethodPut, "/rooms/"+roomID.String()+"/theme", strangerTok,
		map[string]any{"theme_id": ts.firstTheme(t, strangerTok)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.CodeValidation, errCode(t, body))

	status, _ = ts.do(t, http.MethodPut, "/rooms/"+roomID.String()+"/theme", guestTok,
		map[string]any{"theme_id": guestTheme})
	assert.Equal(t, http.StatusNoContent, status)

	status, body = ts.do(t, http.MethodPost, "/rooms/"+roomID.String()+"/start", guestTok, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	sessionID := decode[sessionIDResponse](t, body).SessionID

	status, body = ts.do(t, http.MethodPost, "/rooms/"+roomID.String()+"/start", ownerTok, nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, apperr.CodeNotReady, errCode(t, body))

	status, body = ts.do(t, http.MethodGet, "/rooms/"+roomID.String()+"/session", ownerTok, nil)
	require.Equal(t, http.StatusOK, status)
	sess := decode[models.GameSession](t, body)
	assert.Equal(t, sessionID, sess.ID)
	assert.Equal(t, owner, sess.Player1ID)
	assert.Equal(t, guest, sess.Player2ID)
	assert.Equal(t, game.BoardSize, sess.Board.BoardSize)
	assert.Equal(t, models.CellStar, sess.Board.SpecialCells[2])

	status, body = ts.do(t, http.MethodGet, "/rooms/"+roomID.String()+"/session", strangerTok, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.CodeValidation, errCode(t, body))
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t, nil)
	_, tok := ts.token(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rooms", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, body := ts.do(t, http.MethodPost, "/rooms", tok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apperr.CodeValidation, errCode(t, body))

	status, _ = ts.do(t, http.MethodGet, "/rooms/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodGet, "/rooms/"+uuid.NewString(), tok, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperr.CodeNotFound, errCode(t, body))

	status, body = ts.do(t, http.MethodPost, "/rooms/join", tok, map[string]any{"code": "ZZZZZZ", "theme_id": ts.firstTheme(t, tok)})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apperr.CodeNotFound, errCode(t, body))
}

func dialRoom(t *testing.T, ctx context.Context, ts *testServer, roomID uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rooms/" + roomID.String() + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{RoomSubprotocol},
		HTTPHeader:   http.Header{"Authorization": []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func readFrame(t *testing.T, ctx context.Context, c *websocket.Conn) RoomFrame {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	return decode[RoomFrame](t, data)
}

func TestRoomWebSocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts := newTestServer(t, nil)
	_, ownerTok := ts.token(t)
	_, guestTok := ts.token(t)

	status, body := ts.do(t, http.MethodPost, "/rooms", ownerTok, map[string]any{"theme_id": ts.firstTheme(t, ownerTok)})
	require.Equal(t, http.StatusCreated, status)
	roomID := decode[roomIDResponse](t, body).RoomID
	_, body = ts.do(t, http.MethodGet, "/rooms/"+roomID.String(), ownerTok, nil)
	code := decode[models.Room](t, body).Code

	c := dialRoom(t, ctx, ts, roomID, ownerTok)
	assert.Equal(t, RoomSubprotocol, c.Subprotocol())
	first := readFrame(t, ctx, c)
	assert.Equal(t, FrameSubscribed, first.Type)
	assert.Equal(t, roomID, first.RoomID)

	status, _ = ts.do(t, http.MethodPost, "/rooms/join", guestTok, map[string]any{"code": code, "theme_id": ts.firstTheme(t, guestTok)})
	require.Equal(t, http.StatusOK, status)
	update := readFrame(t, ctx, c)
	assert.Equal(t, notify.EventUpdate, update.Type)
	assert.Equal(t, models.RoomWaiting, update.Status)

	status, _ = ts.do(t, http.MethodPost, "/rooms/"+roomID.String()+"/start", ownerTok, nil)
	require.Equal(t, http.StatusCreated, status)
	update = readFrame(t, ctx, c)
	assert.Equal(t, models.RoomPlaying, update.Status)
}

func TestRoomWebSocketRejectsStranger(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts := newTestServer(t, nil)
	_, ownerTok := ts.token(t)
	_, strangerTok := ts.token(t)

	status, body := ts.do(t, http.MethodPost, "/rooms", ownerTok, map[string]any{"theme_id": ts.firstTheme(t, ownerTok)})
	require.Equal(t, http.StatusCreated, status)
	roomID := decode[roomIDResponse](t, body).RoomID

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rooms/" + roomID.String() + "/ws"
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{RoomSubprotocol},
		HTTPHeader:   http.Header{"Authorization": []string{"Bearer " + strangerTok}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	for code, want := range map[apperr.Code]int{
		apperr.CodeValidation: http.StatusBadRequest,
		apperr.CodeNotFound:   http.StatusNotFound,
		apperr.CodeConflict:   http.StatusConflict,
		apperr.CodeNotReady:   http.StatusPreconditionFailed,
		apperr.CodeAuth:       http.StatusUnauthorized,
		apperr.CodeStore:      http.StatusInternalServerError,
	} {
		assert.Equal(t, want, statusFor(code), code)
	}
}

func TestWriteErrorHidesStoreDetail(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	rec := httptest.NewRecorder()
	writeError(rec, logger, apperr.Store("get room", errors.New("connection reset by peer")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[errorResponse](t, rec.Body.Bytes())
	assert.Equal(t, "internal error", resp.Error)
	assert.Equal(t, apperr.CodeStore, resp.Code)
}
