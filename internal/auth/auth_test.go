package auth

import (
	"crypto/ed25519"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpire(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"":      0,
		"0":     0,
		"never": 0,
		"72h":   72 * time.Hour,
	} {
		got, err := ParseExpire(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseExpire("soon")
	assert.Error(t, err)
}

func TestJWTRoundTrip(t *testing.T) {
	a, err := New(time.Hour)
	require.NoError(t, err)
	user := uuid.New()

	token, err := a.CreateJWT(user)
	require.NoError(t, err)
	got, err := a.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	other, err := New(time.Hour)
	require.NoError(t, err)
	_, err = other.AuthenticateJWT(token)
	assert.Error(t, err, "token signed by another key")
}

func TestExpiredToken(t *testing.T) {
	a, err := New(0)
	require.NoError(t, err)
	claims := jwt.MapClaims{"sub": uuid.NewString(), "exp": time.Now().Add(-time.Minute).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(a.privateKey)
	require.NoError(t, err)

	_, err = a.AuthenticateJWT(token)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestFromFiles(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath, pubPath := filepath.Join(dir, "jwt"), filepath.Join(dir, "jwt.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	a, err := FromFiles(privPath, pubPath, 0)
	require.NoError(t, err)
	token, err := a.CreateJWT(uuid.New())
	require.NoError(t, err)
	_, err = a.AuthenticateJWT(token)
	assert.NoError(t, err)

	_, err = FromFiles(privPath, filepath.Join(dir, "missing"), 0)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	a, err := New(time.Hour)
	require.NoError(t, err)
	user := uuid.New()
	token, err := a.CreateJWT(user)
	require.NoError(t, err)

	var failed error
	h := a.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		failed = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := UserFrom(r.Context())
		require.True(t, ok)
		assert.Equal(t, user, got)
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }, http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusNoContent},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			failed = nil
			req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusUnauthorized {
				assert.True(t, errors.Is(failed, apperr.ErrAuth))
			}
		})
	}
}
