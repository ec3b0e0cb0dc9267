package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Conflict("room is full")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("join: %w", err)
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
}

func TestStorePassesCodedErrorsThrough(t *testing.T) {
	nf := NotFound("room not found")
	assert.Same(t, nf, Store("get room", nf))

	raw := errors.New("connection reset")
	err := Store("get room", raw)
	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, raw))
	assert.Equal(t, "get room: connection reset", err.Error())

	assert.NoError(t, Store("noop", nil))
	assert.Equal(t, CodeStore, CodeOf(raw))
}
