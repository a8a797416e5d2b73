package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestIs(t *testing.T) {
	err1 := New("error 1")
	err2 := New("error 2")
	wrapped := Wrap(err1, "wrapped")

	assert.True(t, Is(wrapped, err1))
	assert.False(t, Is(wrapped, err2))
	assert.False(t, Is(nil, err1))
}

func TestSentinels(t *testing.T) {
	err := NewNotFoundError("atom %q has no published versions", "mylib")

	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsConflictError(err))
	assert.Contains(t, err.Error(), "mylib")

	conflict := Wrap(ErrConflict, "ref moved during publish")
	assert.True(t, IsConflictError(conflict))
}

func TestMark(t *testing.T) {
	err := Mark(New("context deadline exceeded"), ErrTimeout)

	assert.True(t, Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), "deadline")
	assert.NotContains(t, err.Error(), ErrTimeout.Error(), "marking must not rewrite the message")
}
