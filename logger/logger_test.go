package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	require.NoError(t, Initialize(false, 0))
	require.NotNil(t, Logger)
	assert.False(t, JSONOutput)

	require.NoError(t, Initialize(true, 1))
	assert.True(t, JSONOutput)

	// Wrappers must not panic regardless of state
	Infow("info", "k", "v")
	Debugw("debug", "k", "v")
	Warnw("warn")
	Errorw("error")
	Cleanup()
}
