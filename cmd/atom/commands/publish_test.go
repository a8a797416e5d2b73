package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/publish"
	"github.com/ekforge/atom/store"
)

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, "published", outcomeStatus(publish.Outcome{}))
	assert.Equal(t, "skipped", outcomeStatus(publish.Outcome{Skipped: true}))
	assert.Equal(t, "failed", outcomeStatus(publish.Outcome{Err: errors.New("boom")}))

	conflict := errors.Wrapf(store.ErrVersionConflict, "atom mylib@1.0.0")
	assert.Equal(t, "conflict", outcomeStatus(publish.Outcome{Err: conflict}))

	racing := errors.Wrapf(store.ErrConcurrentPublish, "atom mylib after 4 attempts")
	assert.Equal(t, "conflict", outcomeStatus(publish.Outcome{Err: racing}))
}
