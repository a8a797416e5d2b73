package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fixtures "github.com/ekforge/atom/internal/testing"
	gitstore "github.com/ekforge/atom/store/git"
)

func newBatchFixture(t *testing.T) (*gitstore.Store, string) {
	t.Helper()

	repo, root := fixtures.CreateTestRepo(t)
	fixtures.WriteAtomDir(t, root, "libs/alpha", "alpha", "1.0.0", map[string]string{"a.c": "a\n"})
	fixtures.WriteAtomDir(t, root, "libs/beta", "beta", "0.2.0", map[string]string{"b.c": "b\n"})
	// broken manifest: version is not semver
	fixtures.WriteFile(t, root, "libs/broken/atom.toml", "[atom]\nid = \"broken\"\nversion = \"one\"\n")
	fixtures.Commit(t, repo, "add atoms")

	s, err := gitstore.Open(root, gitstore.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s, root
}

func TestRun_BestEffortBatch(t *testing.T) {
	s, root := newBatchFixture(t)

	report, err := NewPublisher(s, 2).Run(context.Background(), root)
	require.NoError(t, err)

	assert.NotEmpty(t, report.BatchId)
	assert.Equal(t, 2, report.Stats.Published)
	assert.Equal(t, 1, report.Stats.Failed)
	assert.Equal(t, 0, report.Stats.Skipped)
	assert.True(t, report.Failed())

	require.Len(t, report.Outcomes, 3)
	// outcomes come back sorted by path
	assert.Contains(t, report.Outcomes[0].Path, "alpha")
	assert.Contains(t, report.Outcomes[1].Path, "beta")
	assert.Contains(t, report.Outcomes[2].Path, "broken")
	assert.Error(t, report.Outcomes[2].Err)
	assert.Equal(t, "alpha", report.Outcomes[0].Record.Id.String())

	// the failing sibling did not block the others
	_, err = s.Resolve(context.Background(), "alpha", nil)
	assert.NoError(t, err)
	_, err = s.Resolve(context.Background(), "beta", nil)
	assert.NoError(t, err)
}

func TestRun_IdempotentRerun(t *testing.T) {
	s, root := newBatchFixture(t)
	p := NewPublisher(s, 0)

	_, err := p.Run(context.Background(), root)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Stats.Published)
	assert.Equal(t, 2, report.Stats.Skipped)
	assert.Equal(t, 1, report.Stats.Failed)
}

func TestRun_Cancellation(t *testing.T) {
	s, root := newBatchFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewPublisher(s, 1).Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Stats.Failed)
	for _, outcome := range report.Outcomes {
		assert.ErrorIs(t, outcome.Err, context.Canceled)
	}
}

func TestRun_NoManifests(t *testing.T) {
	s, _ := newBatchFixture(t)

	report, err := NewPublisher(s, 2).Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.False(t, report.Failed())
}
