package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekforge/atom/errors"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[aliases]
org = "gh:work-org"

[publish]
workers = 2
max_ref_retries = 5

[log]
json = true
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gh:work-org", cfg.Aliases["org"])
	assert.Equal(t, 2, cfg.Publish.Workers)
	assert.Equal(t, 5, cfg.Publish.MaxRefRetries)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadFromFile_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Greater(t, cfg.Publish.Workers, 0)
	assert.Equal(t, 3, cfg.Publish.MaxRefRetries)
	assert.Equal(t, "origin", cfg.Publish.Remote)
	assert.False(t, cfg.Log.JSON)
}

func TestAliasTable_ShadowsBuiltins(t *testing.T) {
	cfg := &Config{Aliases: map[string]string{
		"gh":  "git.example.internal",
		"org": "gh:work-org",
	}}

	table := cfg.AliasTable()
	got, err := table.Resolve("gh")
	require.NoError(t, err)
	assert.Equal(t, "git.example.internal", got)

	// untouched built-ins survive the overlay
	got, err = table.Resolve("gl")
	require.NoError(t, err)
	assert.Equal(t, "gitlab.com", got)
}

func TestSetAndUnsetAlias(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, SetAlias("org", "gh:work-org"))

	path := UserConfigPath()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, toml.Unmarshal(data, &doc))
	aliases, ok := doc["aliases"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "gh:work-org", aliases["org"])

	// second write rotates a backup of the first
	require.NoError(t, SetAlias("pkgs", "gh:my-org/pkgs"))
	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err)

	require.NoError(t, UnsetAlias("org"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	doc = nil
	require.NoError(t, toml.Unmarshal(data, &doc))
	aliases, _ = doc["aliases"].(map[string]interface{})
	assert.NotContains(t, aliases, "org")

	err = UnsetAlias("never-set")
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}
