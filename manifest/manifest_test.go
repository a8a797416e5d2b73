package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`
[atom]
id = "mylib"
version = "1.2.3"
description = "a library"
`))
	require.NoError(t, err)
	assert.Equal(t, "mylib", m.Atom.Id.String())
	assert.Equal(t, "1.2.3", m.Atom.Version.String())
	assert.Equal(t, "a library", m.Atom.Description)
}

func TestParse_FieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not toml", "= nope", ErrNotToml},
		{"missing atom table", `[other]`, ErrMissingAtom},
		{"missing id", "[atom]\nversion = \"1.0.0\"", ErrMissingId},
		{"missing version", "[atom]\nid = \"mylib\"", ErrMissingVersion},
		{"invalid id", "[atom]\nid = \"2bad\"\nversion = \"1.0.0\"", ErrInvalidId},
		{"invalid version", "[atom]\nid = \"mylib\"\nversion = \"not-semver\"", ErrInvalidVersion},
		{"loose version", "[atom]\nid = \"mylib\"\nversion = \"1.2\"", ErrInvalidVersion},
		{"non-string id", "[atom]\nid = 42\nversion = \"1.0.0\"", ErrMissingId},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_PrereleaseAndBuild(t *testing.T) {
	m, err := Parse([]byte("[atom]\nid = \"mylib\"\nversion = \"2.0.0-rc.1+build.5\""))
	require.NoError(t, err)
	assert.Equal(t, "rc.1", m.Atom.Version.Prerelease())
	assert.Equal(t, "build.5", m.Atom.Version.Metadata())
}

func TestRoundTrip_PreservesExtensions(t *testing.T) {
	m, err := Parse([]byte(`
[atom]
id = "mylib"
version = "1.0.0"

[deps.other]
version = "^2"

[backend]
flavor = "nix"
`))
	require.NoError(t, err)

	_, ok := m.Extension("deps")
	assert.True(t, ok)
	_, ok = m.Extension("atom")
	assert.False(t, ok, "the core table is not an extension")

	out, err := m.Marshal()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, toml.Unmarshal(out, &doc))
	assert.Contains(t, doc, "deps")
	assert.Contains(t, doc, "backend")
	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, m.Atom, back.Atom)
}

func writeManifest(t *testing.T, dir, id, version string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "atom.toml")
	content := "[atom]\nid = \"" + id + "\"\nversion = \"" + version + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeManifest(t, filepath.Join(root, "libs", "mylib"), "mylib", "1.0.0")
	nested := filepath.Join(root, "libs", "mylib", "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := Locate(nested, root)
	require.NoError(t, err)
	assert.Equal(t, manifestPath, found)

	found, err = Locate(manifestPath, root)
	require.NoError(t, err)
	assert.Equal(t, manifestPath, found)

	_, err = Locate(filepath.Join(root, "elsewhere"), root)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	a := writeManifest(t, filepath.Join(root, "libs", "a"), "a", "1.0.0")
	b := writeManifest(t, filepath.Join(root, "libs", "b"), "b", "1.0.0")
	writeManifest(t, filepath.Join(root, ".git", "hidden"), "nope", "1.0.0")

	paths, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, paths)

	// overlapping roots deduplicate
	paths, err = Discover(root, filepath.Join(root, "libs"))
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, paths)
}
