// Package testing provides git repository fixtures for package tests.
package testing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CreateTestRepo initializes a git repository in a temp directory and
// returns it along with its worktree root.
func CreateTestRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()

	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("Failed to init test repository: %v", err)
	}
	return repo, root
}

// WriteFile writes content under the worktree root, creating parent
// directories as needed.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// WriteExecutable writes content with the executable bit set.
func WriteExecutable(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// WriteAtomDir writes an atom manifest plus content files under dir
// (worktree-relative).
func WriteAtomDir(t *testing.T, root, dir, id, version string, files map[string]string) {
	t.Helper()

	manifest := "[atom]\nid = \"" + id + "\"\nversion = \"" + version + "\"\n"
	WriteFile(t, root, dir+"/atom.toml", manifest)
	for rel, content := range files {
		WriteFile(t, root, dir+"/"+rel, content)
	}
}

// Commit stages everything and commits it, returning the commit hash.
func Commit(t *testing.T, repo *git.Repository, message string) plumbing.Hash {
	t.Helper()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to open worktree: %v", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		t.Fatalf("Failed to stage files: %v", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	return hash
}
