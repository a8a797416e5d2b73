// Package store defines the store-agnostic surface of the atom store:
// the version record, the operations a backend must provide, and the
// error kinds callers dispatch on.
package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/digest"
	"github.com/ekforge/atom/errors"
)

// Store error kinds.
var (
	// ErrNotInitialized indicates the repository has no store root recorded
	ErrNotInitialized = errors.New("repository is not initialized as an atom store")

	// ErrVersionConflict indicates a publish collided with an existing
	// record: same version with different content, or a version below
	// the lineage head. Marked so errors.IsConflictError matches.
	ErrVersionConflict = errors.Mark(errors.New("version conflict"), errors.ErrConflict)

	// ErrConcurrentPublish indicates the lineage ref kept moving
	// underneath a publish until the retry budget ran out. Marked so
	// errors.IsConflictError matches.
	ErrConcurrentPublish = errors.Mark(errors.New("concurrent publish conflict"), errors.ErrConflict)

	// ErrIntegrity indicates recomputed content does not match the
	// recorded digest. Never auto-repaired.
	ErrIntegrity = errors.New("integrity error")
)

// Record is one immutable entry in an atom's version lineage.
type Record struct {
	Id      atom.Id
	Version *semver.Version
	Digest  digest.Digest
	// Identity is the 256-bit identity hash of Id bound to the store root
	Identity [32]byte
	// Path is the repository-relative directory of the slice
	Path string
	// Src identifies the source revision the slice was taken from
	Src string
	// Ref identifies the lineage entry inside the store
	Ref string
}

// Store is an atom store backend. Records are append-only: publish
// creates them, nothing mutates or deletes them.
type Store interface {
	// Root returns the store root anchor, the key material binding atom
	// identity hashes to this store
	Root() ([]byte, error)

	// Publish records the slice rooted at dir as a new lineage entry.
	// Returns the record and whether it was newly written (false means
	// an idempotent republish of identical content).
	Publish(ctx context.Context, dir string) (*Record, bool, error)

	// Resolve finds the record for id matching req. A nil req resolves
	// to the most recent version.
	Resolve(ctx context.Context, id atom.Id, req *semver.Constraints) (*Record, error)

	// Verify resolves a record and recomputes its digest from stored
	// content, failing with ErrIntegrity on mismatch
	Verify(ctx context.Context, id atom.Id, req *semver.Constraints) (*Record, error)

	// List returns the head record of every atom in the store
	List(ctx context.Context) ([]*Record, error)
}

// Initializer is implemented by backends that need a one-time setup
// step before publishes are accepted.
type Initializer interface {
	Init(ctx context.Context) error
}

// NormalizePath resolves path to a root-relative, slash-separated form.
// Paths escaping the root are rejected.
func NormalizePath(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, "resolving store root %q", root)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving path %q", path)
	}

	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", errors.Wrapf(err, "relativizing %q against %q", path, root)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.Newf("path %q is outside the store root %q", path, root)
	}
	return rel, nil
}
