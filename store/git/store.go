// Package git implements the atom store on top of a git repository.
//
// The store owns the reserved reference namespace refs/atoms/: one ref
// per atom holding the head of its append-only version lineage, plus
// refs/atoms/-/root anchoring the store root ("-" cannot collide with
// an atom id, which may not start with a hyphen). The working tree and
// branch history are read-only inputs; publish never touches them.
package git

import (
	"context"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/time/rate"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/digest"
	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/logger"
	"github.com/ekforge/atom/store"
)

const (
	refPrefix   = "refs/atoms/"
	rootRefName = plumbing.ReferenceName(refPrefix + "-/root")

	defaultMaxRefRetries = 3
)

// Store is a git-backed atom store.
type Store struct {
	repo       *gogit.Repository
	root       string
	maxRetries int
	limiter    *rate.Limiter
}

// Options tunes store behavior.
type Options struct {
	// MaxRefRetries bounds compare-and-swap retries on the lineage ref.
	// Zero means the default of 3.
	MaxRefRetries int
}

// Open opens the repository containing path as an atom store.
func Open(path string, opts Options) (*Store, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening repository at %q", path)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrapf(err, "repository at %q has no worktree", path)
	}

	retries := opts.MaxRefRetries
	if retries <= 0 {
		retries = defaultMaxRefRetries
	}

	return &Store{
		repo:       repo,
		root:       wt.Filesystem.Root(),
		maxRetries: retries,
		// CAS retries are paced so racing publishers back off instead
		// of hammering the ref store
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}, nil
}

// Init records the store root: the oldest first-parent ancestor of
// HEAD. Anchoring identity hashes to the root commit keeps equal ids in
// unrelated stores distinct. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.repo.Reference(rootRefName, true); err == nil {
		return nil
	}

	head, err := s.repo.Head()
	if err != nil {
		return errors.Wrap(err, "cannot initialize a store without a commit history")
	}
	commit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return errors.Wrap(err, "reading HEAD commit")
	}
	for commit.NumParents() > 0 {
		commit, err = commit.Parent(0)
		if err != nil {
			return errors.Wrap(err, "walking to the root commit")
		}
	}

	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(rootRefName, commit.Hash)); err != nil {
		return errors.Wrap(err, "recording store root")
	}

	logger.Infow("Initialized atom store",
		"root", commit.Hash.String())
	return nil
}

// Root returns the store root commit hash, the key material for
// identity hashing. Fails with ErrNotInitialized until Init has run.
func (s *Store) Root() ([]byte, error) {
	ref, err := s.repo.Reference(rootRefName, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, errors.WithHint(store.ErrNotInitialized, "run `atom init` first")
		}
		return nil, errors.Wrap(err, "reading store root")
	}
	hash := ref.Hash()
	return hash[:], nil
}

// WorktreeRoot returns the repository's worktree root directory.
func (s *Store) WorktreeRoot() string {
	return s.root
}

// bind stamps the record with the root-bound identity hash of its id.
func (s *Store) bind(rec *store.Record) (*store.Record, error) {
	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	rec.Identity = atom.NewAtomId(root, rec.Id).Hash()
	return rec, nil
}

func lineageRefName(id string) plumbing.ReferenceName {
	return plumbing.ReferenceName(refPrefix + id)
}

func isLineageRef(name plumbing.ReferenceName) bool {
	return strings.HasPrefix(string(name), refPrefix) && name != rootRefName
}

// digestTree computes the canonical digest of every file reachable from
// tree. Only path strings, mode classes, and blob bytes contribute, so
// the result is stable across repositories and histories.
func digestTree(tree *object.Tree) (digest.Digest, error) {
	slice := digest.NewSlice()
	err := tree.Files().ForEach(func(f *object.File) error {
		r, err := f.Blob.Reader()
		if err != nil {
			return errors.Wrapf(err, "reading blob for %q", f.Name)
		}
		defer r.Close()
		return slice.Add(f.Name, modeClass(f.Mode), r)
	})
	if err != nil {
		return digest.Digest{}, err
	}
	return slice.Sum(), nil
}

func modeClass(mode filemode.FileMode) digest.ModeClass {
	switch mode {
	case filemode.Executable:
		return digest.ModeExecutable
	case filemode.Symlink:
		return digest.ModeSymlink
	default:
		return digest.ModeRegular
	}
}
