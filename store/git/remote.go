package git

import (
	"context"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
	"golang.org/x/time/rate"

	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/logger"
)

// atomsRefSpec mirrors the full refs/atoms/ namespace between stores:
// every lineage ref plus the root anchor.
const atomsRefSpec = gitconfig.RefSpec("refs/atoms/*:refs/atoms/*")

// OpenRemote fetches the atom refs of the repository at url into an
// in-memory repository and returns a read-only store over them. The
// caller bounds the fetch through ctx; a deadline expiry surfaces as
// errors.ErrTimeout.
func OpenRemote(ctx context.Context, url string) (*Store, error) {
	repo, err := gogit.Init(memory.NewStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "initializing in-memory repository")
	}
	remote, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: gogit.DefaultRemoteName,
		URLs: []string{url},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "configuring remote %q", url)
	}

	err = remote.FetchContext(ctx, &gogit.FetchOptions{
		RefSpecs: []gitconfig.RefSpec{atomsRefSpec},
		Tags:     gogit.NoTags,
	})
	switch {
	case err == nil:
	case errors.Is(err, gogit.NoErrAlreadyUpToDate):
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		// an empty remote is an uninitialized store, reported as such
		// when the caller asks for the root
	default:
		return nil, wrapTransportErr(err, "fetching atom refs from %q", url)
	}

	logger.Debugw("Fetched atom refs",
		"url", url)
	return &Store{
		repo:       repo,
		maxRetries: defaultMaxRefRetries,
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
	}, nil
}

// Push mirrors the refs/atoms/ namespace to the named remote. Lineage
// refs only ever advance, so pushes are always fast-forward.
func (s *Store) Push(ctx context.Context, remoteName string) error {
	err := s.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{atomsRefSpec},
	})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		logger.Debugw("Atom refs already up to date",
			"remote", remoteName)
		return nil
	}
	if err != nil {
		return wrapTransportErr(err, "pushing atom refs to %q", remoteName)
	}

	logger.Infow("Pushed atom refs",
		"remote", remoteName)
	return nil
}

// wrapTransportErr classifies a transport failure, marking deadline
// expiry as errors.ErrTimeout so callers can tell a slow remote from a
// broken one.
func wrapTransportErr(err error, format string, args ...interface{}) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.Mark(err, errors.ErrTimeout)
	}
	return errors.Wrapf(err, format, args...)
}
