package git

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/logger"
	"github.com/ekforge/atom/manifest"
	"github.com/ekforge/atom/store"
)

// Publish records the slice rooted at dir as a new lineage entry for
// the atom its manifest declares. The slice is read from HEAD, not the
// worktree: only committed content is published.
//
// Admission per atom is monotonic: a version above the lineage head
// appends, the head version republished with identical content is an
// idempotent no-op, and anything else is a version conflict. The ref
// advance is a compare-and-swap; when a concurrent publisher wins the
// race, admission is re-checked against the new head and the swap
// retried a bounded number of times.
func (s *Store) Publish(ctx context.Context, dir string) (*store.Record, bool, error) {
	if s.root == "" {
		return nil, false, errors.New("store opened from a remote is read-only")
	}
	root, err := s.Root()
	if err != nil {
		return nil, false, err
	}

	rel, err := store.NormalizePath(s.root, dir)
	if err != nil {
		return nil, false, err
	}

	head, err := s.repo.Head()
	if err != nil {
		return nil, false, errors.Wrap(err, "reading HEAD")
	}
	headCommit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, false, errors.Wrap(err, "reading HEAD commit")
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, false, errors.Wrap(err, "reading HEAD tree")
	}

	slice := headTree
	if rel != "." {
		slice, err = headTree.Tree(rel)
		if err != nil {
			return nil, false, errors.Wrapf(err, "directory %q is not tracked at HEAD", rel)
		}
	}

	file, err := slice.File(atom.ManifestName)
	if err != nil {
		return nil, false, errors.Wrapf(manifest.ErrNotFound, "no %s tracked under %q", atom.ManifestName, rel)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s under %q", atom.ManifestName, rel)
	}
	m, err := manifest.Parse([]byte(contents))
	if err != nil {
		return nil, false, errors.Wrapf(err, "manifest under %q", rel)
	}

	d, err := digestTree(slice)
	if err != nil {
		return nil, false, errors.Wrapf(err, "computing digest for atom %s", m.Atom.Id)
	}

	rec := &store.Record{
		Id:       m.Atom.Id,
		Version:  m.Atom.Version,
		Digest:   d,
		Identity: atom.NewAtomId(root, m.Atom.Id).Hash(),
		Path:     rel,
		Src:      headCommit.Hash.String(),
	}

	refName := lineageRefName(m.Atom.Id.String())
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		prevRef, prevRec, err := s.lineageHead(refName)
		if err != nil {
			return nil, false, err
		}

		if prevRec != nil {
			switch rec.Version.Compare(prevRec.Version) {
			case 0:
				if rec.Digest == prevRec.Digest {
					prevRec.Identity = rec.Identity
					return prevRec, false, nil
				}
				return nil, false, errors.Wrapf(store.ErrVersionConflict,
					"atom %s@%s already published with digest %s", rec.Id, rec.Version, prevRec.Digest)
			case -1:
				return nil, false, errors.Wrapf(store.ErrVersionConflict,
					"atom %s@%s is below the published head %s", rec.Id, rec.Version, prevRec.Version)
			}
		}

		var parents []plumbing.Hash
		if prevRef != nil {
			parents = append(parents, prevRef.Hash())
		}
		entryHash, err := s.writeEntry(rec, slice.Hash, parents)
		if err != nil {
			return nil, false, err
		}

		err = s.repo.Storer.CheckAndSetReference(plumbing.NewHashReference(refName, entryHash), casOld(refName, prevRef))
		if err == nil {
			rec.Ref = entryHash.String()
			logger.Debugw("Published atom",
				"id", rec.Id.String(),
				"version", rec.Version.String(),
				"digest", rec.Digest.String(),
				"entry", rec.Ref)
			return rec, true, nil
		}
		if !errors.Is(err, storage.ErrReferenceHasChanged) {
			return nil, false, errors.Wrapf(err, "advancing %s", refName)
		}

		logger.Warnw("Lineage ref moved during publish, retrying",
			"id", rec.Id.String(),
			"attempt", attempt+1)
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, false, errors.Wrap(err, "publish cancelled")
		}
	}

	return nil, false, errors.Wrapf(store.ErrConcurrentPublish,
		"atom %s after %d attempts", rec.Id, s.maxRetries+1)
}

// casOld is the expected old value for the lineage swap. A nil old
// reference would make CheckAndSetReference an unconditional set, so an
// unpublished atom swaps against the zero hash instead: both storer
// implementations then reject the swap when another publisher created
// the ref first.
func casOld(refName plumbing.ReferenceName, prev *plumbing.Reference) *plumbing.Reference {
	if prev != nil {
		return prev
	}
	return plumbing.NewHashReference(refName, plumbing.ZeroHash)
}

// lineageHead reads the ref and decodes its record. A missing ref is an
// unpublished atom, not an error.
func (s *Store) lineageHead(refName plumbing.ReferenceName) (*plumbing.Reference, *store.Record, error) {
	ref, err := s.repo.Reference(refName, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrapf(err, "reading %s", refName)
	}

	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading lineage head of %s", refName)
	}
	id := atom.Id(string(refName)[len(refPrefix):])
	rec, err := parseRecord(id, commit)
	if err != nil {
		return nil, nil, err
	}
	return ref, rec, nil
}

// writeEntry encodes a lineage commit whose tree is the slice tree and
// whose message carries the version record.
func (s *Store) writeEntry(rec *store.Record, tree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error) {
	commit := &object.Commit{
		Author:       storeSignature(),
		Committer:    storeSignature(),
		Message:      formatRecordMessage(rec),
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, errors.Wrap(err, "encoding lineage entry")
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, errors.Wrap(err, "writing lineage entry")
	}
	return hash, nil
}
