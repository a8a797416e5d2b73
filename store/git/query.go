package git

import (
	"context"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/store"
)

// Resolve finds the record for id matching req, walking the lineage
// from its head. A nil req resolves to the head, which carries the
// highest version by construction.
func (s *Store) Resolve(ctx context.Context, id atom.Id, req *semver.Constraints) (*store.Record, error) {
	refName := lineageRefName(id.String())
	ref, err := s.repo.Reference(refName, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, errors.NewNotFoundError("atom %s is not published", id)
		}
		return nil, errors.Wrapf(err, "reading %s", refName)
	}

	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, errors.Wrapf(err, "reading lineage of atom %s", id)
	}
	for {
		rec, err := parseRecord(id, commit)
		if err != nil {
			return nil, err
		}
		if req == nil || req.Check(rec.Version) {
			return s.bind(rec)
		}
		if commit.NumParents() == 0 {
			break
		}
		commit, err = commit.Parent(0)
		if err != nil {
			return nil, errors.Wrapf(err, "walking lineage of atom %s", id)
		}
	}

	return nil, errors.NewNotFoundError("no published version of atom %s satisfies %s", id, req)
}

// Verify resolves a record and recomputes the digest of its stored
// tree. A mismatch means the store content no longer matches what was
// published and is always fatal.
func (s *Store) Verify(ctx context.Context, id atom.Id, req *semver.Constraints) (*store.Record, error) {
	rec, err := s.Resolve(ctx, id, req)
	if err != nil {
		return nil, err
	}

	commit, err := s.repo.CommitObject(plumbing.NewHash(rec.Ref))
	if err != nil {
		return nil, errors.Wrapf(err, "reading lineage entry %s", rec.Ref)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrapf(err, "reading slice tree of entry %s", rec.Ref)
	}

	recomputed, err := digestTree(tree)
	if err != nil {
		return nil, errors.Wrapf(err, "recomputing digest for atom %s", id)
	}
	if recomputed != rec.Digest {
		return nil, errors.Wrapf(store.ErrIntegrity,
			"atom %s@%s: recorded digest %s, recomputed %s", id, rec.Version, rec.Digest, recomputed)
	}
	return rec, nil
}

// List returns the head record of every atom in the store, sorted by id.
func (s *Store) List(ctx context.Context) ([]*store.Record, error) {
	iter, err := s.repo.References()
	if err != nil {
		return nil, errors.Wrap(err, "iterating references")
	}
	defer iter.Close()

	var records []*store.Record
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !isLineageRef(ref.Name()) {
			return nil
		}
		commit, err := s.repo.CommitObject(ref.Hash())
		if err != nil {
			return errors.Wrapf(err, "reading lineage head of %s", ref.Name())
		}
		id := atom.Id(string(ref.Name())[len(refPrefix):])
		rec, err := parseRecord(id, commit)
		if err != nil {
			return err
		}
		if _, err := s.bind(rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Id < records[j].Id })
	return records, nil
}
