package git

import (
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/digest"
	"github.com/ekforge/atom/errors"
	"github.com/ekforge/atom/store"
)

// recordFormat versions the trailer layout of lineage commit messages.
const recordFormat = "1"

// storeSignature is the fixed signature on lineage entries. Keeping it
// constant (and at the epoch) makes entry hashes a function of content
// and metadata alone.
func storeSignature() object.Signature {
	return object.Signature{When: time.Unix(0, 0).UTC()}
}

// formatRecordMessage renders a version record as a commit message with
// key: value trailer lines.
func formatRecordMessage(rec *store.Record) string {
	var b strings.Builder
	b.WriteString(rec.Id.String())
	b.WriteString(": ")
	b.WriteString(rec.Version.String())
	b.WriteString("\n\n")
	b.WriteString("version: " + rec.Version.String() + "\n")
	b.WriteString("digest: " + rec.Digest.String() + "\n")
	b.WriteString("path: " + rec.Path + "\n")
	b.WriteString("src: " + rec.Src + "\n")
	b.WriteString("format: " + recordFormat + "\n")
	return b.String()
}

// parseRecord reads a version record back out of a lineage commit.
func parseRecord(id atom.Id, commit *object.Commit) (*store.Record, error) {
	trailers := make(map[string]string)
	for _, line := range strings.Split(commit.Message, "\n") {
		key, value, found := strings.Cut(line, ": ")
		if found {
			trailers[key] = value
		}
	}

	rawVersion, ok := trailers["version"]
	if !ok {
		return nil, errors.Newf("lineage entry %s has no version trailer", commit.Hash)
	}
	version, err := semver.NewVersion(rawVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "lineage entry %s carries invalid version %q", commit.Hash, rawVersion)
	}

	rawDigest, ok := trailers["digest"]
	if !ok {
		return nil, errors.Newf("lineage entry %s has no digest trailer", commit.Hash)
	}
	d, err := digest.Parse(rawDigest)
	if err != nil {
		return nil, errors.Wrapf(err, "lineage entry %s carries invalid digest", commit.Hash)
	}

	return &store.Record{
		Id:      id,
		Version: version,
		Digest:  d,
		Path:    trailers["path"],
		Src:     trailers["src"],
		Ref:     commit.Hash.String(),
	}, nil
}
