// Package atom defines the core identity model: the validated atom id
// grammar and the store-rooted atom identity hash.
package atom

import (
	"github.com/Masterminds/semver/v3"
	"github.com/zeebo/blake3"

	"github.com/ekforge/atom/errors"
)

// ManifestName is the fixed filename convention for atom manifests.
const ManifestName = "atom.toml"

// Atom is the deserialized form of a manifest's required [atom] table.
type Atom struct {
	// Id is the verified Unicode identifier of the atom.
	Id Id `toml:"id"`

	// Version is the atom's semantic version.
	Version *semver.Version `toml:"version"`

	// Description optionally describes the atom.
	Description string `toml:"description,omitempty"`
}

// AtomId binds an atom's Unicode id to the root of history of the store
// that owns it, yielding a 256-bit identity that differs across stores
// even for equal ids.
type AtomId struct {
	root []byte
	id   Id
}

// idHashContext is the key-derivation context for atom identity hashes.
// Changing it invalidates every derived identity.
const idHashContext = "github.com/ekforge/atom id v1"

// NewAtomId binds id to the given store root.
func NewAtomId(root []byte, id Id) AtomId {
	r := make([]byte, len(root))
	copy(r, root)
	return AtomId{root: r, id: id}
}

// Id returns the Unicode identifier.
func (a AtomId) Id() Id {
	return a.id
}

// Root returns the store root material the identity is bound to.
func (a AtomId) Root() []byte {
	r := make([]byte, len(a.root))
	copy(r, a.root)
	return r
}

// Hash computes the 256-bit identity hash: a BLAKE3 keyed hash of the
// id's bytes, keyed by a derivation from the store root.
func (a AtomId) Hash() [32]byte {
	var key [32]byte
	blake3.DeriveKey(idHashContext, a.root, key[:])

	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only fails on a key of the wrong size; ours is fixed.
		panic(errors.AssertionFailedf("keyed blake3 rejected a fixed-size key: %v", err))
	}
	_, _ = h.Write([]byte(a.id))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
