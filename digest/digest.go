// Package digest computes the canonical content digest of an atom slice.
//
// The digest is independent of any version-control object encoding: a
// slice is reduced to its sorted (path, mode class, content) entries,
// each entry is hashed into a fixed-size leaf, and the digest is the
// Merkle root over the leaves. Two repositories with different histories
// but identical slice content produce the same digest.
package digest

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"io"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/ekforge/atom/errors"
)

// Size is the digest width in bytes (256 bits).
const Size = 32

// EncodedLen is the length of the fixed-width text rendering.
const EncodedLen = 52

// Digest is a 256-bit canonical content digest of an atom slice.
type Digest [Size]byte

// ModeClass is the canonical file mode contribution to the digest. Only
// the class matters; full Unix mode bits are host noise.
type ModeClass byte

const (
	// ModeRegular is a non-executable file
	ModeRegular ModeClass = 0
	// ModeExecutable is a file with any execute bit set
	ModeExecutable ModeClass = 1
	// ModeSymlink is a symbolic link; its content is the target path
	ModeSymlink ModeClass = 2
)

// Domain separation keys for BLAKE3 keyed hashing. Fixed constants:
// changing them invalidates every digest ever produced. The bytes are
// the ASCII domain name zero-padded to 32 bytes so they remain readable
// in hex dumps.
var (
	entryDomainKey = [32]byte{
		'a', 't', 'o', 'm', '.', 's', 'l', 'i', 'c', 'e', '.',
		'e', 'n', 't', 'r', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	sliceDomainKey = [32]byte{
		'a', 't', 'o', 'm', '.', 's', 'l', 'i', 'c', 'e', '.',
		'r', 'o', 'o', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// encoding is lowercase unpadded base32, yielding a fixed 52-character
// rendering for the 256-bit digest.
var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// ErrMalformed indicates a digest string that is not a valid rendering.
var ErrMalformed = errors.New("malformed content digest")

// String renders the digest as fixed-length lowercase base32.
func (d Digest) String() string {
	return encoding.EncodeToString(d[:])
}

// IsZero reports whether the digest is the zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Parse decodes a digest from its base32 text rendering.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != EncodedLen {
		return d, errors.Wrapf(ErrMalformed, "length %d, want %d", len(s), EncodedLen)
	}
	raw, err := encoding.DecodeString(s)
	if err != nil {
		return d, errors.Wrap(ErrMalformed, err.Error())
	}
	copy(d[:], raw)
	return d, nil
}

// Slice accumulates the entries of one atom slice and reduces them to a
// Digest. Entries may be added in any order; canonicalization sorts them
// by path bytes before the root is computed.
type Slice struct {
	leaves []leaf
}

type leaf struct {
	path string
	hash [Size]byte
}

// NewSlice returns an empty slice accumulator.
func NewSlice() *Slice {
	return &Slice{}
}

// Add hashes one entry into the slice. path is the slice-relative path
// using forward slashes; content is fully consumed.
func (s *Slice) Add(path string, mode ModeClass, content io.Reader) error {
	h, err := blake3.NewKeyed(entryDomainKey[:])
	if err != nil {
		panic(errors.AssertionFailedf("keyed blake3 rejected a fixed-size key: %v", err))
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(path)))
	_, _ = h.Write(lenBuf[:n])
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{byte(mode)})

	if _, err := io.Copy(h, content); err != nil {
		return errors.Wrapf(err, "reading slice entry %q", path)
	}

	var l leaf
	l.path = path
	copy(l.hash[:], h.Sum(nil))
	s.leaves = append(s.leaves, l)
	return nil
}

// AddBytes is Add for in-memory content.
func (s *Slice) AddBytes(path string, mode ModeClass, content []byte) error {
	return s.Add(path, mode, bytes.NewReader(content))
}

// Len returns the number of entries added so far.
func (s *Slice) Len() int {
	return len(s.leaves)
}

// Sum computes the canonical digest of the accumulated entries: leaves
// sorted by path bytes, then a binary Merkle tree with the slice domain
// key. An odd node is promoted to the next level unhashed rather than
// duplicated, so a tree cannot collide with a prefix of itself.
func (s *Slice) Sum() Digest {
	sort.Slice(s.leaves, func(i, j int) bool {
		return s.leaves[i].path < s.leaves[j].path
	})

	level := make([][Size]byte, len(s.leaves))
	for i, l := range s.leaves {
		level[i] = l.hash
	}

	if len(level) == 0 {
		// No leaves: the pseudo-root is the keyed hash of nothing, and it
		// takes the same final lift below as every other root.
		level = [][Size]byte{keyedSum(nil)}
	}

	for len(level) > 1 {
		next := make([][Size]byte, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			pair := make([]byte, 0, 2*Size)
			pair = append(pair, level[i][:]...)
			pair = append(pair, level[i+1][:]...)
			next = append(next, keyedSum(pair))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}

	// A final keyed hash lifts the root into the slice domain even for
	// single-entry slices, so leaf hashes never leak as digests.
	return Digest(keyedSum(level[0][:]))
}

func keyedSum(data []byte) [Size]byte {
	h, err := blake3.NewKeyed(sliceDomainKey[:])
	if err != nil {
		panic(errors.AssertionFailedf("keyed blake3 rejected a fixed-size key: %v", err))
	}
	_, _ = h.Write(data)
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}
