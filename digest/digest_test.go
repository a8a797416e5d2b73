package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(t *testing.T, entries ...[3]string) Digest {
	t.Helper()
	s := NewSlice()
	for _, e := range entries {
		mode := ModeRegular
		if e[2] == "x" {
			mode = ModeExecutable
		}
		require.NoError(t, s.AddBytes(e[0], mode, []byte(e[1])))
	}
	return s.Sum()
}

func TestSum_OrderIndependent(t *testing.T) {
	a := sum(t, [3]string{"a.txt", "alpha", ""}, [3]string{"b.txt", "beta", ""}, [3]string{"c/d.txt", "delta", ""})
	b := sum(t, [3]string{"c/d.txt", "delta", ""}, [3]string{"a.txt", "alpha", ""}, [3]string{"b.txt", "beta", ""})
	assert.Equal(t, a, b, "add order must not affect the digest")
}

func TestSum_SensitiveToContent(t *testing.T) {
	base := sum(t, [3]string{"a.txt", "alpha", ""}, [3]string{"b.txt", "beta", ""})

	changed := sum(t, [3]string{"a.txt", "alphA", ""}, [3]string{"b.txt", "beta", ""})
	assert.NotEqual(t, base, changed, "single byte change must change the digest")

	added := sum(t, [3]string{"a.txt", "alpha", ""}, [3]string{"b.txt", "beta", ""}, [3]string{"c.txt", "", ""})
	assert.NotEqual(t, base, added, "added file must change the digest")

	removed := sum(t, [3]string{"a.txt", "alpha", ""})
	assert.NotEqual(t, base, removed, "removed file must change the digest")

	execBit := sum(t, [3]string{"a.txt", "alpha", "x"}, [3]string{"b.txt", "beta", ""})
	assert.NotEqual(t, base, execBit, "executable bit flip must change the digest")

	renamed := sum(t, [3]string{"a2.txt", "alpha", ""}, [3]string{"b.txt", "beta", ""})
	assert.NotEqual(t, base, renamed, "path change must change the digest")
}

func TestSum_PathContentBoundary(t *testing.T) {
	// Entry hashing must not let path bytes bleed into content bytes.
	a := sum(t, [3]string{"ab", "c", ""})
	b := sum(t, [3]string{"a", "bc", ""})
	assert.NotEqual(t, a, b)
}

func TestSum_EmptyAndSingle(t *testing.T) {
	empty := NewSlice().Sum()
	single := sum(t, [3]string{"a", "", ""})
	assert.NotEqual(t, empty, single)
	assert.False(t, single.IsZero())
}

func TestSum_EmptyTakesFinalLift(t *testing.T) {
	inner := keyedSum(nil)
	assert.Equal(t, Digest(keyedSum(inner[:])), NewSlice().Sum(),
		"zero-entry root must pass through the same slice-domain lift as every other root")
}

func TestStringRoundTrip(t *testing.T) {
	d := sum(t, [3]string{"a.txt", "alpha", ""})

	s := d.String()
	assert.Len(t, s, EncodedLen)

	back, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("tooshort")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse(string(make([]byte, EncodedLen))) // NULs are outside the alphabet
	assert.ErrorIs(t, err, ErrMalformed)
}
