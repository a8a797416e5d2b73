package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekforge/atom/errors"
)

func TestParseId(t *testing.T) {
	valid := []string{
		"zlib",
		"my-atom",
		"my_atom",
		"Atom2",
		"λ",
		"ひらがな",
		"a",
		"numeralⅫ", // letter number is fine mid-id
	}
	for _, s := range valid {
		id, err := ParseId(s)
		require.NoError(t, err, "id %q", s)
		assert.Equal(t, s, id.String())
	}
}

func TestParseId_Invalid(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrIdEmpty},
		{"-leading-dash", ErrIdInvalidStart},
		{"_leading_underscore", ErrIdInvalidStart},
		{"2fast", ErrIdInvalidStart},
		{"Ⅻ", ErrIdInvalidStart}, // letter number cannot start an id
		{"has space", ErrIdInvalidCharacters},
		{"dots.are.out", ErrIdInvalidCharacters},
		{"semi;colon", ErrIdInvalidCharacters},
		{"em—dash", ErrIdInvalidCharacters},
	}
	for _, tt := range tests {
		_, err := ParseId(tt.input)
		require.Error(t, err, "id %q", tt.input)
		assert.True(t, errors.Is(err, tt.want), "id %q: got %v, want %v", tt.input, err, tt.want)
	}
}

func TestParseId_InvalidCharactersReported(t *testing.T) {
	_, err := ParseId("a b;c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), " ;")
}

func TestAtomIdHash_RootBinding(t *testing.T) {
	id, err := ParseId("mylib")
	require.NoError(t, err)

	rootA := []byte("aaaaaaaaaaaaaaaaaaaa")
	rootB := []byte("bbbbbbbbbbbbbbbbbbbb")

	hashA := NewAtomId(rootA, id).Hash()
	hashB := NewAtomId(rootB, id).Hash()
	assert.NotEqual(t, hashA, hashB, "same id under different roots must hash differently")

	again := NewAtomId(rootA, id).Hash()
	assert.Equal(t, hashA, again, "identity hash must be deterministic")

	other, err := ParseId("otherlib")
	require.NoError(t, err)
	assert.NotEqual(t, hashA, NewAtomId(rootA, other).Hash())
}
