package atom

import (
	"strings"
	"unicode"

	"github.com/ekforge/atom/errors"
)

// Id is a validated, human-readable Unicode identifier for an atom.
// It is case-preserving and unique within one store.
type Id string

// Identifier grammar errors. InvalidCharacters carries the offending
// runes so callers can report precisely what was rejected.
var (
	// ErrIdEmpty indicates an empty atom id
	ErrIdEmpty = errors.New("an atom id cannot be empty")

	// ErrIdInvalidStart indicates an id starting with a number, dash or underscore
	ErrIdInvalidStart = errors.New("an atom id cannot start with a number, dash or underscore")

	// ErrIdInvalidCharacters indicates an id containing characters outside the grammar
	ErrIdInvalidCharacters = errors.New("the atom id contains invalid characters")
)

// ParseId validates s against the atom id grammar and returns it as an Id.
func ParseId(s string) (Id, error) {
	if err := ValidateId(s); err != nil {
		return "", err
	}
	return Id(s), nil
}

// ValidateId checks s against the atom id grammar: letters (any Unicode
// letter category), decimal or letter numbers, dash and underscore, not
// starting with a number, dash or underscore.
func ValidateId(s string) error {
	runes := []rune(s)
	if len(runes) == 0 {
		return ErrIdEmpty
	}
	if isInvalidStart(runes[0]) {
		return ErrIdInvalidStart
	}

	var invalid strings.Builder
	for _, r := range runes {
		if !isValidIdRune(r) {
			invalid.WriteRune(r)
		}
	}
	if invalid.Len() > 0 {
		return errors.Wrapf(ErrIdInvalidCharacters, "%q", invalid.String())
	}
	return nil
}

func (i Id) String() string {
	return string(i)
}

// isValidIdRune reports whether r may appear anywhere in an atom id.
// Mirrors the Unicode general categories L* plus Nd and Nl, with dash
// and underscore as the only allowed punctuation.
func isValidIdRune(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.Is(unicode.Nd, r) ||
		unicode.Is(unicode.Nl, r) ||
		r == '-' || r == '_'
}

// isInvalidStart reports whether r is disallowed as the first rune.
func isInvalidStart(r rune) bool {
	return unicode.Is(unicode.Nd, r) ||
		unicode.Is(unicode.Nl, r) ||
		r == '_' || r == '-' ||
		!isValidIdRune(r)
}
