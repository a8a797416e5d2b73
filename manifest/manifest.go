// Package manifest reads and validates atom manifests.
//
// A manifest is a TOML document whose required [atom] table carries the
// atom's id and semantic version. Fields outside that table are reserved
// for future extensions: the core ignores them but preserves them on
// round trip.
package manifest

import (
	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/errors"
)

// Manifest validation errors. Each required field failure is a distinct
// sentinel so batch callers can report exactly which manifest failed and
// why.
var (
	// ErrNotToml indicates the document is not valid TOML
	ErrNotToml = errors.New("manifest is not valid TOML")

	// ErrMissingAtom indicates the required [atom] table is absent
	ErrMissingAtom = errors.New("manifest is missing the [atom] table")

	// ErrMissingId indicates atom.id is absent
	ErrMissingId = errors.New("manifest is missing atom.id")

	// ErrMissingVersion indicates atom.version is absent
	ErrMissingVersion = errors.New("manifest is missing atom.version")

	// ErrInvalidId indicates atom.id violates the atom id grammar
	ErrInvalidId = errors.New("manifest atom.id is invalid")

	// ErrInvalidVersion indicates atom.version is not a semantic version
	ErrInvalidVersion = errors.New("manifest atom.version is not a semantic version")
)

// Manifest is a parsed atom manifest: the validated [atom] table plus
// the full raw document for round-tripping extension fields.
type Manifest struct {
	// Atom holds the validated required fields.
	Atom atom.Atom

	raw map[string]interface{}
}

// Parse validates data as an atom manifest.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrNotToml, err.Error())
	}

	table, ok := raw["atom"].(map[string]interface{})
	if !ok {
		return nil, ErrMissingAtom
	}

	idValue, ok := table["id"].(string)
	if !ok {
		return nil, ErrMissingId
	}
	id, err := atom.ParseId(idValue)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidId, "%q: %v", idValue, err)
	}

	versionValue, ok := table["version"].(string)
	if !ok {
		return nil, ErrMissingVersion
	}
	version, err := semver.StrictNewVersion(versionValue)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidVersion, "%q: %v", versionValue, err)
	}

	description, _ := table["description"].(string)

	return &Manifest{
		Atom: atom.Atom{
			Id:          id,
			Version:     version,
			Description: description,
		},
		raw: raw,
	}, nil
}

// Marshal renders the manifest back to TOML, carrying every field of the
// original document, known to the core or not.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := toml.Marshal(m.raw)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling manifest")
	}
	return data, nil
}

// Extension returns a top-level key outside the core schema, if present.
func (m *Manifest) Extension(key string) (interface{}, bool) {
	if key == "atom" {
		return nil, false
	}
	v, ok := m.raw[key]
	return v, ok
}
