package manifest

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/errors"
)

// ErrNotFound indicates no manifest exists at or above a path.
var ErrNotFound = errors.New("no atom manifest found")

// Locate finds the manifest governing path: the fixed filename
// convention (atom.toml) in path's directory or the nearest ancestor,
// never climbing above stopDir. path may name a file, a directory, or
// the manifest itself.
func Locate(path, stopDir string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "locating manifest for %q", path)
	}
	stop, err := filepath.Abs(stopDir)
	if err != nil {
		return "", errors.Wrapf(err, "locating manifest for %q", path)
	}

	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		if filepath.Base(abs) == atom.ManifestName {
			return abs, nil
		}
		dir = filepath.Dir(abs)
	} else if err != nil {
		dir = filepath.Dir(abs)
	}

	for {
		candidate := filepath.Join(dir, atom.ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		if dir == stop || dir == filepath.Dir(dir) {
			return "", errors.Wrapf(ErrNotFound, "at or above %q", path)
		}
		dir = filepath.Dir(dir)
	}
}

// Discover walks each root and returns every manifest path found under
// them, deduplicated and sorted. Directories named .git are skipped.
func Discover(roots ...string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrapf(err, "discovering manifests under %q", root)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.Wrapf(err, "discovering manifests under %q", root)
		}
		if !info.IsDir() {
			// A file argument is shorthand for its governing manifest.
			if filepath.Base(abs) == atom.ManifestName {
				seen[abs] = struct{}{}
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && d.Name() == ".git" {
				return filepath.SkipDir
			}
			if !d.IsDir() && d.Name() == atom.ManifestName {
				seen[path] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "discovering manifests under %q", root)
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest %q", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %q", path)
	}
	return m, nil
}
