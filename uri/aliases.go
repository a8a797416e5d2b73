package uri

import (
	"strings"

	"github.com/ekforge/atom/errors"
)

// Alias resolution errors.
var (
	// ErrUnknownAlias indicates a URI referenced an alias with no mapping
	ErrUnknownAlias = errors.New("unknown alias")

	// ErrAliasCycle indicates the alias graph loops back on itself
	ErrAliasCycle = errors.New("alias cycle")
)

// Aliases maps shorthand names to URL prefixes. A value may itself begin
// with another alias token (e.g. org = "gh:work-org"), forming a graph
// that must be acyclic.
type Aliases map[string]string

// DefaultAliases returns the built-in mappings for well-known hosts.
// User configuration may shadow any of them.
func DefaultAliases() Aliases {
	return Aliases{
		"gh": "github.com",
		"gl": "gitlab.com",
		"bb": "bitbucket.org",
		"sf": "git.code.sf.net",
	}
}

// Merge overlays other on top of a, returning a new table. Keys in
// other shadow keys in a.
func (a Aliases) Merge(other Aliases) Aliases {
	merged := make(Aliases, len(a)+len(other))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Resolve expands name through the table transitively: while the
// resolved value begins with another alias token, that token is expanded
// in turn. Traversal carries a visited set, so a repeated name fails
// with ErrAliasCycle naming the cycle instead of recursing forever.
func (a Aliases) Resolve(name string) (string, error) {
	visited := make(map[string]struct{})
	order := []string{}

	current := name
	suffix := ""
	for {
		if _, seen := visited[current]; seen {
			return "", errors.Wrapf(ErrAliasCycle, "%s -> %s", strings.Join(order, " -> "), current)
		}
		visited[current] = struct{}{}
		order = append(order, current)

		value, ok := a[current]
		if !ok {
			return "", errors.Wrapf(ErrUnknownAlias, "%q", current)
		}

		head, rest, found := strings.Cut(value, ":")
		if !found || !isAliasToken(head) {
			return value + suffix, nil
		}
		// The value defers to another alias; keep its remainder and
		// expand the head.
		suffix = "/" + rest + suffix
		current = head
	}
}

// isAliasToken reports whether s can name an alias: non-empty, no dots
// (which mark hostnames) and no slashes (which mark paths).
func isAliasToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, "./")
}
