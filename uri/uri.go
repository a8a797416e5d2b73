// Package uri implements the atom URI grammar and its resolution to a
// concrete repository locator.
//
// The surface syntax is
//
//	[scheme://][user[:pass]@][alias:][fragment::]atom-id[@version-req]
//
// Aliases expand through the alias table (transitively, cycle-checked);
// when no scheme is given, a heuristic picks the transport from the
// userinfo shape.
package uri

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ekforge/atom/atom"
	"github.com/ekforge/atom/errors"
)

// Uri is the parsed structure of an atom URI. Only Id is mandatory.
type Uri struct {
	// Scheme is the explicit transport scheme, if any.
	Scheme string
	// User and Pass are the userinfo credentials. HasUser distinguishes
	// an empty user from no userinfo at all.
	User    string
	Pass    string
	HasUser bool
	// Alias is the unexpanded alias token, if any.
	Alias string
	// Frag is the repository path portion following the alias.
	Frag string
	// Id is the atom identifier.
	Id atom.Id
	// Version is the requested version constraint; nil means "latest".
	Version *semver.Constraints

	versionRaw string
}

// ResolvedLocator is the fully-qualified result of resolving a Uri
// against an alias table. It is the only input the store consumes for
// fetch and verify.
type ResolvedLocator struct {
	// TransportURL is the repository URL with scheme defaulting and
	// alias expansion applied. SSH locators without an explicit scheme
	// render in scp form (user@host:path).
	TransportURL string
	// Fragment is the repository-relative path narrowing the manifest
	// search root, when the URL portion alone identifies the repository.
	Fragment string
	// Id is the atom identifier.
	Id atom.Id
	// Version is the requested version constraint; nil means "latest".
	Version *semver.Constraints
}

// Parse parses s against the atom URI grammar. Failures carry the byte
// offset and the unmet expectation as a *ParseError.
func Parse(s string) (*Uri, error) {
	r := parseRef(s)

	if r.atom == "" {
		return nil, &ParseError{
			Input:    s,
			Offset:   r.atomOffset,
			Expected: "atom id ([scheme://][alias:][fragment::]atom-id[@version])",
		}
	}
	id, err := atom.ParseId(r.atom)
	if err != nil {
		return nil, &ParseError{Input: s, Offset: r.atomOffset, Expected: "valid atom id", Cause: err}
	}

	var constraint *semver.Constraints
	if r.version != "" {
		constraint, err = semver.NewConstraint(r.version)
		if err != nil {
			return nil, &ParseError{Input: s, Offset: r.versionOffset, Expected: "semver requirement", Cause: err}
		}
	}

	return &Uri{
		Scheme:     r.scheme,
		User:       r.user,
		Pass:       r.pass,
		HasUser:    r.hasUser,
		Alias:      r.alias,
		Frag:       r.frag,
		Id:         id,
		Version:    constraint,
		versionRaw: r.version,
	}, nil
}

// String renders the canonical form. Parse is a left-inverse of String:
// rendering and reparsing yields an equal structure.
func (u *Uri) String() string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteString("://")
	}
	if u.HasUser {
		b.WriteString(u.User)
		if u.Pass != "" {
			b.WriteString(":")
			b.WriteString(u.Pass)
		}
		b.WriteString("@")
	}
	if u.Alias != "" {
		b.WriteString(u.Alias)
		b.WriteString(":")
	}
	if u.Frag != "" {
		b.WriteString(u.Frag)
		b.WriteString("::")
	}
	b.WriteString(u.Id.String())
	if u.versionRaw != "" {
		b.WriteString("@")
		b.WriteString(u.versionRaw)
	}
	return b.String()
}

// Resolve expands the alias and applies the scheme-defaulting heuristic,
// producing the locator the store consumes:
//
//   - user without pass, no scheme: SSH transport (scp form)
//   - user and pass, no scheme: HTTPS with embedded credentials
//   - no userinfo, no scheme: HTTPS when the target names a host,
//     otherwise a plain local path
//
// An explicit scheme always wins.
func (u *Uri) Resolve(aliases Aliases) (*ResolvedLocator, error) {
	resolved := ""
	if u.Alias != "" {
		r, err := aliases.Resolve(u.Alias)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving atom URI %q", u.String())
		}
		resolved = r
	}

	scheme := ""
	switch {
	case u.Scheme == "ssh":
		// scp form carries no scheme prefix
	case u.Scheme != "":
		scheme = u.Scheme + "://"
	case u.HasUser && u.Pass != "":
		scheme = "https://"
	}

	start := scheme
	if u.HasUser {
		start += u.User
		if u.Pass != "" {
			start += ":" + u.Pass
		}
		start += "@"
	}

	// The separator between the expanded alias and the fragment decides
	// the URL shape: ":" yields scp form, "/" a path.
	delim := ""
	switch {
	case resolved == "" || u.Frag == "":
	case u.Scheme == "ssh":
		delim = ":"
	case u.Scheme != "":
		delim = "/"
	case u.HasUser && u.Pass == "":
		delim = ":"
	default:
		delim = "/"
	}

	url := start + resolved + delim + u.Frag
	if u.Scheme == "" && !u.HasUser {
		url = defaultSchemeFor(url)
	}

	return &ResolvedLocator{
		TransportURL: url,
		Fragment:     u.Frag,
		Id:           u.Id,
		Version:      u.Version,
	}, nil
}

// defaultSchemeFor upgrades a bare target to HTTPS when its first
// component names a host. Targets already in scp form (host:path) and
// plain local paths are left alone.
func defaultSchemeFor(url string) string {
	if url == "" {
		return url
	}
	head := url
	if i := strings.IndexByte(url, '/'); i >= 0 {
		head = url[:i]
	}
	if strings.Contains(head, ":") {
		// scp-form SSH target, e.g. my.ssh.com:my/repo
		return url
	}
	if looksLikeHost(head) {
		return "https://" + url
	}
	return url
}

// looksLikeHost reports whether s is a plausible DNS name: dotted, with
// label characters only. A full public-suffix check would need a
// registry snapshot; dotted labels cover the URIs the grammar admits.
func looksLikeHost(s string) bool {
	if !strings.Contains(s, ".") || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}
