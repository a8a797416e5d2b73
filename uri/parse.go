package uri

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseError is a structured parse failure carrying the byte offset
// where parsing stopped and the expectation that was not met.
type ParseError struct {
	Input    string
	Offset   int
	Expected string
	Cause    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parsing atom URI %q: offset %d: expected %s", e.Input, e.Offset, e.Expected)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ref holds the raw components sliced out of a URI string, before
// validation. Offsets record where the atom id and version requirement
// began, for error reporting.
type ref struct {
	scheme  string
	user    string
	pass    string
	hasUser bool
	alias   string
	frag    string
	atom    string
	version string

	atomOffset    int
	versionOffset int
}

// cursor is a byte-offset view over the input, consumed left to right by
// the component parsers.
type cursor struct {
	input string
	pos   int
}

func (c *cursor) rest() string {
	return c.input[c.pos:]
}

func (c *cursor) advance(n int) {
	c.pos += n
}

// parseRef slices input into its components. The pipeline mirrors the
// grammar: scheme, userinfo, alias, fragment, atom id, version. Each
// stage consumes only on a definite match, so the stages compose without
// backtracking.
func parseRef(input string) ref {
	c := &cursor{input: input}
	r := ref{}

	parseScheme(c, &r)
	parseUserinfo(c, &r)
	parseAlias(c, &r)
	parseFrag(c, &r)
	parseAtom(c, &r)
	parseVersion(c, &r)

	// A bare "name::atom" fragment with no host markers is really an
	// alias: `pkgs::zlib` addresses the repository the pkgs alias
	// points at, not a ./pkgs directory.
	if r.alias == "" && r.frag != "" && !strings.ContainsAny(r.frag, "./") {
		r.alias = r.frag
		r.frag = ""
	}

	return r
}

// parseScheme consumes "scheme://" when present.
func parseScheme(c *cursor, r *ref) {
	rest := c.rest()
	idx := strings.Index(rest, "://")
	if idx < 0 {
		return
	}
	r.scheme = rest[:idx]
	c.advance(idx + 3)
}

// parseUserinfo consumes "user[:pass]@" when the text before the first
// '@' cannot be anything else: it must not contain a path separator, and
// the text after the '@' must not itself parse as a version requirement
// (which would make the '@' the version delimiter, as in "foo@^0.8").
func parseUserinfo(c *cursor, r *ref) {
	rest := c.rest()
	at := strings.Index(rest, "@")
	if at < 0 {
		return
	}
	before, after := rest[:at], rest[at+1:]
	if strings.Contains(before, "/") || isVersionReq(after) {
		return
	}

	user, pass, hasPass := strings.Cut(before, ":")
	r.user = user
	r.hasUser = true
	if hasPass {
		r.pass = pass
	}
	c.advance(at + 1)
}

// parseAlias consumes "alias:" when the token before the colon has no
// dots (a dot marks an SSH-style hostname) and the colon is neither the
// fragment delimiter "::" nor followed by a digit (a port).
func parseAlias(c *cursor, r *ref) {
	rest := c.rest()
	idx := strings.Index(rest, ":")
	if idx <= 0 {
		return
	}
	token := rest[:idx]
	if strings.Contains(token, ".") {
		return
	}
	next := rest[idx+1:]
	if next == "" || next[0] == ':' || (next[0] >= '0' && next[0] <= '9') {
		return
	}
	r.alias = token
	c.advance(idx + 1)
}

// parseFrag consumes "fragment::".
func parseFrag(c *cursor, r *ref) {
	rest := c.rest()
	idx := strings.Index(rest, "::")
	if idx < 0 {
		return
	}
	r.frag = rest[:idx]
	c.advance(idx + 2)
}

// parseAtom consumes the atom id, up to the version delimiter or the end
// of input.
func parseAtom(c *cursor, r *ref) {
	r.atomOffset = c.pos
	rest := c.rest()
	if at := strings.Index(rest, "@"); at >= 0 {
		r.atom = rest[:at]
		c.advance(at + 1)
		return
	}
	r.atom = rest
	c.advance(len(rest))
}

// parseVersion consumes the remainder as the version requirement.
func parseVersion(c *cursor, r *ref) {
	r.versionOffset = c.pos
	r.version = c.rest()
	c.advance(len(r.version))
}

// isVersionReq reports whether s parses as a semver constraint. Used to
// disambiguate the two meanings of '@'.
func isVersionReq(s string) bool {
	if s == "" {
		return false
	}
	_, err := semver.NewConstraint(s)
	return err == nil
}
