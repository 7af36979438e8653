// Package semver parses and orders the version tokens used to gate
// upgrade-test behavior. It understands MAJOR.MINOR.PATCH with an
// optional pre-release tag and build metadata, plus the sentinel
// token "current" meaning the in-development build.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Ordering is the result of comparing two versions.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return fmt.Sprintf("ordering(%d)", int(o))
	}
}

// Version is a parsed version token. The zero value is "0.0.0".
// Current is the sentinel for the working copy and outranks every
// concrete version.
type Version struct {
	Major, Minor, Patch int
	Pre                 string
	Build               string

	current bool
}

// Current is the in-development build, newer than every release.
var Current = Version{current: true}

// ParseError reports a malformed version token. Malformed input is
// always a hard failure, never silently ordered.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed version %q: want MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD] or %q", e.Input, CurrentToken)
}

// CurrentToken is the textual form of the sentinel.
const CurrentToken = "current"

var versionRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?(?:\+([0-9A-Za-z.-]+))?$`)

// Parse parses a version token. The token "current" (any case) yields
// the Current sentinel.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if strings.EqualFold(trimmed, CurrentToken) {
		return Current, nil
	}
	m := versionRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, &ParseError{Input: s}
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Version{}, &ParseError{Input: s}
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return Version{}, &ParseError{Input: s}
	}
	patch, err := strconv.Atoi(m[3])
	if err != nil {
		return Version{}, &ParseError{Input: s}
	}
	return Version{Major: major, Minor: minor, Patch: patch, Pre: m[4], Build: m[5]}, nil
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseList parses an ordered list of tokens, failing on the first
// malformed entry.
func ParseList(tokens []string) ([]Version, error) {
	out := make([]Version, 0, len(tokens))
	for _, t := range tokens {
		v, err := Parse(t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// IsCurrent reports whether v is the working-copy sentinel.
func (v Version) IsCurrent() bool { return v.current }

func (v Version) String() string {
	if v.current {
		return CurrentToken
	}
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Compare returns the ordering of a relative to b. Current outranks
// every concrete version. At equal numeric parts a release outranks a
// pre-release; two pre-release tags compare as opaque strings. This is
// a deliberate simplification of full dotted-identifier pre-release
// precedence, kept because the gating thresholds in this harness never
// depend on the finer rule. Build metadata never participates.
func Compare(a, b Version) Ordering {
	switch {
	case a.current && b.current:
		return Equal
	case a.current:
		return Greater
	case b.current:
		return Less
	}
	if o := compareInt(a.Major, b.Major); o != Equal {
		return o
	}
	if o := compareInt(a.Minor, b.Minor); o != Equal {
		return o
	}
	if o := compareInt(a.Patch, b.Patch); o != Equal {
		return o
	}
	switch {
	case a.Pre == b.Pre:
		return Equal
	case a.Pre == "":
		return Greater
	case b.Pre == "":
		return Less
	case a.Pre < b.Pre:
		return Less
	default:
		return Greater
	}
}

// CompareStrings parses both tokens and compares them.
func CompareStrings(a, b string) (Ordering, error) {
	va, err := Parse(a)
	if err != nil {
		return Equal, err
	}
	vb, err := Parse(b)
	if err != nil {
		return Equal, err
	}
	return Compare(va, vb), nil
}

// AtLeast reports whether v is min or newer.
func (v Version) AtLeast(min Version) bool {
	return Compare(v, min) != Less
}

func compareInt(a, b int) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}
