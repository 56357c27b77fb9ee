// Package filter decides which event paths are hidden from output.
//
// Patterns use doublestar syntax ("**" matches any number of directories)
// and are evaluated against the path relative to its watched root. A pattern
// without a slash also matches the base name at any depth. A leading "!"
// re-includes paths hidden by an earlier pattern; the last matching pattern
// decides.
//
// Example usage:
//
//	m, err := filter.New([]string{"**/.git/**", "*.swp", "!keep.swp"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if m.Match("/srv/data", "/srv/data/.git/HEAD") {
//	    // hidden
//	}
package filter

import (
	"errors"
	"fmt"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern is returned for empty or malformed patterns.
var ErrInvalidPattern = errors.New("invalid pattern")

type pattern struct {
	negated   bool
	matchLeaf bool
	glob      string
}

func parsePattern(raw string) (pattern, error) {
	p := raw

	var negated bool
	if strings.HasPrefix(p, "!") {
		negated = true
		p = p[1:]
	}
	if p == "" {
		return pattern{}, fmt.Errorf("%w: empty pattern %q", ErrInvalidPattern, raw)
	}

	p = pathpkg.Clean(p)

	var absolute bool
	if strings.HasPrefix(p, "/") {
		absolute = true
		p = strings.TrimPrefix(p, "/")
	}
	if p == "" {
		return pattern{}, fmt.Errorf("%w: root pattern %q", ErrInvalidPattern, raw)
	}

	// Match against a non-empty path so that bad patterns are reported.
	if _, err := doublestar.Match(p, "a"); err != nil {
		return pattern{}, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, raw, err)
	}

	return pattern{
		negated:   negated,
		matchLeaf: !absolute && !strings.Contains(p, "/"),
		glob:      p,
	}, nil
}

func (p pattern) matches(rel string) bool {
	if ok, _ := doublestar.Match(p.glob, rel); ok {
		return true
	}
	if p.matchLeaf {
		if ok, _ := doublestar.Match(p.glob, pathpkg.Base(rel)); ok {
			return true
		}
	}
	return false
}

// Matcher holds a compiled pattern list. The zero value and a nil *Matcher
// match nothing.
type Matcher struct {
	patterns []pattern
}

// New validates and compiles patterns.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]pattern, 0, len(patterns))}
	for _, raw := range patterns {
		p, err := parsePattern(raw)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Match reports whether path, located under root, is hidden. Paths outside
// root and empty paths are never hidden.
func (m *Matcher) Match(root, path string) bool {
	if m == nil || len(m.patterns) == 0 || path == "" {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)

	hidden := false
	for _, p := range m.patterns {
		if p.matches(rel) {
			hidden = !p.negated
		}
	}
	return hidden
}

// MatchAny reports whether path is hidden relative to the first of roots
// that contains it.
func (m *Matcher) MatchAny(roots []string, path string) bool {
	for _, root := range roots {
		if within(root, path) {
			return m.Match(root, path)
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
