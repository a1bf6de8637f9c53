// Package match evaluates glob patterns against remote entry paths.
//
// Patterns select which leaves a clone job copies. Paths are built from
// entry display names joined by '/', rooted at the folder being cloned.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include/exclude patterns against entry paths.
//
//   - Include patterns: a path must match at least one
//   - Exclude patterns: a path must not match any
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	includeHidden bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns that paths must match (at least one).
	// Required: at least one include pattern must be specified.
	// Use "**" to match everything.
	Includes []string

	// Excludes are glob patterns that paths must not match (any).
	// Optional: if empty, no excludes are applied.
	Excludes []string

	// IncludeHidden controls whether hidden entries are matched.
	// Hidden entries have path segments starting with '.'.
	// Default: false (hidden entries are excluded).
	IncludeHidden bool
}

// Errors returned by Matcher operations.
var (
	// ErrNoIncludes is returned when no include patterns are provided.
	ErrNoIncludes = errors.New("at least one include pattern is required")

	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a new Matcher from the given configuration.
//
// Returns an error if no include patterns are provided or if any pattern
// cannot be compiled.
func New(cfg Config) (*Matcher, error) {
	if len(cfg.Includes) == 0 {
		return nil, ErrNoIncludes
	}

	includes, err := validate(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := validate(cfg.Excludes)
	if err != nil {
		return nil, err
	}

	return &Matcher{
		includes:      includes,
		excludes:      excludes,
		includeHidden: cfg.IncludeHidden,
	}, nil
}

func validate(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		if !doublestar.ValidatePattern(raw) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
		out = append(out, raw)
	}
	return out, nil
}

// Match returns true if the path matches the include/exclude patterns.
//
// A path matches if:
//  1. It matches at least one include pattern
//  2. It does not match any exclude pattern
//  3. It is not hidden (unless IncludeHidden is true)
func (m *Matcher) Match(path string) bool {
	if !m.includeHidden && isHidden(path) {
		return false
	}

	included := false
	for _, p := range m.includes {
		if ok, _ := doublestar.Match(p, path); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, p := range m.excludes {
		if ok, _ := doublestar.Match(p, path); ok {
			return false
		}
	}
	return true
}

// isHidden reports whether any path segment starts with a dot.
func isHidden(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
