package view

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

const globMeta = "*?[{"

// Filter matches titles case-insensitively. Plain text is a substring match;
// text containing glob metacharacters is matched as a whole-title glob.
type Filter struct {
	text    string
	pattern glob.Glob
}

// NewFilter builds a Filter. Invalid glob syntax falls back to substring matching.
func NewFilter(text string) Filter {
	f := Filter{text: strings.ToLower(strings.TrimSpace(text))}
	if f.text != "" && strings.ContainsAny(f.text, globMeta) {
		if g, err := glob.Compile(f.text); err == nil {
			f.pattern = g
		}
	}
	return f
}

// Text returns the normalized filter text.
func (f Filter) Text() string {
	return f.text
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.text == ""
}

// Match reports whether title passes the filter.
func (f Filter) Match(title string) bool {
	if f.text == "" {
		return true
	}
	t := strings.ToLower(strings.TrimSpace(title))
	if f.pattern != nil {
		return f.pattern.Match(t)
	}
	return strings.Contains(t, f.text)
}

// TitleMatcher selects titles by include and exclude globs. Excludes win.
// With no include patterns every title not excluded matches.
type TitleMatcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewTitleMatcher compiles lower-cased include and exclude patterns.
func NewTitleMatcher(include, exclude []string) (*TitleMatcher, error) {
	m := &TitleMatcher{}
	for _, p := range include {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern '%s': %w", p, err)
		}
		m.include = append(m.include, g)
	}
	for _, p := range exclude {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", p, err)
		}
		m.exclude = append(m.exclude, g)
	}
	return m, nil
}

// Match reports whether title is selected.
func (m *TitleMatcher) Match(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	for _, g := range m.exclude {
		if g.Match(t) {
			return false
		}
	}
	if len(m.include) == 0 {
		return true
	}
	for _, g := range m.include {
		if g.Match(t) {
			return true
		}
	}
	return false
}
