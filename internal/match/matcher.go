// Package match compiles user search input into safe line matchers.
//
// Literal searches without a whole-word constraint use a plain substring
// counter. Everything else compiles to a regular expression after a static
// backtracking-risk analysis; patterns that fail the analysis are rejected
// with an invalid_pattern error instead of being evaluated.
package match

import (
	"regexp"
	"strings"

	"github.com/j0hanz/fscontext/internal/fserr"
)

// Options selects how a pattern is interpreted.
type Options struct {
	// CaseSensitive disables case folding. Off means case-insensitive.
	CaseSensitive bool

	// WholeWord wraps the pattern in word-boundary anchors.
	WholeWord bool

	// Literal treats the pattern as plain text, not a regular expression.
	Literal bool
}

// Matcher counts pattern occurrences in a single line of text.
type Matcher struct {
	// literal substring search, used when re is nil
	needle string
	fold   bool

	re *regexp.Regexp
}

// Build validates pattern under opt and returns a compiled matcher.
// Regular-expression patterns are screened for catastrophic-backtracking
// shapes first; a pattern that fails the screen returns an invalid_pattern
// error even though the runtime engine is linear-time, so the same inputs
// fail predictably everywhere.
func Build(pattern string, opt Options) (*Matcher, error) {
	if pattern == "" {
		return nil, fserr.New(fserr.KindInvalidInput, "match", "", "search pattern must not be empty")
	}

	// Fast path: plain substring counting.
	if opt.Literal && !opt.WholeWord {
		m := &Matcher{needle: pattern, fold: !opt.CaseSensitive}
		if m.fold {
			m.needle = strings.ToLower(pattern)
		}
		return m, nil
	}

	expr := pattern
	if opt.Literal {
		expr = regexp.QuoteMeta(pattern)
	} else if reason := analyzePattern(pattern); reason != "" {
		return nil, fserr.New(fserr.KindInvalidPattern, "match", "", "unsafe pattern: "+reason)
	}
	if opt.WholeWord {
		expr = `\b(?:` + expr + `)\b`
	}
	if !opt.CaseSensitive {
		expr = `(?i)` + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fserr.Wrap(fserr.KindInvalidPattern, "match", "", err)
	}
	return &Matcher{re: re}, nil
}

// Count returns the number of non-overlapping occurrences in line.
func (m *Matcher) Count(line string) int {
	if m.re != nil {
		return len(m.re.FindAllStringIndex(line, -1))
	}
	haystack := line
	if m.fold {
		haystack = strings.ToLower(line)
	}
	return strings.Count(haystack, m.needle)
}

// Matches reports whether line contains at least one occurrence.
func (m *Matcher) Matches(line string) bool {
	if m.re != nil {
		return m.re.MatchString(line)
	}
	haystack := line
	if m.fold {
		haystack = strings.ToLower(line)
	}
	return strings.Contains(haystack, m.needle)
}
