package match

import (
	"strconv"
	"strings"
)

// Thresholds for the static backtracking-risk analysis. Patterns past any
// of these are rejected rather than compiled: predictable failure beats an
// unpredictable hang on engines without linear-time guarantees.
const (
	maxNestingDepth   = 5
	maxAlternations   = 20
	maxRepetitionSpec = 25
	maxAlternativeLen = 1000
)

// analyzePattern runs a structural scan of a regex pattern and returns a
// human-readable reason when the pattern carries catastrophic-backtracking
// risk, or "" when it is acceptable. The scan is escape- and
// character-class-aware so `\(` and `[(+]` do not count as structure.
func analyzePattern(pattern string) string {
	if !isBalanced(pattern) {
		return "unbalanced groups or braces"
	}
	if depth := nestingDepth(pattern); depth > maxNestingDepth {
		return "group nesting deeper than " + strconv.Itoa(maxNestingDepth)
	}
	if hasNestedQuantifier(pattern) {
		return "nested quantifiers (e.g. (a+)+) can backtrack catastrophically"
	}
	if n := largestRepetition(pattern); n >= maxRepetitionSpec {
		return "repetition count " + strconv.Itoa(n) + " exceeds the safety threshold"
	}
	if hasHeavyAlternation(pattern) {
		return "alternation list too large"
	}
	return ""
}

// scan walks the pattern once, invoking fn for every unescaped rune outside
// character classes.
func scan(pattern string, fn func(i int, r byte)) {
	inClass := false
	escaped := false
	for i := 0; i < len(pattern); i++ {
		b := pattern[i]
		if escaped {
			escaped = false
			continue
		}
		switch b {
		case '\\':
			escaped = true
			continue
		case '[':
			if !inClass {
				inClass = true
				continue
			}
		case ']':
			if inClass {
				inClass = false
				continue
			}
		}
		if !inClass {
			fn(i, b)
		}
	}
}

func isBalanced(pattern string) bool {
	parens, braces := 0, 0
	ok := true
	scan(pattern, func(i int, b byte) {
		switch b {
		case '(':
			parens++
		case ')':
			parens--
			if parens < 0 {
				ok = false
			}
		case '{':
			braces++
		case '}':
			braces--
			if braces < 0 {
				ok = false
			}
		}
	})
	return ok && parens == 0 && braces == 0
}

func nestingDepth(pattern string) int {
	depth, maxDepth := 0, 0
	scan(pattern, func(i int, b byte) {
		switch b {
		case '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')':
			if depth > 0 {
				depth--
			}
		}
	})
	return maxDepth
}

// hasNestedQuantifier detects a quantified group whose body itself contains
// a quantifier: the (a+)+ and (a*)* shapes and their {m,n} variants.
func hasNestedQuantifier(pattern string) bool {
	type group struct{ quantifiedInside bool }
	var stack []group
	found := false

	prevQuantifiable := false
	scan(pattern, func(i int, b byte) {
		switch b {
		case '(':
			stack = append(stack, group{})
			prevQuantifiable = false
		case ')':
			if len(stack) == 0 {
				return
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			// A closing group followed by a quantifier with quantifiers
			// inside is the dangerous shape.
			if top.quantifiedInside && nextIsQuantifier(pattern, i+1) {
				found = true
			}
			if top.quantifiedInside && len(stack) > 0 {
				stack[len(stack)-1].quantifiedInside = true
			}
			prevQuantifiable = true
		case '*', '+':
			if len(stack) > 0 {
				stack[len(stack)-1].quantifiedInside = true
			}
			prevQuantifiable = false
		case '?':
			// '?' after a quantifier is a lazy modifier, not a quantifier.
			if prevQuantifiable && len(stack) > 0 {
				stack[len(stack)-1].quantifiedInside = true
			}
			prevQuantifiable = false
		case '{':
			if prevQuantifiable && len(stack) > 0 {
				stack[len(stack)-1].quantifiedInside = true
			}
			prevQuantifiable = false
		default:
			prevQuantifiable = true
		}
	})
	return found
}

func nextIsQuantifier(pattern string, i int) bool {
	if i >= len(pattern) {
		return false
	}
	switch pattern[i] {
	case '*', '+', '?', '{':
		return true
	}
	return false
}

// largestRepetition returns the biggest bound found in any {m}, {m,} or
// {m,n} repetition, or 0 when there is none.
func largestRepetition(pattern string) int {
	largest := 0
	var open = -1
	scan(pattern, func(i int, b byte) {
		switch b {
		case '{':
			open = i
		case '}':
			if open < 0 {
				return
			}
			for _, part := range strings.Split(pattern[open+1:i], ",") {
				if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n > largest {
					largest = n
				}
			}
			open = -1
		}
	})
	return largest
}

func hasHeavyAlternation(pattern string) bool {
	count := 0
	last := 0
	long := false
	scan(pattern, func(i int, b byte) {
		if b == '|' {
			count++
			if i-last > maxAlternativeLen {
				long = true
			}
			last = i
		}
	})
	return count > maxAlternations || long
}
