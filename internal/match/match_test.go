package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0hanz/fscontext/internal/fserr"
)

func TestBuildLiteralCounting(t *testing.T) {
	m, err := Build("ab", Options{Literal: true, CaseSensitive: true})
	require.NoError(t, err)

	// Non-overlapping: "ababab" holds three, "aaa" holds one "aa".
	assert.Equal(t, 3, m.Count("ababab"))

	m, err = Build("aa", Options{Literal: true, CaseSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count("aaa"))
	assert.Equal(t, 2, m.Count("aaaa"))
}

func TestBuildLiteralCaseFolding(t *testing.T) {
	m, err := Build("Error", Options{Literal: true})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count("ERROR: error in handler"))
	assert.True(t, m.Matches("eRrOr"))

	m, err = Build("Error", Options{Literal: true, CaseSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Count("ERROR: error in handler"))
}

func TestBuildWholeWord(t *testing.T) {
	m, err := Build(`word`, Options{WholeWord: true, CaseSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count("a word here"))
	assert.Equal(t, 0, m.Count("keywords"))
	assert.Equal(t, 0, m.Count("wording"))
}

func TestBuildLiteralWholeWordEscapesMeta(t *testing.T) {
	// Literal "+" must match a plus sign, not act as a quantifier.
	m, err := Build("a+b", Options{Literal: true, WholeWord: true, CaseSensitive: true})
	require.NoError(t, err)
	assert.True(t, m.Matches("calc a+b done"))
	assert.False(t, m.Matches("calc aab done"))
}

func TestBuildRegex(t *testing.T) {
	m, err := Build(`err(or)?s?`, Options{CaseSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Count("err then errors"))
}

func TestBuildRejectsNestedQuantifiers(t *testing.T) {
	for _, pattern := range []string{`(a+)+$`, `(a*)*`, `(x{2,5})+`} {
		_, err := Build(pattern, Options{})
		require.Error(t, err, "pattern %q", pattern)
		assert.True(t, fserr.IsKind(err, fserr.KindInvalidPattern), "pattern %q", pattern)
	}
}

func TestBuildRejectsLargeRepetition(t *testing.T) {
	_, err := Build(`a{30}`, Options{})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindInvalidPattern))

	// Below the threshold is fine.
	_, err = Build(`a{10}`, Options{})
	assert.NoError(t, err)
}

func TestBuildRejectsUnbalanced(t *testing.T) {
	_, err := Build(`(abc`, Options{})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindInvalidPattern))
}

func TestBuildAcceptsEscapedStructure(t *testing.T) {
	// Escaped parens and classes are not structure.
	_, err := Build(`\(a\)`, Options{})
	assert.NoError(t, err)
	_, err = Build(`[(+*]`, Options{})
	assert.NoError(t, err)
	_, err = Build(`\bword\b`, Options{})
	assert.NoError(t, err)
}

func TestBuildRejectsEmptyPattern(t *testing.T) {
	_, err := Build("", Options{})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindInvalidInput))
}

func TestBuildInvalidRegexSyntax(t *testing.T) {
	_, err := Build(`a(?<`, Options{})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindInvalidPattern))
}
