package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0hanz/fscontext/internal/match"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func mustMatcher(t *testing.T, pattern string, opt match.Options) *match.Matcher {
	t.Helper()
	m, err := match.Build(pattern, opt)
	require.NoError(t, err)
	return m
}

func TestFileMatchesWithContext(t *testing.T) {
	p := writeFile(t, "log.txt", "A\nB\nMATCH here\nD\nE\n")
	m := mustMatcher(t, "MATCH", match.Options{Literal: true, CaseSensitive: true})

	res := File(p, m, Options{ContextLines: 2})
	require.Len(t, res.Matches, 1)
	got := res.Matches[0]
	assert.Equal(t, 3, got.Line)
	assert.Equal(t, "MATCH here", got.Content)
	assert.Equal(t, 1, got.MatchCount)
	assert.Equal(t, []string{"A", "B"}, got.ContextBefore)
	assert.Equal(t, []string{"D", "E"}, got.ContextAfter)
	assert.Equal(t, SkipNone, res.Skipped)
}

func TestFileCountsPerLine(t *testing.T) {
	p := writeFile(t, "log.txt", "foo foo foo\nnope\nfoo\n")
	m := mustMatcher(t, "foo", match.Options{Literal: true, CaseSensitive: true})

	res := File(p, m, Options{})
	require.Len(t, res.Matches, 2)
	assert.Equal(t, 3, res.Matches[0].MatchCount)
	assert.Equal(t, 1, res.Matches[1].MatchCount)
}

func TestFileMatchCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("hit\n")
	}
	p := writeFile(t, "many.txt", sb.String())
	m := mustMatcher(t, "hit", match.Options{Literal: true, CaseSensitive: true})

	res := File(p, m, Options{MaxMatches: 5})
	assert.Len(t, res.Matches, 5)
	assert.True(t, res.Truncated)
}

func TestFileCapStillFillsAfterContext(t *testing.T) {
	p := writeFile(t, "tail.txt", "hit\ntail1\ntail2\nrest\n")
	m := mustMatcher(t, "hit", match.Options{Literal: true, CaseSensitive: true})

	res := File(p, m, Options{MaxMatches: 1, ContextLines: 2})
	require.Len(t, res.Matches, 1)
	assert.Equal(t, []string{"tail1", "tail2"}, res.Matches[0].ContextAfter)
	assert.True(t, res.Truncated)
}

func TestFileSkipsTooLarge(t *testing.T) {
	p := writeFile(t, "big.txt", strings.Repeat("x", 100))
	m := mustMatcher(t, "x", match.Options{Literal: true})

	res := File(p, m, Options{MaxFileSize: 10})
	assert.Equal(t, SkipTooLarge, res.Skipped)
	assert.Empty(t, res.Matches)
}

func TestFileSkipsBinary(t *testing.T) {
	p := writeFile(t, "bin.dat", "match\x00binary")
	m := mustMatcher(t, "match", match.Options{Literal: true})

	res := File(p, m, Options{})
	assert.Equal(t, SkipBinary, res.Skipped)

	res = File(p, m, Options{ScanBinary: true})
	assert.Equal(t, SkipNone, res.Skipped)
	assert.Len(t, res.Matches, 1)
}

func TestFileSkipsMissing(t *testing.T) {
	m := mustMatcher(t, "x", match.Options{Literal: true})
	res := File(filepath.Join(t.TempDir(), "gone.txt"), m, Options{})
	assert.Equal(t, SkipInaccessible, res.Skipped)
}

func TestFileNoMatches(t *testing.T) {
	p := writeFile(t, "plain.txt", "nothing here\n")
	m := mustMatcher(t, "needle", match.Options{Literal: true})

	res := File(p, m, Options{})
	assert.Empty(t, res.Matches)
	assert.Equal(t, SkipNone, res.Skipped)
	assert.False(t, res.Truncated)
}
