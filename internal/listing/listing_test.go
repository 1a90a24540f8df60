package listing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0hanz/fscontext/internal/fserr"
	"github.com/j0hanz/fscontext/internal/sandbox"
)

func newRoot(t *testing.T, files map[string]string) (*sandbox.Sandbox, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	sb := sandbox.New()
	require.NoError(t, sb.SetAllowedRoots([]string{root}))
	return sb, root
}

func TestListDirectoryBasic(t *testing.T) {
	sb, root := newRoot(t, map[string]string{
		"b.txt":     "22",
		"a.txt":     "1",
		"sub/x.txt": "x",
		".hidden":   "h",
	})

	l, err := ListDirectory(context.Background(), sb, root, Options{})
	require.NoError(t, err)

	names := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		names[i] = e.Name
	}
	// Directories first, then files by name; hidden excluded.
	assert.Equal(t, []string{"sub", "a.txt", "b.txt"}, names)
	assert.Equal(t, 2, l.Files)
	assert.Equal(t, 1, l.Dirs)
	assert.Equal(t, int64(3), l.TotalSize)
	assert.NotEmpty(t, l.TotalSizeHuman)
}

func TestListDirectoryHidden(t *testing.T) {
	sb, root := newRoot(t, map[string]string{".hidden": "h", "a.txt": "a"})

	l, err := ListDirectory(context.Background(), sb, root, Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 2, l.Files)
}

func TestListDirectorySortBySize(t *testing.T) {
	sb, root := newRoot(t, map[string]string{
		"small.txt": "1",
		"large.txt": "123456",
		"mid.txt":   "123",
	})

	l, err := ListDirectory(context.Background(), sb, root, Options{SortBy: SortBySize})
	require.NoError(t, err)
	require.Len(t, l.Entries, 3)
	assert.Equal(t, "large.txt", l.Entries[0].Name)
	assert.Equal(t, "small.txt", l.Entries[2].Name)
}

func TestListDirectorySortByMTime(t *testing.T) {
	sb, root := newRoot(t, map[string]string{"old.txt": "o", "new.txt": "n"})
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "old.txt"), past, past))

	l, err := ListDirectory(context.Background(), sb, root, Options{SortBy: SortByMTime})
	require.NoError(t, err)
	require.Len(t, l.Entries, 2)
	assert.Equal(t, "new.txt", l.Entries[0].Name)
}

func TestListDirectoryOnFileFails(t *testing.T) {
	sb, root := newRoot(t, map[string]string{"a.txt": "a"})

	_, err := ListDirectory(context.Background(), sb, filepath.Join(root, "a.txt"), Options{})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindNotDirectory))
}

func TestListDirectorySkipsEscapingSymlink(t *testing.T) {
	sb, root := newRoot(t, map[string]string{"a.txt": "a"})
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	l, err := ListDirectory(context.Background(), sb, root, Options{})
	require.NoError(t, err)
	for _, e := range l.Entries {
		assert.NotEqual(t, "escape", e.Name)
	}
	assert.Equal(t, 1, l.SkippedInaccessible)
}

func TestTreeNesting(t *testing.T) {
	sb, root := newRoot(t, map[string]string{
		"top.txt":           "t",
		"src/app.go":        "a",
		"src/util/strs.go":  "s",
		"docs/guide.md":     "g",
		"docs/img/logo.png": "p",
	})

	res, err := Tree(context.Background(), sb, root, 10, false)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Files)
	assert.Equal(t, 4, res.Dirs)
	require.NotNil(t, res.Root)

	byName := map[string]*TreeNode{}
	for _, c := range res.Root.Children {
		byName[c.Name] = c
	}
	src := byName["src"]
	require.NotNil(t, src)
	require.True(t, src.IsDir)

	var util *TreeNode
	for _, c := range src.Children {
		if c.Name == "util" {
			util = c
		}
	}
	require.NotNil(t, util)
	require.Len(t, util.Children, 1)
	assert.Equal(t, "strs.go", util.Children[0].Name)
}

func TestTreeDepthBound(t *testing.T) {
	sb, root := newRoot(t, map[string]string{"a/b/c/deep.txt": "d"})

	res, err := Tree(context.Background(), sb, root, 2, false)
	require.NoError(t, err)
	// Depth 2 shows a/ and a/b/ but not c/ or deep.txt.
	assert.Equal(t, 0, res.Files)
	assert.Equal(t, 2, res.Dirs)
}

func TestTreeOnFileFails(t *testing.T) {
	sb, root := newRoot(t, map[string]string{"a.txt": "a"})

	_, err := Tree(context.Background(), sb, filepath.Join(root, "a.txt"), 5, false)
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindNotDirectory))
}
