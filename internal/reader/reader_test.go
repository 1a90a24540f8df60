package reader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0hanz/fscontext/internal/fserr"
	"github.com/j0hanz/fscontext/internal/sandbox"
)

func newSandbox(t *testing.T, files map[string]string) (*sandbox.Sandbox, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	sb := sandbox.New()
	require.NoError(t, sb.SetAllowedRoots([]string{root}))
	return sb, root
}

func TestReadWholeFile(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"a.txt": "one\ntwo\nthree\n"})

	res, err := Read(sb, filepath.Join(root, "a.txt"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", res.Content)
	assert.Equal(t, 3, res.Lines)
	assert.False(t, res.Truncated)
	assert.Equal(t, "text/plain", res.MIME)
}

func TestReadHead(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"a.txt": "1\n2\n3\n4\n5\n"})

	res, err := Read(sb, filepath.Join(root, "a.txt"), Options{Head: 2})
	require.NoError(t, err)
	assert.Equal(t, "1\n2", res.Content)
	assert.True(t, res.Truncated)
}

func TestReadTail(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"a.txt": "1\n2\n3\n4\n5\n"})

	res, err := Read(sb, filepath.Join(root, "a.txt"), Options{Tail: 2})
	require.NoError(t, err)
	assert.Equal(t, "4\n5", res.Content)
	assert.True(t, res.Truncated)
}

func TestReadHeadAndTail(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"a.txt": "1\n2\n3\n4\n5\n6\n"})

	res, err := Read(sb, filepath.Join(root, "a.txt"), Options{Head: 2, Tail: 2})
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n... 2 lines omitted ...\n5\n6", res.Content)
	assert.True(t, res.Truncated)
}

func TestReadRangeCoveringWholeFile(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"a.txt": "1\n2\n"})

	res, err := Read(sb, filepath.Join(root, "a.txt"), Options{Head: 10})
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", res.Content)
	assert.False(t, res.Truncated)
}

func TestReadTooLarge(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"big.txt": strings.Repeat("x", 200)})

	_, err := Read(sb, filepath.Join(root, "big.txt"), Options{MaxSize: 100})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindTooLarge))
}

func TestReadDirectoryFails(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"sub/a.txt": "x"})

	_, err := Read(sb, filepath.Join(root, "sub"), Options{})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindNotFile))
}

func TestReadBinaryNotInlined(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"bin.dat": "x\x00y"})

	res, err := Read(sb, filepath.Join(root, "bin.dat"), Options{})
	require.NoError(t, err)
	assert.True(t, res.Binary)
	assert.Empty(t, res.Content)
}

func TestReadOutsideSandbox(t *testing.T) {
	sb, _ := newSandbox(t, map[string]string{"a.txt": "x"})

	_, err := Read(sb, "/etc/passwd", Options{})
	require.Error(t, err)
	assert.True(t, fserr.IsKind(err, fserr.KindAccessDenied))
}

func TestReadMultiplePartialFailure(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"a.txt": "A\n", "b.txt": "B\n"})

	paths := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "missing.txt"),
		filepath.Join(root, "b.txt"),
	}
	results, errs := ReadMultiple(context.Background(), sb, paths, Options{})

	require.NoError(t, errs[0])
	assert.Equal(t, "A\n", results[0].Content)
	require.Error(t, errs[1])
	assert.True(t, fserr.IsKind(errs[1], fserr.KindNotFound))
	require.NoError(t, errs[2])
	assert.Equal(t, "B\n", results[2].Content)
}

func TestStatFileInfo(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"info.txt": "hello\n"})

	info, err := Stat(sb, filepath.Join(root, "info.txt"), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "info.txt", info.Name)
	assert.Equal(t, int64(6), info.Size)
	assert.False(t, info.IsDir)
	assert.Equal(t, "text/plain", info.MIME)
	assert.Len(t, info.Checksum, 16)

	// Identical content yields an identical checksum.
	require.NoError(t, os.WriteFile(filepath.Join(root, "copy.txt"), []byte("hello\n"), 0644))
	dup, err := Stat(sb, filepath.Join(root, "copy.txt"), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, info.Checksum, dup.Checksum)
}

func TestStatDirectory(t *testing.T) {
	sb, root := newSandbox(t, map[string]string{"sub/a.txt": "x"})

	info, err := Stat(sb, filepath.Join(root, "sub"), 1<<20)
	require.NoError(t, err)
	assert.True(t, info.IsDir)
	assert.Empty(t, info.Checksum)
}
