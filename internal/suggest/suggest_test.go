package suggest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0hanz/fscontext/internal/sandbox"
)

func newSandbox(t *testing.T, names ...string) (*sandbox.Sandbox, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(root, n), []byte("x"), 0644))
	}
	sb := sandbox.New()
	require.NoError(t, sb.SetAllowedRoots([]string{root}))
	return sb, root
}

func TestForMissingFindsNearName(t *testing.T) {
	sb, root := newSandbox(t, "config.toml", "main.go", "readme.md")

	got := ForMissing(sb, filepath.Join(root, "confg.toml"))
	require.NotEmpty(t, got)
	assert.Equal(t, "config.toml", got[0])
}

func TestForMissingCapsAtThree(t *testing.T) {
	sb, root := newSandbox(t, "data1.txt", "data2.txt", "data3.txt", "data4.txt")

	got := ForMissing(sb, filepath.Join(root, "data5.txt"))
	assert.Len(t, got, 3)
}

func TestForMissingIgnoresFarNames(t *testing.T) {
	sb, root := newSandbox(t, "completely-unrelated.bin")

	got := ForMissing(sb, filepath.Join(root, "zzz.txt"))
	assert.Empty(t, got)
}

func TestForMissingParentOutsideSandbox(t *testing.T) {
	sb, _ := newSandbox(t, "a.txt")
	assert.Empty(t, ForMissing(sb, "/etc/hosst"))
}
