package sandbox

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/j0hanz/fscontext/internal/fserr"
)

// RootSet is an immutable, ordered, deduplicated set of canonical allowed
// root directories. A RootSet is never mutated after construction; the
// Sandbox swaps whole sets atomically so readers never observe a partial
// update.
type RootSet struct {
	roots []string
}

// NewRootSet canonicalizes, deduplicates, and orders the given directories.
// Each root is made absolute and fully symlink-resolved so later containment
// checks compare like with like. Roots that do not exist or are not
// directories are rejected: a dangling allow-list entry would silently
// widen once created.
func NewRootSet(dirs []string) (*RootSet, error) {
	seen := make(map[string]struct{}, len(dirs))
	roots := make([]string, 0, len(dirs))

	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			return nil, fserr.New(fserr.KindInvalidInput, "set_roots", dir, "empty root path")
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fserr.Wrap(fserr.KindInvalidInput, "set_roots", dir, err)
		}
		canonical, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fserr.MapOS("set_roots", abs, err)
		}
		info, err := os.Stat(canonical)
		if err != nil {
			return nil, fserr.MapOS("set_roots", canonical, err)
		}
		if !info.IsDir() {
			return nil, fserr.New(fserr.KindNotDirectory, "set_roots", canonical, "allowed root must be a directory")
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		roots = append(roots, canonical)
	}

	sort.Strings(roots)
	return &RootSet{roots: roots}, nil
}

// Roots returns a copy of the root paths.
func (rs *RootSet) Roots() []string {
	return append([]string(nil), rs.roots...)
}

// Empty reports whether the set contains no roots.
func (rs *RootSet) Empty() bool {
	return len(rs.roots) == 0
}

// Contains reports whether the canonical path is one of the roots or a
// proper descendant of one. The comparison is segment-wise, not a naive
// string prefix, so /allowed-evil never matches root /allowed.
func (rs *RootSet) Contains(canonical string) bool {
	for _, root := range rs.roots {
		if canonical == root {
			return true
		}
		prefix := root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(canonical, prefix) {
			return true
		}
	}
	return false
}

// First returns the first root in order, or "" for an empty set. Relative
// request paths are resolved against it.
func (rs *RootSet) First() string {
	if len(rs.roots) == 0 {
		return ""
	}
	return rs.roots[0]
}

// rootHolder wraps the atomically-swapped current RootSet.
type rootHolder struct {
	current atomic.Pointer[RootSet]
}

func newRootHolder() *rootHolder {
	h := &rootHolder{}
	h.current.Store(&RootSet{})
	return h
}

func (h *rootHolder) get() *RootSet {
	return h.current.Load()
}

func (h *rootHolder) replace(rs *RootSet) {
	h.current.Store(rs)
}
