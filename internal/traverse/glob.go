package traverse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/j0hanz/fscontext/internal/sandbox"
)

// Entry is one filesystem entry produced by Enumerate. Path is the full
// validated path used for I/O; Rel is the path relative to the enumeration
// base, with forward slashes, used for glob matching and display.
type Entry struct {
	Path      string
	Rel       string
	IsDir     bool
	IsSymlink bool
	Depth     int
	Size      int64
}

// Stats counts entries skipped during one enumeration.
type Stats struct {
	SkippedInaccessible int
	SkippedSensitive    int
}

// Options controls one enumeration.
type Options struct {
	// Pattern is a doublestar glob matched against Rel. Empty matches
	// everything.
	Pattern string

	// Excludes are doublestar globs; matching entries (and matching
	// directories' subtrees) are skipped.
	Excludes []string

	// IncludeHidden includes dot-entries; off by default.
	IncludeHidden bool

	// IncludeDirs emits directory entries as well as files.
	IncludeDirs bool

	// MaxDepth bounds recursion below the base (base entries are depth 1).
	MaxDepth int

	// Concurrency caps in-flight directory reads.
	Concurrency int
}

type task struct {
	dir   string
	rel   string
	depth int
}

// Enumerate walks the tree under base (an already-resolved directory) and
// calls emit for every entry that passes the sandbox, the hidden-file
// policy, the exclude rules, and the pattern. Every discovered entry is
// re-validated against the sandbox: symlinked entries get a full resolution,
// plain entries the cheap containment check. A directory that validated does
// not make its children trusted.
//
// emit is called serially; emit returning false stops the enumeration of
// new entries (in-flight directory reads still finish).
func Enumerate(ctx context.Context, sb *sandbox.Sandbox, base string, opt Options, emit func(Entry) bool) (Stats, error) {
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = 32
	}
	if opt.Concurrency <= 0 {
		opt.Concurrency = 16
	}

	var (
		mu      sync.Mutex
		stats   Stats
		stopped bool
	)

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	seed := []task{{dir: base, rel: "", depth: 0}}
	err := Run(walkCtx, seed, opt.Concurrency, func(t task, enqueue func(task)) {
		entries, err := os.ReadDir(t.dir)
		if err != nil {
			mu.Lock()
			stats.SkippedInaccessible++
			mu.Unlock()
			return
		}

		for _, de := range entries {
			name := de.Name()
			if !opt.IncludeHidden && strings.HasPrefix(name, ".") {
				continue
			}

			full := filepath.Join(t.dir, name)
			rel := name
			if t.rel != "" {
				rel = t.rel + "/" + name
			}

			if excluded(rel, opt.Excludes) {
				continue
			}

			isSymlink := de.Type()&os.ModeSymlink != 0
			isDir := de.IsDir()
			resolved := full

			if isSymlink {
				// Full resolution: the link may escape the sandbox.
				r, err := sb.Resolve(full)
				if err != nil {
					mu.Lock()
					stats.SkippedInaccessible++
					mu.Unlock()
					continue
				}
				resolved = r.ResolvedPath
				info, err := os.Stat(resolved)
				if err != nil {
					mu.Lock()
					stats.SkippedInaccessible++
					mu.Unlock()
					continue
				}
				isDir = info.IsDir()
			} else if !sb.ContainsResolved(full) {
				mu.Lock()
				stats.SkippedInaccessible++
				mu.Unlock()
				continue
			}

			if sb.Sensitive(full) {
				mu.Lock()
				stats.SkippedSensitive++
				mu.Unlock()
				continue
			}

			if isDir {
				if t.depth+1 < opt.MaxDepth {
					enqueue(task{dir: resolved, rel: rel, depth: t.depth + 1})
				}
				if !opt.IncludeDirs {
					continue
				}
			}

			if opt.Pattern != "" {
				ok, err := doublestar.Match(opt.Pattern, rel)
				if err != nil || !ok {
					continue
				}
			}

			var size int64
			if !isDir {
				if info, err := de.Info(); err == nil {
					size = info.Size()
				}
			}

			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			keep := emit(Entry{
				Path:      resolved,
				Rel:       rel,
				IsDir:     isDir,
				IsSymlink: isSymlink,
				Depth:     t.depth + 1,
				Size:      size,
			})
			if !keep {
				stopped = true
				mu.Unlock()
				cancel()
				return
			}
			mu.Unlock()
		}
	})

	if stopped {
		// Early stop requested by the caller is not an error.
		return stats, nil
	}
	return stats, err
}

// excluded reports whether rel matches any exclude pattern, either directly
// or as a path under an excluded directory.
func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidGlob reports whether pattern is a well-formed doublestar glob.
func ValidGlob(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}
