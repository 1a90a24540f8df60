// Package listing renders directory contents and trees through the sandbox.
package listing

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/j0hanz/fscontext/internal/fserr"
	"github.com/j0hanz/fscontext/internal/sandbox"
	"github.com/j0hanz/fscontext/internal/traverse"
)

// statConcurrency caps parallel stat calls when filling entry metadata.
const statConcurrency = 8

// Sort orders for ListDirectory.
const (
	SortByName  = "name"
	SortBySize  = "size"
	SortByMTime = "mtime"
)

// Entry is one row of a directory listing.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	IsDir     bool      `json:"isDir"`
	IsSymlink bool      `json:"isSymlink,omitempty"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"sizeHuman,omitempty"`
	ModTime   time.Time `json:"modTime"`
}

// Options controls one listing.
type Options struct {
	IncludeHidden bool

	// SortBy is one of the Sort* constants; empty means SortByName.
	SortBy string
}

// Listing is a directory's entries plus counters.
type Listing struct {
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
	Files   int     `json:"files"`
	Dirs    int     `json:"dirs"`
	// TotalSize sums the regular files in this directory, not the subtree.
	TotalSize           int64  `json:"totalSize"`
	TotalSizeHuman      string `json:"totalSizeHuman,omitempty"`
	SkippedInaccessible int    `json:"skippedInaccessible,omitempty"`
	SkippedSensitive    int    `json:"skippedSensitive,omitempty"`
}

// ListDirectory validates path and returns its immediate children. Entries
// that fail sandbox re-validation or match the sensitive denylist are
// counted, not returned. Metadata is gathered with bounded parallel stats.
func ListDirectory(ctx context.Context, sb *sandbox.Sandbox, path string, opt Options) (*Listing, error) {
	resolved, err := sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	dir := resolved.ResolvedPath

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fserr.MapOS("list", path, err)
	}
	if !info.IsDir() {
		return nil, fserr.New(fserr.KindNotDirectory, "list", path, "path is a file, not a directory")
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fserr.MapOS("list", path, err)
	}

	out := &Listing{Path: dir}
	var kept []os.DirEntry
	for _, de := range dirents {
		name := de.Name()
		if !opt.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(dir, name)
		if de.Type()&os.ModeSymlink != 0 {
			if _, err := sb.Resolve(full); err != nil {
				out.SkippedInaccessible++
				continue
			}
		} else if !sb.ContainsResolved(full) {
			out.SkippedInaccessible++
			continue
		}
		if sb.Sensitive(full) {
			out.SkippedSensitive++
			continue
		}
		kept = append(kept, de)
	}

	out.Entries = make([]Entry, len(kept))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)
	for i, de := range kept {
		g.Go(func() error {
			e := Entry{
				Name:      de.Name(),
				Path:      filepath.Join(dir, de.Name()),
				IsSymlink: de.Type()&os.ModeSymlink != 0,
			}
			if fi, err := os.Stat(e.Path); err == nil {
				e.IsDir = fi.IsDir()
				e.ModTime = fi.ModTime()
				if !e.IsDir {
					e.Size = fi.Size()
					e.SizeHuman = humanize.IBytes(uint64(fi.Size()))
				}
			} else {
				e.IsDir = de.IsDir()
			}
			out.Entries[i] = e
			return nil
		})
	}
	_ = g.Wait()

	for _, e := range out.Entries {
		if e.IsDir {
			out.Dirs++
		} else {
			out.Files++
			out.TotalSize += e.Size
		}
	}
	out.TotalSizeHuman = humanize.IBytes(uint64(out.TotalSize))

	sortEntries(out.Entries, opt.SortBy)
	return out, nil
}

// sortEntries orders directories first, then by the requested key.
func sortEntries(entries []Entry, by string) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		switch by {
		case SortBySize:
			if a.Size != b.Size {
				return a.Size > b.Size
			}
		case SortByMTime:
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
		}
		return a.Name < b.Name
	})
}

// TreeNode is one node of a directory tree.
type TreeNode struct {
	Name     string      `json:"name"`
	IsDir    bool        `json:"isDir"`
	Size     int64       `json:"size,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// TreeResult is a rendered subtree plus counters.
type TreeResult struct {
	Root                *TreeNode `json:"root"`
	Files               int       `json:"files"`
	Dirs                int       `json:"dirs"`
	Truncated           bool      `json:"truncated,omitempty"`
	SkippedInaccessible int       `json:"skippedInaccessible,omitempty"`
	SkippedSensitive    int       `json:"skippedSensitive,omitempty"`
}

// maxTreeEntries caps how many entries a tree may carry before it is cut
// off; agent clients choke on unbounded trees long before the server does.
const maxTreeEntries = 10000

// Tree builds a nested view of the subtree under path, bounded by maxDepth
// and maxTreeEntries.
func Tree(ctx context.Context, sb *sandbox.Sandbox, path string, maxDepth int, includeHidden bool) (*TreeResult, error) {
	resolved, err := sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	base := resolved.ResolvedPath

	info, err := os.Stat(base)
	if err != nil {
		return nil, fserr.MapOS("tree", path, err)
	}
	if !info.IsDir() {
		return nil, fserr.New(fserr.KindNotDirectory, "tree", path, "path is a file, not a directory")
	}

	res := &TreeResult{Root: &TreeNode{Name: filepath.Base(base), IsDir: true}}
	nodes := map[string]*TreeNode{"": res.Root}
	count := 0

	// Single traversal worker: a directory entry is then always emitted
	// before anything beneath it, so every child finds its parent node.
	stats, err := traverse.Enumerate(ctx, sb, base, traverse.Options{
		IncludeHidden: includeHidden,
		IncludeDirs:   true,
		MaxDepth:      maxDepth,
		Concurrency:   1,
	}, func(e traverse.Entry) bool {
		if count >= maxTreeEntries {
			res.Truncated = true
			return false
		}
		count++

		node := &TreeNode{Name: filepath.Base(e.Rel), IsDir: e.IsDir, Size: e.Size}
		parentRel := ""
		if i := strings.LastIndex(e.Rel, "/"); i >= 0 {
			parentRel = e.Rel[:i]
		}
		if parent, ok := nodes[parentRel]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			res.Root.Children = append(res.Root.Children, node)
		}
		if e.IsDir {
			nodes[e.Rel] = node
			res.Dirs++
		} else {
			res.Files++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	res.SkippedInaccessible = stats.SkippedInaccessible
	res.SkippedSensitive = stats.SkippedSensitive

	sortTree(res.Root)
	return res, nil
}

func sortTree(n *TreeNode) {
	sort.Slice(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
	for _, c := range n.Children {
		if c.IsDir {
			sortTree(c)
		}
	}
}
