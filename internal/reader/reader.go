// Package reader serves whole-file and ranged reads through the sandbox,
// with the same size budget and binary heuristic as the content scanner.
package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/j0hanz/fscontext/internal/filetype"
	"github.com/j0hanz/fscontext/internal/fserr"
	"github.com/j0hanz/fscontext/internal/sandbox"
)

// statConcurrency caps parallel reads in ReadMultiple.
const statConcurrency = 8

// Options bounds one read.
type Options struct {
	// MaxSize rejects files larger than this many bytes. Zero means no cap.
	MaxSize int64

	// Head returns only the first N lines; Tail only the last N. Setting
	// both returns head then tail with a gap marker in between.
	Head int
	Tail int
}

// Result is one file's content.
type Result struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	MIME      string `json:"mime"`
	Binary    bool   `json:"binary,omitempty"`
	Lines     int    `json:"lines,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Info is stat metadata plus content identity.
type Info struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"sizeHuman"`
	Mode      string    `json:"mode"`
	ModTime   time.Time `json:"modTime"`
	IsDir     bool      `json:"isDir"`
	IsSymlink bool      `json:"isSymlink"`
	MIME      string    `json:"mime,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
}

// Read validates path and returns its content under opt.
func Read(sb *sandbox.Sandbox, path string, opt Options) (*Result, error) {
	resolved, err := sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	p := resolved.ResolvedPath

	info, err := os.Stat(p)
	if err != nil {
		return nil, fserr.MapOS("read", path, err)
	}
	if info.IsDir() {
		return nil, fserr.New(fserr.KindNotFile, "read", path, "path is a directory, not a file")
	}
	if opt.MaxSize > 0 && info.Size() > opt.MaxSize {
		return nil, fserr.New(fserr.KindTooLarge, "read", path,
			fmt.Sprintf("file is %s, limit is %s", humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(opt.MaxSize))))
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fserr.MapOS("read", path, err)
	}

	head := data
	if len(head) > filetype.SniffLen {
		head = head[:filetype.SniffLen]
	}
	res := &Result{
		Path: p,
		MIME: filetype.DetectMIME(p, head),
	}
	if filetype.IsBinary(head) {
		// Binary payloads are not inlined; callers read the metadata and
		// decide what to do.
		res.Binary = true
		return res, nil
	}

	lines := splitLines(string(data))
	res.Lines = len(lines)

	switch {
	case opt.Head > 0 && opt.Tail > 0 && opt.Head+opt.Tail < len(lines):
		gap := len(lines) - opt.Head - opt.Tail
		parts := append([]string{}, lines[:opt.Head]...)
		parts = append(parts, fmt.Sprintf("... %d lines omitted ...", gap))
		parts = append(parts, lines[len(lines)-opt.Tail:]...)
		res.Content = strings.Join(parts, "\n")
		res.Truncated = true
	case opt.Head > 0 && opt.Head < len(lines) && opt.Tail == 0:
		res.Content = strings.Join(lines[:opt.Head], "\n")
		res.Truncated = true
	case opt.Tail > 0 && opt.Tail < len(lines) && opt.Head == 0:
		res.Content = strings.Join(lines[len(lines)-opt.Tail:], "\n")
		res.Truncated = true
	default:
		res.Content = string(data)
	}
	return res, nil
}

// ReadMultiple reads paths in parallel. Per-file failures land in errs at
// the same index; one bad file never fails the batch.
func ReadMultiple(ctx context.Context, sb *sandbox.Sandbox, paths []string, opt Options) ([]*Result, []error) {
	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			results[i], errs[i] = Read(sb, p, opt)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

// Stat returns metadata for path, including MIME and an xxhash64 content
// checksum for regular files within the size budget.
func Stat(sb *sandbox.Sandbox, path string, maxChecksum int64) (*Info, error) {
	resolved, err := sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	p := resolved.ResolvedPath

	fi, err := os.Stat(p)
	if err != nil {
		return nil, fserr.MapOS("stat", path, err)
	}

	info := &Info{
		Path:      p,
		Name:      fi.Name(),
		Size:      fi.Size(),
		SizeHuman: humanize.IBytes(uint64(fi.Size())),
		Mode:      fi.Mode().String(),
		ModTime:   fi.ModTime(),
		IsDir:     fi.IsDir(),
		IsSymlink: resolved.IsSymlink,
	}
	if fi.IsDir() {
		return info, nil
	}

	f, err := os.Open(p)
	if err != nil {
		// Metadata without content identity still answers the call.
		return info, nil
	}
	defer f.Close()

	r := bufio.NewReader(f)
	// Peek does not consume, so the checksum below still covers the head.
	head, _ := r.Peek(filetype.SniffLen)
	info.MIME = filetype.DetectMIME(p, head)

	if maxChecksum > 0 && fi.Size() <= maxChecksum {
		h := xxhash.New()
		if _, err := io.Copy(h, r); err == nil {
			info.Checksum = fmt.Sprintf("%016x", h.Sum64())
		}
	}
	return info, nil
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
