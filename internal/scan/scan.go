// Package scan streams files line by line through a compiled matcher,
// collecting matches with surrounding context under per-file budgets.
package scan

import (
	"bufio"
	"io"
	"os"

	"github.com/j0hanz/fscontext/internal/filetype"
	"github.com/j0hanz/fscontext/internal/match"
)

// Line scanning buffer sizes. A line longer than maxLineBytes stops the scan
// of that file; text files that big are effectively binary blobs.
const (
	initialLineBytes = 64 * 1024
	maxLineBytes     = 1024 * 1024
)

// SkipReason explains why a file was not scanned.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipTooLarge     SkipReason = "too_large"
	SkipBinary       SkipReason = "binary"
	SkipInaccessible SkipReason = "inaccessible"
)

// ContentMatch is one matching line with its context.
type ContentMatch struct {
	File          string   `json:"file"`
	Line          int      `json:"line"`
	Content       string   `json:"content"`
	MatchCount    int      `json:"matchCount"`
	ContextBefore []string `json:"contextBefore,omitempty"`
	ContextAfter  []string `json:"contextAfter,omitempty"`
}

// Summary aggregates one search run.
type Summary struct {
	FilesScanned        int    `json:"filesScanned"`
	FilesMatched        int    `json:"filesMatched"`
	TotalMatches        int    `json:"totalMatches"`
	SkippedTooLarge     int    `json:"skippedTooLarge"`
	SkippedBinary       int    `json:"skippedBinary"`
	SkippedSensitive    int    `json:"skippedSensitive"`
	SkippedInaccessible int    `json:"skippedInaccessible"`
	Truncated           bool   `json:"truncated"`
	StoppedReason       string `json:"stoppedReason,omitempty"`
}

// Options bounds one file scan.
type Options struct {
	// MaxFileSize skips files larger than this many bytes. Zero means no cap.
	MaxFileSize int64

	// ContextLines requests that many lines of context on each side of a
	// match.
	ContextLines int

	// MaxMatches caps matches collected from this file. Zero means no cap.
	MaxMatches int

	// ScanBinary scans files that look binary instead of skipping them.
	ScanBinary bool
}

// Result is the outcome of scanning one file.
type Result struct {
	Matches []*ContentMatch
	Skipped SkipReason
	// Truncated is set when MaxMatches cut the scan short.
	Truncated bool
}

// File scans path with m under opt. Unreadable files are reported as skipped,
// not as errors; the search must survive individual bad files.
func File(path string, m *match.Matcher, opt Options) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{Skipped: SkipInaccessible}
	}
	defer f.Close()

	if opt.MaxFileSize > 0 {
		info, err := f.Stat()
		if err != nil {
			return Result{Skipped: SkipInaccessible}
		}
		if info.Size() > opt.MaxFileSize {
			return Result{Skipped: SkipTooLarge}
		}
	}

	r := bufio.NewReaderSize(f, initialLineBytes)
	if !opt.ScanBinary {
		head, err := r.Peek(filetype.SniffLen)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return Result{Skipped: SkipInaccessible}
		}
		if filetype.IsBinary(head) {
			return Result{Skipped: SkipBinary}
		}
	}

	var (
		res     Result
		buf     = NewContextBuffer(opt.ContextLines)
		scanner = bufio.NewScanner(r)
		lineNo  int
	)
	scanner.Buffer(make([]byte, initialLineBytes), maxLineBytes)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		capped := opt.MaxMatches > 0 && len(res.Matches) >= opt.MaxMatches
		if capped && buf.PendingAfter() == 0 {
			res.Truncated = true
			return res
		}

		var cm *ContentMatch
		if !capped {
			if n := m.Count(line); n > 0 {
				cm = &ContentMatch{
					File:          path,
					Line:          lineNo,
					Content:       line,
					MatchCount:    n,
					ContextBefore: buf.SnapshotBefore(),
				}
				res.Matches = append(res.Matches, cm)
			}
		}
		// Push the matching line before registering its after-request so
		// the line does not land in its own after context.
		buf.Push(line)
		if cm != nil {
			buf.RequestAfter(&cm.ContextAfter, opt.ContextLines)
		}
	}
	if scanner.Err() != nil {
		// A read error or an over-long line mid-file; keep what we have.
		if len(res.Matches) == 0 {
			return Result{Skipped: SkipInaccessible}
		}
	}
	if opt.MaxMatches > 0 && len(res.Matches) >= opt.MaxMatches {
		res.Truncated = true
	}
	return res
}
