// Package search composes path validation, traversal, matching, and file
// scanning into one content-search operation with global budgets.
package search

import (
	"context"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/j0hanz/fscontext/internal/fserr"
	"github.com/j0hanz/fscontext/internal/match"
	"github.com/j0hanz/fscontext/internal/pool"
	"github.com/j0hanz/fscontext/internal/sandbox"
	"github.com/j0hanz/fscontext/internal/scan"
	"github.com/j0hanz/fscontext/internal/traverse"
)

// Stop reasons recorded in the summary when a budget ends the search early.
const (
	StopMaxResults = "maxResults"
	StopMaxFiles   = "maxFiles"
	StopTimeout    = "timeout"
)

// Defaults applied when a request leaves the corresponding field zero.
const (
	DefaultMaxResults  = 1000
	DefaultMaxFiles    = 10000
	DefaultMaxFileSize = 10 * 1024 * 1024
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 16
	MaxContextLines    = 20
)

// minPoolWorkers is the usefulness threshold: below it the orchestrator
// scans sequentially instead of paying pool overhead for no parallelism.
const minPoolWorkers = 2

// Request is one content search.
type Request struct {
	// Base is the directory (or single file) to search under.
	Base string

	// Pattern is the text or regular expression to find.
	Pattern string

	// Include filters candidate files by glob, e.g. "**/*.go".
	Include string

	// Excludes skips matching paths and their subtrees.
	Excludes []string

	IncludeHidden bool
	CaseSensitive bool
	WholeWord     bool
	Literal       bool
	ScanBinary    bool

	// ContextLines of context on each side of a match, capped at
	// MaxContextLines.
	ContextLines int

	MaxResults  int
	MaxFiles    int
	MaxFileSize int64
	MaxDepth    int
	Timeout     time.Duration
}

// Response carries the matches and the run summary.
type Response struct {
	Matches []*scan.ContentMatch `json:"matches"`
	Summary scan.Summary         `json:"summary"`
}

// Orchestrator runs searches against one sandbox.
type Orchestrator struct {
	sb      *sandbox.Sandbox
	workers int
}

// New returns an orchestrator scanning with the given worker count. Zero
// picks min(GOMAXPROCS, 8).
func New(sb *sandbox.Sandbox, workers int) *Orchestrator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > 8 {
			workers = 8
		}
	}
	return &Orchestrator{sb: sb, workers: workers}
}

// Search validates req, enumerates candidates, scans them, and returns the
// aggregated matches sorted by file then line. Budget exhaustion is not an
// error: the response reports it through Truncated and StoppedReason.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	applyDefaults(&req)

	m, err := match.Build(req.Pattern, match.Options{
		CaseSensitive: req.CaseSensitive,
		WholeWord:     req.WholeWord,
		Literal:       req.Literal,
	})
	if err != nil {
		return nil, err
	}
	if req.Include != "" && !traverse.ValidGlob(req.Include) {
		return nil, fserr.New(fserr.KindInvalidPattern, "search", req.Include, "malformed file glob")
	}

	resolved, err := o.sb.Resolve(req.Base)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	scanOpt := scan.Options{
		MaxFileSize:  req.MaxFileSize,
		ContextLines: req.ContextLines,
		MaxMatches:   req.MaxResults,
		ScanBinary:   req.ScanBinary,
	}

	agg := newAggregator(req.MaxResults, req.MaxFiles)

	info, err := os.Stat(resolved.ResolvedPath)
	if err != nil {
		return nil, fserr.MapOS("search", req.Base, err)
	}
	if !info.IsDir() {
		// Single-file search skips enumeration entirely.
		agg.add(resolved.ResolvedPath, scan.File(resolved.ResolvedPath, m, scanOpt))
		return agg.response(), nil
	}

	enumOpt := traverse.Options{
		Pattern:       req.Include,
		Excludes:      req.Excludes,
		IncludeHidden: req.IncludeHidden,
		MaxDepth:      req.MaxDepth,
		Concurrency:   DefaultConcurrency,
	}

	if o.workers >= minPoolWorkers {
		err = o.runPooled(ctx, m, resolved.ResolvedPath, enumOpt, scanOpt, agg)
	} else {
		err = o.runSequential(ctx, m, resolved.ResolvedPath, enumOpt, scanOpt, agg)
	}
	if err != nil {
		if ctx.Err() != nil {
			agg.stop(StopTimeout)
		} else {
			return nil, err
		}
	}
	return agg.response(), nil
}

// runSequential scans each candidate inline in the enumeration callback.
func (o *Orchestrator) runSequential(ctx context.Context, m *match.Matcher, base string, enumOpt traverse.Options, scanOpt scan.Options, agg *aggregator) error {
	stats, err := traverse.Enumerate(ctx, o.sb, base, enumOpt, func(e traverse.Entry) bool {
		if ctx.Err() != nil {
			agg.stop(StopTimeout)
			return false
		}
		if !agg.budgetFor(e.Path) {
			return false
		}
		opt := scanOpt
		if remaining := agg.remaining(); remaining < opt.MaxMatches {
			opt.MaxMatches = remaining
		}
		return agg.add(e.Path, scan.File(e.Path, m, opt))
	})
	agg.addStats(stats)
	return err
}

// runPooled distributes scans across the worker pool, keeping at most
// 2×workers tasks in flight and draining oldest-first so budget checks see
// results promptly.
func (o *Orchestrator) runPooled(ctx context.Context, m *match.Matcher, base string, enumOpt traverse.Options, scanOpt scan.Options, agg *aggregator) error {
	p := pool.New(o.workers, func(ctx context.Context, path string) (scan.Result, error) {
		if ctx.Err() != nil {
			return scan.Result{}, ctx.Err()
		}
		return scan.File(path, m, scanOpt), nil
	})
	defer p.Close()

	type inflight struct {
		path string
		task *pool.Task[scan.Result]
	}
	var queue []inflight
	maxInflight := o.workers * 2

	drain := func(n int) bool {
		for len(queue) > n {
			head := queue[0]
			queue = queue[1:]
			res, err := head.task.Wait(ctx)
			if err != nil {
				// Worker crash or cancellation; count the file as
				// inaccessible rather than aborting the whole search.
				agg.add(head.path, scan.Result{Skipped: scan.SkipInaccessible})
				continue
			}
			if !agg.add(head.path, res) {
				return false
			}
		}
		return true
	}

	stats, err := traverse.Enumerate(ctx, o.sb, base, enumOpt, func(e traverse.Entry) bool {
		if ctx.Err() != nil {
			agg.stop(StopTimeout)
			return false
		}
		if !agg.budgetFor(e.Path) {
			return false
		}
		task, submitErr := p.Submit(ctx, e.Path)
		if submitErr != nil {
			agg.add(e.Path, scan.Result{Skipped: scan.SkipInaccessible})
			return true
		}
		queue = append(queue, inflight{path: e.Path, task: task})
		return drain(maxInflight)
	})

	if agg.stopped() {
		// A budget fired: cancel what is still in flight instead of
		// waiting for scans whose results would be dropped anyway.
		for _, f := range queue {
			f.task.Cancel()
		}
	} else {
		drain(0)
	}
	agg.addStats(stats)
	return err
}

func applyDefaults(req *Request) {
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.MaxFiles <= 0 {
		req.MaxFiles = DefaultMaxFiles
	}
	if req.MaxFileSize <= 0 {
		req.MaxFileSize = DefaultMaxFileSize
	}
	if req.Timeout <= 0 {
		req.Timeout = DefaultTimeout
	}
	if req.ContextLines < 0 {
		req.ContextLines = 0
	}
	if req.ContextLines > MaxContextLines {
		req.ContextLines = MaxContextLines
	}
}

// aggregator accumulates matches and counters under the global budgets. It
// is only touched from the serial emit/drain path, so it needs no lock.
type aggregator struct {
	maxResults int
	maxFiles   int

	matches []*scan.ContentMatch
	summary scan.Summary
}

func newAggregator(maxResults, maxFiles int) *aggregator {
	return &aggregator{maxResults: maxResults, maxFiles: maxFiles}
}

// budgetFor reports whether another file may be scanned, recording the stop
// reason when a budget is exhausted.
func (a *aggregator) budgetFor(path string) bool {
	if a.summary.StoppedReason != "" {
		return false
	}
	if len(a.matches) >= a.maxResults {
		a.stop(StopMaxResults)
		return false
	}
	if a.summary.FilesScanned >= a.maxFiles {
		a.stop(StopMaxFiles)
		return false
	}
	return true
}

func (a *aggregator) remaining() int {
	return a.maxResults - len(a.matches)
}

// add folds one file's scan result in. It returns false once the result
// budget is exhausted.
func (a *aggregator) add(path string, res scan.Result) bool {
	switch res.Skipped {
	case scan.SkipTooLarge:
		a.summary.SkippedTooLarge++
		return true
	case scan.SkipBinary:
		a.summary.SkippedBinary++
		return true
	case scan.SkipInaccessible:
		a.summary.SkippedInaccessible++
		return true
	}

	a.summary.FilesScanned++
	if len(res.Matches) == 0 {
		return true
	}
	a.summary.FilesMatched++

	for _, cm := range res.Matches {
		if len(a.matches) >= a.maxResults {
			a.stop(StopMaxResults)
			return false
		}
		a.matches = append(a.matches, cm)
		a.summary.TotalMatches += cm.MatchCount
	}
	if res.Truncated && len(a.matches) >= a.maxResults {
		a.stop(StopMaxResults)
		return false
	}
	return true
}

func (a *aggregator) addStats(stats traverse.Stats) {
	a.summary.SkippedInaccessible += stats.SkippedInaccessible
	a.summary.SkippedSensitive += stats.SkippedSensitive
}

func (a *aggregator) stop(reason string) {
	if a.summary.StoppedReason == "" {
		a.summary.StoppedReason = reason
	}
	a.summary.Truncated = true
}

func (a *aggregator) stopped() bool {
	return a.summary.StoppedReason != ""
}

// response sorts matches by file then line and returns the final payload.
// Traversal order is nondeterministic; the sort makes output stable.
func (a *aggregator) response() *Response {
	sort.Slice(a.matches, func(i, j int) bool {
		if a.matches[i].File != a.matches[j].File {
			return a.matches[i].File < a.matches[j].File
		}
		return a.matches[i].Line < a.matches[j].Line
	})
	if a.matches == nil {
		a.matches = []*scan.ContentMatch{}
	}
	return &Response{Matches: a.matches, Summary: a.summary}
}
