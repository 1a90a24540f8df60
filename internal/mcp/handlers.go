package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/j0hanz/fscontext/internal/fserr"
	"github.com/j0hanz/fscontext/internal/listing"
	"github.com/j0hanz/fscontext/internal/reader"
	"github.com/j0hanz/fscontext/internal/search"
	"github.com/j0hanz/fscontext/internal/suggest"
	"github.com/j0hanz/fscontext/internal/traverse"
)

// findFilesDefaultMax bounds find_files when the caller sets no budget.
const findFilesDefaultMax = 1000

// suggestionsFor offers nearby names when a lookup failed with NotFound.
func (s *Server) suggestionsFor(err error, path string) []string {
	if !fserr.IsKind(err, fserr.KindNotFound) {
		return nil
	}
	return suggest.ForMissing(s.sb, path)
}

type readFileParams struct {
	Path string `json:"path"`
	Head int    `json:"head"`
	Tail int    `json:"tail"`
}

func (s *Server) handleReadFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p readFileParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("read_file", fserr.New(fserr.KindInvalidInput, "read_file", "", "invalid parameters: "+err.Error()), nil)
	}
	if p.Path == "" {
		return s.errorResult("read_file", fserr.New(fserr.KindInvalidInput, "read_file", "", "path is required"), nil)
	}

	res, err := reader.Read(s.sb, p.Path, reader.Options{
		MaxSize: s.cfg.Limits.MaxFileSize,
		Head:    p.Head,
		Tail:    p.Tail,
	})
	if err != nil {
		s.log.WithError(err).Debugf("read_file %s", p.Path)
		return s.errorResult("read_file", err, s.suggestionsFor(err, p.Path))
	}
	return s.jsonResult(res)
}

type readMultipleParams struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleReadMultipleFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p readMultipleParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("read_multiple_files", fserr.New(fserr.KindInvalidInput, "read_multiple_files", "", "invalid parameters: "+err.Error()), nil)
	}
	if len(p.Paths) == 0 {
		return s.errorResult("read_multiple_files", fserr.New(fserr.KindInvalidInput, "read_multiple_files", "", "paths must not be empty"), nil)
	}

	results, errs := reader.ReadMultiple(ctx, s.sb, p.Paths, reader.Options{
		MaxSize: s.cfg.Limits.MaxFileSize,
	})

	type fileResult struct {
		Path   string         `json:"path"`
		Result *reader.Result `json:"result,omitempty"`
		Error  string         `json:"error,omitempty"`
	}
	out := make([]fileResult, len(p.Paths))
	for i := range p.Paths {
		out[i].Path = p.Paths[i]
		if errs[i] != nil {
			out[i].Error = errs[i].Error()
		} else {
			out[i].Result = results[i]
		}
	}
	return s.jsonResult(map[string]any{"files": out})
}

type listDirectoryParams struct {
	Path          string `json:"path"`
	IncludeHidden bool   `json:"include_hidden"`
	SortBy        string `json:"sort_by"`
}

func (s *Server) handleListDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p listDirectoryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("list_directory", fserr.New(fserr.KindInvalidInput, "list_directory", "", "invalid parameters: "+err.Error()), nil)
	}
	if p.Path == "" {
		return s.errorResult("list_directory", fserr.New(fserr.KindInvalidInput, "list_directory", "", "path is required"), nil)
	}

	l, err := listing.ListDirectory(ctx, s.sb, p.Path, listing.Options{
		IncludeHidden: p.IncludeHidden,
		SortBy:        p.SortBy,
	})
	if err != nil {
		return s.errorResult("list_directory", err, s.suggestionsFor(err, p.Path))
	}
	return s.jsonResult(l)
}

type directoryTreeParams struct {
	Path          string `json:"path"`
	MaxDepth      int    `json:"max_depth"`
	IncludeHidden bool   `json:"include_hidden"`
}

func (s *Server) handleDirectoryTree(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p directoryTreeParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("directory_tree", fserr.New(fserr.KindInvalidInput, "directory_tree", "", "invalid parameters: "+err.Error()), nil)
	}
	if p.Path == "" {
		return s.errorResult("directory_tree", fserr.New(fserr.KindInvalidInput, "directory_tree", "", "path is required"), nil)
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 3
	}
	if p.MaxDepth > s.cfg.Limits.MaxDepth {
		p.MaxDepth = s.cfg.Limits.MaxDepth
	}

	tree, err := listing.Tree(ctx, s.sb, p.Path, p.MaxDepth, p.IncludeHidden)
	if err != nil {
		return s.errorResult("directory_tree", err, s.suggestionsFor(err, p.Path))
	}
	return s.jsonResult(tree)
}

type searchContentParams struct {
	Path          string   `json:"path"`
	Pattern       string   `json:"pattern"`
	Regex         bool     `json:"regex"`
	CaseSensitive bool     `json:"case_sensitive"`
	WholeWord     bool     `json:"whole_word"`
	Include       string   `json:"include"`
	Exclude       []string `json:"exclude"`
	IncludeHidden bool     `json:"include_hidden"`
	ContextLines  int      `json:"context_lines"`
	MaxResults    int      `json:"max_results"`
}

func (s *Server) handleSearchContent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p searchContentParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("search_content", fserr.New(fserr.KindInvalidInput, "search_content", "", "invalid parameters: "+err.Error()), nil)
	}
	if p.Path == "" || p.Pattern == "" {
		return s.errorResult("search_content", fserr.New(fserr.KindInvalidInput, "search_content", "", "path and pattern are required"), nil)
	}

	limits := s.cfg.Limits
	maxResults := p.MaxResults
	if maxResults <= 0 || maxResults > limits.MaxResults {
		maxResults = limits.MaxResults
	}
	contextLines := p.ContextLines
	if contextLines > limits.MaxContextLines {
		contextLines = limits.MaxContextLines
	}

	excludes := append(append([]string(nil), s.cfg.Exclude...), p.Exclude...)
	resp, err := s.orch.Search(ctx, search.Request{
		Base:          p.Path,
		Pattern:       p.Pattern,
		Literal:       !p.Regex,
		CaseSensitive: p.CaseSensitive,
		WholeWord:     p.WholeWord,
		Include:       p.Include,
		Excludes:      excludes,
		IncludeHidden: p.IncludeHidden,
		ContextLines:  contextLines,
		MaxResults:    maxResults,
		MaxFiles:      limits.MaxFilesScanned,
		MaxFileSize:   limits.MaxFileSize,
		MaxDepth:      limits.MaxDepth,
		Timeout:       time.Duration(limits.SearchTimeoutSec) * time.Second,
	})
	if err != nil {
		s.log.WithError(err).Debugf("search_content %q under %s", p.Pattern, p.Path)
		return s.errorResult("search_content", err, s.suggestionsFor(err, p.Path))
	}
	return s.jsonResult(resp)
}

type findFilesParams struct {
	Path          string   `json:"path"`
	Pattern       string   `json:"pattern"`
	Exclude       []string `json:"exclude"`
	IncludeHidden bool     `json:"include_hidden"`
	MaxResults    int      `json:"max_results"`
}

func (s *Server) handleFindFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p findFilesParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("find_files", fserr.New(fserr.KindInvalidInput, "find_files", "", "invalid parameters: "+err.Error()), nil)
	}
	if p.Path == "" || p.Pattern == "" {
		return s.errorResult("find_files", fserr.New(fserr.KindInvalidInput, "find_files", "", "path and pattern are required"), nil)
	}
	if !traverse.ValidGlob(p.Pattern) {
		return s.errorResult("find_files", fserr.New(fserr.KindInvalidPattern, "find_files", p.Pattern, "malformed glob pattern"), nil)
	}
	if p.MaxResults <= 0 {
		p.MaxResults = findFilesDefaultMax
	}

	resolved, err := s.sb.Resolve(p.Path)
	if err != nil {
		return s.errorResult("find_files", err, s.suggestionsFor(err, p.Path))
	}

	excludes := append(append([]string(nil), s.cfg.Exclude...), p.Exclude...)
	var paths []string
	truncated := false
	stats, err := traverse.Enumerate(ctx, s.sb, resolved.ResolvedPath, traverse.Options{
		Pattern:       p.Pattern,
		Excludes:      excludes,
		IncludeHidden: p.IncludeHidden,
		MaxDepth:      s.cfg.Limits.MaxDepth,
		Concurrency:   s.cfg.Limits.Concurrency,
	}, func(e traverse.Entry) bool {
		if len(paths) >= p.MaxResults {
			truncated = true
			return false
		}
		paths = append(paths, e.Path)
		return true
	})
	if err != nil {
		return s.errorResult("find_files", err, nil)
	}

	return s.jsonResult(map[string]any{
		"files":               paths,
		"count":               len(paths),
		"truncated":           truncated,
		"skippedInaccessible": stats.SkippedInaccessible,
		"skippedSensitive":    stats.SkippedSensitive,
	})
}

type getFileInfoParams struct {
	Path string `json:"path"`
}

func (s *Server) handleGetFileInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p getFileInfoParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("get_file_info", fserr.New(fserr.KindInvalidInput, "get_file_info", "", "invalid parameters: "+err.Error()), nil)
	}
	if p.Path == "" {
		return s.errorResult("get_file_info", fserr.New(fserr.KindInvalidInput, "get_file_info", "", "path is required"), nil)
	}

	info, err := reader.Stat(s.sb, p.Path, s.cfg.Limits.MaxFileSize)
	if err != nil {
		return s.errorResult("get_file_info", err, s.suggestionsFor(err, p.Path))
	}
	return s.jsonResult(info)
}

func (s *Server) handleListAllowedRoots(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.jsonResult(map[string]any{"roots": s.sb.AllowedRoots()})
}

type readResourceParams struct {
	ID string `json:"id"`
}

func (s *Server) handleReadResource(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p readResourceParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return s.errorResult("read_resource", fserr.New(fserr.KindInvalidInput, "read_resource", "", "invalid parameters: "+err.Error()), nil)
	}
	entry, ok := s.store.Get(p.ID)
	if !ok {
		return s.errorResult("read_resource", fserr.New(fserr.KindNotFound, "read_resource", p.ID, "resource not found or already evicted"), nil)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(entry.Data)}},
	}, nil
}
