// Package mcp exposes the filesystem core as MCP tools over stdio.
package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/j0hanz/fscontext/internal/config"
	"github.com/j0hanz/fscontext/internal/resource"
	"github.com/j0hanz/fscontext/internal/sandbox"
	"github.com/j0hanz/fscontext/internal/search"
)

const serverVersion = "0.1.0"

// Server wires the core packages behind the MCP tool surface.
type Server struct {
	sb          *sandbox.Sandbox
	cfg         *config.Config
	orch        *search.Orchestrator
	store       *resource.Store
	log         *DiagnosticLogger
	inlineBytes int

	server *mcp.Server
}

// NewServer builds the tool server. The sandbox's roots must already be
// set; an empty root set is legal and fails every call closed.
func NewServer(sb *sandbox.Sandbox, cfg *config.Config, log *DiagnosticLogger) *Server {
	s := &Server{
		sb:          sb,
		cfg:         cfg,
		orch:        search.New(sb, cfg.Limits.Workers),
		store:       resource.NewStore(resource.DefaultCapacity),
		log:         log,
		inlineBytes: cfg.Limits.InlineBytes,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "fscontext",
		Version: serverVersion,
	}, nil)
	s.registerTools()
	return s
}

// Run serves the MCP protocol on stdio until ctx ends or the client hangs
// up. Nothing else may write to stdout while this runs.
func (s *Server) Run(ctx context.Context) error {
	s.log.Infof("serving MCP on stdio, roots=%v", s.sb.AllowedRoots())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	pathProp := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Description: desc}
	}

	s.server.AddTool(&mcp.Tool{
		Name:        "read_file",
		Description: "Read a file inside the allowed roots. Supports head/tail line ranges for large files.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": pathProp("File path, absolute or relative to the first allowed root"),
				"head": {Type: "integer", Description: "Return only the first N lines"},
				"tail": {Type: "integer", Description: "Return only the last N lines"},
			},
			Required: []string{"path"},
		},
	}, s.handleReadFile)

	s.server.AddTool(&mcp.Tool{
		Name:        "read_multiple_files",
		Description: "Read several files in one call. Per-file failures are reported inline; one bad path never fails the batch.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"paths": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "File paths to read",
				},
			},
			Required: []string{"paths"},
		},
	}, s.handleReadMultipleFiles)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_directory",
		Description: "List a directory's immediate children with sizes and modification times.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":           pathProp("Directory path"),
				"include_hidden": {Type: "boolean", Description: "Include dot-entries"},
				"sort_by":        {Type: "string", Description: "Sort order: name, size, or mtime", Enum: []any{"name", "size", "mtime"}},
			},
			Required: []string{"path"},
		},
	}, s.handleListDirectory)

	s.server.AddTool(&mcp.Tool{
		Name:        "directory_tree",
		Description: "Render a nested view of a directory subtree, bounded by depth and entry count.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":           pathProp("Directory path"),
				"max_depth":      {Type: "integer", Description: "Levels to descend (default 3)"},
				"include_hidden": {Type: "boolean", Description: "Include dot-entries"},
			},
			Required: []string{"path"},
		},
	}, s.handleDirectoryTree)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_content",
		Description: "Search file contents under a directory. Literal by default; regex, whole-word, and case-sensitive modes available. Returns matches with context plus a summary with counts and stoppedReason.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":           pathProp("Directory (or single file) to search"),
				"pattern":        {Type: "string", Description: "Text or regular expression to find"},
				"regex":          {Type: "boolean", Description: "Treat pattern as a regular expression"},
				"case_sensitive": {Type: "boolean", Description: "Match case exactly"},
				"whole_word":     {Type: "boolean", Description: "Match whole words only"},
				"include":        {Type: "string", Description: "Glob filter for candidate files, e.g. **/*.go"},
				"exclude": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Globs to skip, e.g. node_modules/**",
				},
				"include_hidden": {Type: "boolean", Description: "Search dot-files and dot-directories"},
				"context_lines":  {Type: "integer", Description: "Context lines around each match (max 20)"},
				"max_results":    {Type: "integer", Description: "Match budget for the whole search"},
			},
			Required: []string{"path", "pattern"},
		},
	}, s.handleSearchContent)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_files",
		Description: "Find files by name glob under a directory, e.g. **/*_test.go.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":    pathProp("Directory to enumerate"),
				"pattern": {Type: "string", Description: "Doublestar glob matched against the relative path"},
				"exclude": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Globs to skip",
				},
				"include_hidden": {Type: "boolean", Description: "Include dot-entries"},
				"max_results":    {Type: "integer", Description: "Entry budget (default 1000)"},
			},
			Required: []string{"path", "pattern"},
		},
	}, s.handleFindFiles)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_file_info",
		Description: "Stat a path: size, mode, times, MIME type, and content checksum.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": pathProp("Path to stat"),
			},
			Required: []string{"path"},
		},
	}, s.handleGetFileInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_allowed_roots",
		Description: "List the directories this server is allowed to access.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleListAllowedRoots)

	s.server.AddTool(&mcp.Tool{
		Name:        "read_resource",
		Description: "Fetch an oversized result previously returned as a resourceId reference.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"id": {Type: "string", Description: "Resource id from a prior response"},
			},
			Required: []string{"id"},
		},
	}, s.handleReadResource)
}
