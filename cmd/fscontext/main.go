// Command fscontext serves sandboxed filesystem access to AI agents over
// the Model Context Protocol, plus debug subcommands that exercise the same
// core directly from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/j0hanz/fscontext/internal/config"
	"github.com/j0hanz/fscontext/internal/listing"
	"github.com/j0hanz/fscontext/internal/mcp"
	"github.com/j0hanz/fscontext/internal/sandbox"
	"github.com/j0hanz/fscontext/internal/search"
)

var version = "0.1.0"

// loadConfigWithOverrides loads the TOML config and applies CLI flags on
// top: flags always win over the file.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if roots := c.StringSlice("root"); len(roots) > 0 {
		cfg.Roots = roots
	}
	if c.Bool("allow-cwd") {
		cfg.AllowCwd = true
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludes...)
	}
	if c.Bool("allow-sensitive") {
		cfg.AllowSensitive = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSandbox(cfg *config.Config) (*sandbox.Sandbox, error) {
	sb := sandbox.New(
		sandbox.WithSensitivePatterns(cfg.SensitivePatterns),
		sandbox.WithAllowSensitive(cfg.AllowSensitive),
	)
	if len(cfg.Roots) > 0 {
		if err := sb.SetAllowedRoots(cfg.Roots); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	app := &cli.App{
		Name:    "fscontext",
		Usage:   "Sandboxed filesystem search and reading for AI agents (MCP)",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file path",
			},
			&cli.StringSliceFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Allowed root directory (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "allow-cwd",
				Usage: "Add the current working directory to the allowed roots",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Glob patterns to skip during traversal (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "allow-sensitive",
				Usage: "Disable the sensitive-path denylist (.env, *.pem, ...)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the MCP server on stdio",
				Action: serveCommand,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a path against the sandbox and print the outcome",
				ArgsUsage: "<path>",
				Action:    resolveCommand,
			},
			{
				Name:      "list",
				Usage:     "List a directory through the sandbox",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "hidden", Usage: "Include dot-entries"},
					&cli.StringFlag{Name: "sort", Usage: "Sort order: name, size, or mtime", Value: listing.SortByName},
				},
				Action: listCommand,
			},
			{
				Name:      "search",
				Usage:     "Search file contents under a directory",
				ArgsUsage: "<path> <pattern>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "regex", Usage: "Treat pattern as a regular expression"},
					&cli.BoolFlag{Name: "case-sensitive", Aliases: []string{"s"}, Usage: "Match case exactly"},
					&cli.BoolFlag{Name: "word", Aliases: []string{"w"}, Usage: "Match whole words only"},
					&cli.StringFlag{Name: "include", Usage: "Glob filter for candidate files"},
					&cli.IntFlag{Name: "context", Aliases: []string{"C"}, Usage: "Context lines around each match"},
					&cli.IntFlag{Name: "max", Usage: "Match budget"},
					&cli.BoolFlag{Name: "hidden", Usage: "Search dot-files"},
				},
				Action: searchCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	sb, err := newSandbox(cfg)
	if err != nil {
		return err
	}

	log := mcp.NewDiagnosticLogger(true)
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(sb, cfg, log)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func resolveCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: fscontext resolve <path>", 2)
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	sb, err := newSandbox(cfg)
	if err != nil {
		return err
	}

	resolved, err := sb.Resolve(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(resolved)
}

func listCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: fscontext list <path>", 2)
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	sb, err := newSandbox(cfg)
	if err != nil {
		return err
	}

	l, err := listing.ListDirectory(c.Context, sb, c.Args().First(), listing.Options{
		IncludeHidden: c.Bool("hidden"),
		SortBy:        c.String("sort"),
	})
	if err != nil {
		return err
	}
	return printJSON(l)
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: fscontext search <path> <pattern>", 2)
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	sb, err := newSandbox(cfg)
	if err != nil {
		return err
	}

	limits := cfg.Limits
	maxResults := c.Int("max")
	if maxResults <= 0 || maxResults > limits.MaxResults {
		maxResults = limits.MaxResults
	}

	orch := search.New(sb, limits.Workers)
	resp, err := orch.Search(c.Context, search.Request{
		Base:          c.Args().Get(0),
		Pattern:       c.Args().Get(1),
		Literal:       !c.Bool("regex"),
		CaseSensitive: c.Bool("case-sensitive"),
		WholeWord:     c.Bool("word"),
		Include:       c.String("include"),
		Excludes:      cfg.Exclude,
		IncludeHidden: c.Bool("hidden"),
		ContextLines:  c.Int("context"),
		MaxResults:    maxResults,
		MaxFiles:      limits.MaxFilesScanned,
		MaxFileSize:   limits.MaxFileSize,
		MaxDepth:      limits.MaxDepth,
		Timeout:       time.Duration(limits.SearchTimeoutSec) * time.Second,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}
