package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full server configuration. Defaults are resolved once at
// load time; the rest of the code never re-applies defaults.
type Config struct {
	// Roots are the directories the server is allowed to touch. Paths are
	// made absolute during validation. An empty list means every request
	// fails closed until roots arrive via CLI flags or MCP negotiation.
	Roots []string `toml:"roots"`

	// AllowCwd adds the process working directory to the allowed roots.
	AllowCwd bool `toml:"allow_cwd"`

	// Exclude holds glob patterns skipped during traversal in addition to
	// per-request excludes (e.g. "**/node_modules/**").
	Exclude []string `toml:"exclude"`

	// SensitivePatterns are filename globs blocked by the sensitive-path
	// policy layer. Replaces the built-in defaults when set.
	SensitivePatterns []string `toml:"sensitive_patterns"`

	// AllowSensitive disables the sensitive-path policy entirely.
	AllowSensitive bool `toml:"allow_sensitive"`

	Limits Limits `toml:"limits"`
}

// Limits bounds every operation. Zero values are replaced with defaults by
// Validate.
type Limits struct {
	// MaxFileSize is the per-file byte budget for reads and scans.
	MaxFileSize int64 `toml:"max_file_size"`

	// MaxResults caps matches per search.
	MaxResults int `toml:"max_results"`

	// MaxFilesScanned caps the number of files one search may open.
	MaxFilesScanned int `toml:"max_files_scanned"`

	// SearchTimeoutSec is the internal per-search deadline in seconds.
	SearchTimeoutSec int `toml:"search_timeout_sec"`

	// Concurrency caps in-flight traversal tasks.
	Concurrency int `toml:"concurrency"`

	// Workers is the scan worker pool size. Below 2 the orchestrator scans
	// sequentially.
	Workers int `toml:"workers"`

	// MaxContextLines caps requested context lines around a match.
	MaxContextLines int `toml:"max_context_lines"`

	// MaxDepth bounds directory recursion.
	MaxDepth int `toml:"max_depth"`

	// InlineBytes is the largest payload returned inline before the result
	// is diverted to the resource store.
	InlineBytes int `toml:"inline_bytes"`
}

// DefaultSensitivePatterns is the built-in sensitive-path denylist.
var DefaultSensitivePatterns = []string{
	".env", ".env.*", "*.pem", "*.key", "id_rsa*", "id_ed25519*",
	"*.p12", "*.pfx", "credentials*", "secrets*", ".netrc", ".npmrc",
}

// Default returns a configuration with every limit populated and no roots.
func Default() *Config {
	return &Config{
		SensitivePatterns: append([]string(nil), DefaultSensitivePatterns...),
		Limits: Limits{
			MaxFileSize:      10 * 1024 * 1024,
			MaxResults:       1000,
			MaxFilesScanned:  10000,
			SearchTimeoutSec: 30,
			Concurrency:      16,
			Workers:          defaultWorkers(),
			MaxContextLines:  20,
			MaxDepth:         32,
			InlineBytes:      48 * 1024,
		},
	}
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		n = 8
	}
	return n
}

// Load reads a TOML config file and applies defaults for anything unset.
// A missing file is not an error: defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Unmarshal over defaults so absent keys keep their default values.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if len(cfg.SensitivePatterns) == 0 {
		cfg.SensitivePatterns = append([]string(nil), DefaultSensitivePatterns...)
	}
	return cfg, nil
}

// Validate normalizes the configuration in place: roots become absolute,
// non-positive limits fall back to defaults, and nonsensical values are
// rejected.
func (c *Config) Validate() error {
	def := Default()

	for i, root := range c.Roots {
		if root == "" {
			return fmt.Errorf("roots[%d] is empty", i)
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("roots[%d] %q: %w", i, root, err)
		}
		c.Roots[i] = abs
	}

	if c.AllowCwd {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("allow_cwd: %w", err)
		}
		c.Roots = append(c.Roots, cwd)
	}

	l := &c.Limits
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = def.Limits.MaxFileSize
	}
	if l.MaxResults <= 0 {
		l.MaxResults = def.Limits.MaxResults
	}
	if l.MaxFilesScanned <= 0 {
		l.MaxFilesScanned = def.Limits.MaxFilesScanned
	}
	if l.SearchTimeoutSec <= 0 {
		l.SearchTimeoutSec = def.Limits.SearchTimeoutSec
	}
	if l.Concurrency <= 0 {
		l.Concurrency = def.Limits.Concurrency
	}
	if l.Workers < 0 {
		return fmt.Errorf("limits.workers must be >= 0, got %d", l.Workers)
	}
	if l.Workers == 0 {
		l.Workers = def.Limits.Workers
	}
	if l.MaxContextLines <= 0 {
		l.MaxContextLines = def.Limits.MaxContextLines
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = def.Limits.MaxDepth
	}
	if l.InlineBytes <= 0 {
		l.InlineBytes = def.Limits.InlineBytes
	}
	return nil
}
