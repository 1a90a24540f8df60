package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/j0hanz/fscontext/internal/fserr"
)

// Resolved is the outcome of validating one requested path. ResolvedPath is
// the canonical path actually used for I/O; it is guaranteed to sit inside
// an allowed root at the moment Resolve returned. Resolved values are never
// cached across calls: the filesystem can change between calls, so every
// path is re-validated every time.
type Resolved struct {
	RequestedPath string
	ResolvedPath  string
	IsSymlink     bool
}

// Sandbox validates every path the server touches against the current
// allowed-root set. The root set is replaced wholesale, never mutated, so
// concurrent validations read a consistent snapshot.
type Sandbox struct {
	roots             *rootHolder
	sensitivePatterns []string
	allowSensitive    bool
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithSensitivePatterns sets the filename globs blocked by the policy layer.
func WithSensitivePatterns(patterns []string) Option {
	return func(s *Sandbox) {
		s.sensitivePatterns = append([]string(nil), patterns...)
	}
}

// WithAllowSensitive disables the sensitive-path policy.
func WithAllowSensitive(allow bool) Option {
	return func(s *Sandbox) {
		s.allowSensitive = allow
	}
}

// New creates a Sandbox with an empty root set; every resolution fails
// closed until SetAllowedRoots is called.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{roots: newRootHolder()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAllowedRoots replaces the entire allowed-root set atomically.
func (s *Sandbox) SetAllowedRoots(dirs []string) error {
	rs, err := NewRootSet(dirs)
	if err != nil {
		return err
	}
	s.roots.replace(rs)
	return nil
}

// AllowedRoots returns the current root set's paths.
func (s *Sandbox) AllowedRoots() []string {
	return s.roots.get().Roots()
}

// Resolve validates a caller-supplied path and returns the canonical path to
// use for I/O. Validation order follows the containment contract: input
// syntax, fail-closed on empty roots, canonicalization, segment-wise
// containment, then the sensitive-path policy.
func (s *Sandbox) Resolve(requested string) (Resolved, error) {
	const op = "resolve"

	if strings.TrimSpace(requested) == "" {
		return Resolved{}, fserr.New(fserr.KindInvalidInput, op, requested, "empty path")
	}
	if strings.ContainsRune(requested, 0) {
		return Resolved{}, fserr.New(fserr.KindInvalidInput, op, "", "path contains NUL byte")
	}
	if isDriveRelative(requested) {
		return Resolved{}, fserr.New(fserr.KindInvalidInput, op, requested, "drive-relative path is not supported")
	}

	rs := s.roots.get()
	if rs.Empty() {
		return Resolved{}, fserr.New(fserr.KindAccessDenied, op, requested, "no allowed roots configured")
	}

	// Relative paths resolve against the first allowed root, never against
	// the process working directory.
	abs := requested
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(rs.First(), abs)
	}
	abs = filepath.Clean(abs)

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Resolved{}, fserr.MapOS(op, abs, err)
	}

	isSymlink := canonical != abs && hasSymlinkSegment(abs)

	if !rs.Contains(canonical) {
		kind := fserr.KindAccessDenied
		if isSymlink {
			kind = fserr.KindSymlinkNotAllowed
		}
		return Resolved{}, fserr.New(kind, op, requested, "path escapes the allowed directories")
	}

	if err := s.checkSensitive(op, canonical); err != nil {
		return Resolved{}, err
	}

	return Resolved{
		RequestedPath: requested,
		ResolvedPath:  canonical,
		IsSymlink:     isSymlink,
	}, nil
}

// ContainsResolved is the cheap containment check for traversal entries that
// are already known not to be symlinks: the path has been produced by
// joining a previously resolved directory with a readdir entry name, so a
// segment-wise prefix comparison is sufficient and no extra I/O is needed.
func (s *Sandbox) ContainsResolved(path string) bool {
	return s.roots.get().Contains(filepath.Clean(path))
}

// Sensitive reports whether the path's base name matches the sensitive-file
// denylist. Exposed so traversal can count skipped entries.
func (s *Sandbox) Sensitive(path string) bool {
	if s.allowSensitive {
		return false
	}
	base := filepath.Base(path)
	for _, pattern := range s.sensitivePatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *Sandbox) checkSensitive(op, canonical string) error {
	if s.Sensitive(canonical) {
		return fserr.New(fserr.KindAccessDenied, op, canonical, "path matches the sensitive-file denylist")
	}
	return nil
}

// hasSymlinkSegment lstats each prefix of the cleaned absolute path and
// reports whether any segment is a symlink. Only called after EvalSymlinks
// succeeded, so the segments exist.
func hasSymlinkSegment(abs string) bool {
	sep := string(filepath.Separator)
	parts := strings.Split(strings.TrimPrefix(abs, sep), sep)
	prefix := sep
	for _, part := range parts {
		prefix = filepath.Join(prefix, part)
		info, err := os.Lstat(prefix)
		if err != nil {
			return false
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

// isDriveRelative detects the Windows drive-relative form "C:temp" (a drive
// letter with no separator after the colon). The check is pure string
// inspection and harmless on POSIX, so it runs on every platform.
func isDriveRelative(p string) bool {
	if len(p) < 3 {
		return false
	}
	c := p[0]
	isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return isAlpha && p[1] == ':' && p[2] != '/' && p[2] != '\\'
}
