package fserr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// Kind classifies a filesystem-layer failure into a stable, caller-visible
// category. Kinds are the contract: handlers render them, tests assert on
// them, and per-item scan failures are bucketed by them.
type Kind string

const (
	KindAccessDenied      Kind = "access_denied"
	KindNotFound          Kind = "not_found"
	KindNotFile           Kind = "not_file"
	KindNotDirectory      Kind = "not_directory"
	KindTooLarge          Kind = "too_large"
	KindTimeout           Kind = "timeout"
	KindInvalidPattern    Kind = "invalid_pattern"
	KindInvalidInput      Kind = "invalid_input"
	KindPermissionDenied  Kind = "permission_denied"
	KindSymlinkNotAllowed Kind = "symlink_not_allowed"
	KindUnknown           Kind = "unknown"
)

// hints maps each kind to a generic remediation hint shown to callers.
var hints = map[Kind]string{
	KindAccessDenied:      "path is outside the allowed directories; check list_allowed_roots",
	KindNotFound:          "verify the path exists and is spelled correctly",
	KindNotFile:           "the operation requires a regular file",
	KindNotDirectory:      "the operation requires a directory",
	KindTooLarge:          "file exceeds the configured size limit; use a ranged read",
	KindTimeout:           "operation exceeded its deadline; narrow the search or raise the timeout",
	KindInvalidPattern:    "simplify the pattern or use literal mode",
	KindInvalidInput:      "check the request arguments",
	KindPermissionDenied:  "the server process lacks OS permission for this path",
	KindSymlinkNotAllowed: "the symlink target is outside the allowed directories",
	KindUnknown:           "",
}

// PathError is the error type raised by the sandbox, matcher, and file
// adapters. It carries everything a caller needs to render a diagnostic:
// stable kind, the operation that failed, the offending path when known,
// and a remediation hint.
type PathError struct {
	Kind       Kind
	Op         string
	Path       string
	Message    string
	Underlying error
}

// New creates a PathError with an explicit kind and message.
func New(kind Kind, op, path, message string) *PathError {
	return &PathError{Kind: kind, Op: op, Path: path, Message: message}
}

// Wrap creates a PathError that preserves the underlying error for
// errors.Is/As chains.
func Wrap(kind Kind, op, path string, err error) *PathError {
	return &PathError{Kind: kind, Op: op, Path: path, Underlying: err}
}

// Error implements the error interface.
func (e *PathError) Error() string {
	msg := e.Message
	if msg == "" && e.Underlying != nil {
		msg = e.Underlying.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s (%s)", e.Op, e.Path, msg, e.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, msg, e.Kind)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Underlying
}

// Hint returns the generic remediation hint for the error's kind.
func (e *PathError) Hint() string {
	return hints[e.Kind]
}

// KindOf extracts the Kind from any error. Non-PathError values are
// classified through MapOS so OS errors read the same everywhere.
func KindOf(err error) Kind {
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return osKind(err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MapOS converts an error returned by the os package into a PathError with
// the taxonomy kind for its errno. Unmapped errors become KindUnknown with
// the original message preserved.
func MapOS(op, path string, err error) *PathError {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return pe
	}
	return Wrap(osKind(err), op, path, err)
}

func osKind(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOENT):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM):
		return KindPermissionDenied
	case errors.Is(err, syscall.ENOTDIR):
		return KindNotDirectory
	case errors.Is(err, syscall.EISDIR):
		return KindNotFile
	case errors.Is(err, syscall.ELOOP):
		return KindSymlinkNotAllowed
	case errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE):
		return KindUnknown
	default:
		return KindUnknown
	}
}
