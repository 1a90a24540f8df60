package mcp

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// DiagnosticLogger carries all diagnostic output. In serve mode everything
// goes to a timestamped file under the OS temp directory: the MCP protocol
// owns stdio, and a single stray write corrupts the session. In CLI mode
// stderr is fine.
type DiagnosticLogger struct {
	*logrus.Logger
	file     *os.File
	filePath string
}

// NewDiagnosticLogger builds the logger. Failure to create the log file
// must never prevent startup; logging degrades to discard instead.
func NewDiagnosticLogger(serveMode bool) *DiagnosticLogger {
	dl := &DiagnosticLogger{Logger: logrus.New()}
	dl.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if !serveMode {
		dl.SetOutput(os.Stderr)
		return dl
	}

	logDir := filepath.Join(os.TempDir(), "fscontext-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		logDir = filepath.Join(home, ".fscontext-logs")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			dl.SetOutput(io.Discard)
			return dl
		}
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("serve-%s.log", time.Now().Format("2006-01-02T150405")))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		dl.SetOutput(io.Discard)
		return dl
	}

	dl.file = file
	dl.filePath = logPath
	dl.SetOutput(file)
	return dl
}

// LogPath returns the diagnostic file path, empty in CLI mode.
func (dl *DiagnosticLogger) LogPath() string {
	if dl == nil {
		return ""
	}
	return dl.filePath
}

// Close flushes and closes the log file if one is open.
func (dl *DiagnosticLogger) Close() error {
	if dl == nil || dl.file == nil {
		return nil
	}
	return dl.file.Close()
}
