package filetype

import (
	"bytes"
	"path/filepath"
	"strings"
)

// SniffLen is how much of a file's head is inspected for binary detection
// and magic-byte checks.
const SniffLen = 8 * 1024

// magicBytes maps well-known file signatures to MIME types. Checked before
// the extension table so a renamed binary is still detected.
var magicBytes = []struct {
	prefix []byte
	mime   string
}{
	{[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{0x47, 0x49, 0x46, 0x38}, "image/gif"},
	{[]byte{0x25, 0x50, 0x44, 0x46, 0x2D}, "application/pdf"},
	{[]byte{0x50, 0x4B, 0x03, 0x04}, "application/zip"},
	{[]byte{0x1F, 0x8B}, "application/gzip"},
	{[]byte{0x7F, 0x45, 0x4C, 0x46}, "application/x-elf"},
	{[]byte{0x4D, 0x5A}, "application/x-msdownload"},
}

// extMIME maps common extensions to MIME types for files whose head carries
// no signature (nearly all text).
var extMIME = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
	".xml":  "application/xml",
	".html": "text/html",
	".css":  "text/css",
	".csv":  "text/csv",
	".go":   "text/x-go",
	".py":   "text/x-python",
	".js":   "text/javascript",
	".ts":   "text/typescript",
	".rs":   "text/x-rust",
	".java": "text/x-java",
	".c":    "text/x-c",
	".h":    "text/x-c",
	".cpp":  "text/x-c++",
	".sh":   "text/x-shellscript",
	".sql":  "application/sql",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".zip":  "application/zip",
	".gz":   "application/gzip",
}

// DetectMIME guesses a MIME type from the file head and extension. The head
// may be shorter than SniffLen or empty.
func DetectMIME(path string, head []byte) string {
	for _, m := range magicBytes {
		if bytes.HasPrefix(head, m.prefix) {
			return m.mime
		}
	}
	if mime, ok := extMIME[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	if IsBinary(head) {
		return "application/octet-stream"
	}
	return "text/plain"
}

// IsBinary reports whether data looks like binary content: any NUL byte, or
// more than 30% non-printable bytes. Empty data is treated as text.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	nonPrintable := 0
	for _, b := range data {
		// Control characters other than tab/LF/CR, plus DEL.
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > 0.3
}
