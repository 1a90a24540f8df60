package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary(nil))
	assert.False(t, IsBinary([]byte("package main\n\nfunc main() {}\n")))
	assert.True(t, IsBinary([]byte{'a', 0x00, 'b'}))
	assert.True(t, IsBinary([]byte{0x01, 0x02, 0x03, 0x04, 'a'}))

	// Tabs, newlines and CR are printable for our purposes.
	assert.False(t, IsBinary([]byte("a\tb\r\nc")))
}

func TestDetectMIME(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0xFF}
	assert.Equal(t, "image/png", DetectMIME("shot.png", png))

	// Magic bytes win over a lying extension.
	assert.Equal(t, "image/png", DetectMIME("notes.txt", png))

	assert.Equal(t, "text/x-go", DetectMIME("main.go", []byte("package main")))
	assert.Equal(t, "text/plain", DetectMIME("LICENSE", []byte("MIT License")))
	assert.Equal(t, "application/octet-stream", DetectMIME("blob", []byte{0x00, 0x01}))
}
