package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextBufferBeforeAndAfter(t *testing.T) {
	// Lines A, B, MATCH, D, E with two context lines: before is [A, B] and
	// after is [D, E]. The snapshot happens before the match line is pushed
	// and the after-request is registered after, so the match line never
	// appears in its own context.
	buf := NewContextBuffer(2)
	buf.Push("A")
	buf.Push("B")

	before := buf.SnapshotBefore()
	buf.Push("MATCH")
	var after []string
	buf.RequestAfter(&after, 2)
	buf.Push("D")
	buf.Push("E")

	assert.Equal(t, []string{"A", "B"}, before)
	assert.Equal(t, []string{"D", "E"}, after)
	assert.Equal(t, 0, buf.PendingAfter())
}

func TestContextBufferRingOverwrite(t *testing.T) {
	buf := NewContextBuffer(3)
	for _, line := range []string{"1", "2", "3", "4", "5"} {
		buf.Push(line)
	}
	assert.Equal(t, []string{"3", "4", "5"}, buf.SnapshotBefore())
}

func TestContextBufferShortFile(t *testing.T) {
	buf := NewContextBuffer(5)
	buf.Push("only")
	assert.Equal(t, []string{"only"}, buf.SnapshotBefore())

	var after []string
	buf.RequestAfter(&after, 5)
	buf.Push("last")
	// File ends with the request unfinished; partial after context stands.
	assert.Equal(t, []string{"last"}, after)
	assert.Equal(t, 1, buf.PendingAfter())
}

func TestContextBufferZeroCapacity(t *testing.T) {
	buf := NewContextBuffer(0)
	buf.Push("A")
	assert.Nil(t, buf.SnapshotBefore())
	buf.RequestAfter(nil, 0)
	assert.Equal(t, 0, buf.PendingAfter())
}

func TestContextBufferOverlappingRequests(t *testing.T) {
	buf := NewContextBuffer(1)
	var a, b []string
	buf.RequestAfter(&a, 2)
	buf.Push("x")
	buf.RequestAfter(&b, 2)
	buf.Push("y")
	buf.Push("z")

	assert.Equal(t, []string{"x", "y"}, a)
	assert.Equal(t, []string{"y", "z"}, b)
	assert.Equal(t, 0, buf.PendingAfter())
}
