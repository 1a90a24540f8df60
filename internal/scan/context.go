package scan

// ContextBuffer tracks surrounding lines while a file is streamed.
//
// The last capacity lines form the "before" context, held in a fixed ring.
// "After" context is collected through registered requests: each request owns
// a destination slice and a countdown; every pushed line is appended to all
// live requests until their countdown reaches zero. Requests all start with
// the same countdown, so they complete in registration order; a cursor marks
// the first live request instead of shifting the slice on every push.
type ContextBuffer struct {
	ring  []string
	count int
	next  int

	after  []afterRequest
	cursor int
}

type afterRequest struct {
	sink      *[]string
	remaining int
}

// NewContextBuffer returns a buffer keeping up to capacity lines of before
// context. Zero capacity is valid; SnapshotBefore then always returns nil.
func NewContextBuffer(capacity int) *ContextBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &ContextBuffer{ring: make([]string, capacity)}
}

// Push records line as seen. The line enters the before-context ring and is
// appended to every live after-request.
func (b *ContextBuffer) Push(line string) {
	if len(b.ring) > 0 {
		b.ring[b.next] = line
		b.next = (b.next + 1) % len(b.ring)
		if b.count < len(b.ring) {
			b.count++
		}
	}

	for i := b.cursor; i < len(b.after); i++ {
		req := &b.after[i]
		*req.sink = append(*req.sink, line)
		req.remaining--
	}
	for b.cursor < len(b.after) && b.after[b.cursor].remaining == 0 {
		b.after[b.cursor].sink = nil
		b.cursor++
	}
	if b.cursor == len(b.after) {
		b.after = b.after[:0]
		b.cursor = 0
	}
}

// SnapshotBefore returns the ring contents oldest to newest. Call it before
// pushing the matching line itself, or the match leaks into its own context.
func (b *ContextBuffer) SnapshotBefore() []string {
	if b.count == 0 {
		return nil
	}
	out := make([]string, 0, b.count)
	start := b.next - b.count
	if start < 0 {
		start += len(b.ring)
	}
	for i := 0; i < b.count; i++ {
		out = append(out, b.ring[(start+i)%len(b.ring)])
	}
	return out
}

// RequestAfter registers sink to receive the next n pushed lines.
func (b *ContextBuffer) RequestAfter(sink *[]string, n int) {
	if n <= 0 {
		return
	}
	b.after = append(b.after, afterRequest{sink: sink, remaining: n})
}

// PendingAfter reports how many after-requests are still collecting lines.
func (b *ContextBuffer) PendingAfter() int {
	return len(b.after) - b.cursor
}
