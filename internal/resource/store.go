// Package resource holds oversized tool results in memory so a response can
// reference them by id instead of inlining the whole payload.
package resource

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultCapacity bounds how many overflow payloads are retained.
const DefaultCapacity = 64

// Entry is one stored payload.
type Entry struct {
	ID   string
	MIME string
	Data []byte
}

// Store is an id-keyed in-memory overflow cache with oldest-first eviction.
// It lives for the server process only; nothing is persisted.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

// NewStore returns a store keeping at most capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Put stores data and returns its content-derived id. Storing identical
// content twice returns the same id without duplicating the entry.
func (s *Store) Put(data []byte, mime string) string {
	id := fmt.Sprintf("res-%016x", xxhash.Sum64(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return id
	}
	for s.order.Len() >= s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*Entry).ID)
	}

	e := &Entry{ID: id, MIME: mime, Data: data}
	s.entries[id] = s.order.PushBack(e)
	return id
}

// Get returns the entry for id, if still resident.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*Entry), true
}

// Len reports the number of resident entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
