package resource

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	s := NewStore(4)
	id := s.Put([]byte("payload"), "text/plain")
	require.NotEmpty(t, id)

	e, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), e.Data)
	assert.Equal(t, "text/plain", e.MIME)
}

func TestPutDeduplicates(t *testing.T) {
	s := NewStore(4)
	a := s.Put([]byte("same"), "text/plain")
	b := s.Put([]byte("same"), "text/plain")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, s.Len())
}

func TestEvictionOldestFirst(t *testing.T) {
	s := NewStore(3)
	first := s.Put([]byte("one"), "")
	s.Put([]byte("two"), "")
	s.Put([]byte("three"), "")
	s.Put([]byte("four"), "")

	assert.Equal(t, 3, s.Len())
	_, ok := s.Get(first)
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestEvictionKeepsCapacityUnderChurn(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 50; i++ {
		s.Put([]byte(fmt.Sprintf("payload-%d", i)), "")
	}
	assert.Equal(t, 5, s.Len())
}

func TestGetUnknownID(t *testing.T) {
	s := NewStore(2)
	_, ok := s.Get("res-doesnotexist")
	assert.False(t, ok)
}
