package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Store. It only deduplicates enrichment calls
// within a single pipeline invocation, which is still worthwhile when the
// same citation appears on more than one listing page.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory creates an in-memory cache with the given entry TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{cache: gocache.New(ttl, 10*time.Minute)}
}

func (m *Memory) Get(_ context.Context, citation string) ([]byte, bool) {
	if v, found := m.cache.Get(citation); found {
		return v.([]byte), true
	}
	return nil, false
}

func (m *Memory) Set(_ context.Context, citation string, value []byte) error {
	m.cache.Set(citation, value, gocache.DefaultExpiration)
	return nil
}
