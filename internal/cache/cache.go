// Package cache provides the advisory enrichment cache keyed by a case's
// neutral citation. A miss, or an unavailable backend, always degrades to
// "invoke enrichment"; it never fails the pipeline.
package cache

import "context"

// Store is the cache interface consumed by the enrichment gate.
type Store interface {
	// Get returns the cached enrichment payload for a citation, if present.
	Get(ctx context.Context, citation string) ([]byte, bool)
	// Set stores the enrichment payload for a citation. Errors are surfaced
	// so callers can log them, but must never abort the run.
	Set(ctx context.Context, citation string, value []byte) error
}

// Nop is a Store that caches nothing: every lookup is a miss. Used when the
// cache backend is configured off.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte) error  { return nil }
