package enrich

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/LinfanS/court-transcripts-pipeline/internal/cache"
	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
)

// Gate caches enrichment results by citation so the expensive summarization
// call runs at most once per citation per cache lifetime. The cache is
// advisory: lookup failures degrade to a miss and store failures are logged,
// never propagated.
type Gate struct {
	cache      cache.Store
	summarizer Summarizer
	group      singleflight.Group
}

// NewGate wraps a summarizer with the citation-keyed cache.
func NewGate(store cache.Store, s Summarizer) *Gate {
	return &Gate{cache: store, summarizer: s}
}

// Enrich returns the enrichment for a citation, from cache when possible.
// Concurrent calls for the same citation share one summarization call, so
// two workers cannot both miss the cache for the same case.
func (g *Gate) Enrich(ctx context.Context, citation, transcript string) (*model.Enrichment, error) {
	v, err, _ := g.group.Do(citation, func() (any, error) {
		if raw, found := g.cache.Get(ctx, citation); found {
			var e model.Enrichment
			if err := json.Unmarshal(raw, &e); err == nil {
				zap.L().Debug("enrich: cache hit", zap.String("citation", citation))
				return &e, nil
			}
			// A corrupt entry is treated as a miss and overwritten below.
			zap.L().Warn("enrich: corrupt cache entry", zap.String("citation", citation))
		}

		e, err := g.summarizer.Summarize(ctx, transcript)
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: summarize %s", citation)
		}

		raw, err := json.Marshal(e)
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: marshal enrichment %s", citation)
		}
		if err := g.cache.Set(ctx, citation, raw); err != nil {
			zap.L().Warn("enrich: cache store failed",
				zap.String("citation", citation),
				zap.Error(err),
			)
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Enrichment), nil
}
