package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/cache"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// CachedRunner reuses the records of the last fully successful run while the document
// set is unchanged. A different set invalidates the previous entry before running.
type CachedRunner struct {
	next   Runner
	store  cache.Store
	logger *slog.Logger

	mu      sync.Mutex
	lastKey string
}

func NewCachedRunner(next Runner, store cache.Store, logger *slog.Logger) *CachedRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRunner{next: next, store: store, logger: logger}
}

func (c *CachedRunner) Run(ctx context.Context, docs []entity.Document) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cache.Key(docs)
	if c.lastKey != "" && c.lastKey != key {
		if err := c.store.Invalidate(ctx, c.lastKey); err != nil {
			c.logger.Warn("cache.invalidate.failed", "key", c.lastKey, "error", err)
		} else {
			c.logger.Info("cache.invalidated", "key", c.lastKey)
		}
	}
	c.lastKey = key

	recs, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache.get.failed", "key", key, "error", err)
	}
	if ok {
		c.logger.Info("cache.hit", "key", key, "records", len(recs))
		return Report{Records: recs, FromCache: true}, nil
	}

	rep, err := c.next.Run(ctx, docs)
	if err != nil {
		return rep, err
	}
	if len(rep.Records) > 0 && len(rep.Failed) == 0 {
		if err := c.store.Put(ctx, key, rep.Records); err != nil {
			c.logger.Warn("cache.put.failed", "key", key, "error", err)
		}
	}
	return rep, nil
}
