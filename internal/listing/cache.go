package listing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCacheKey = "resume-matcher:listings:pool"
	defaultCacheTTL = 10 * time.Minute
)

// CachedStore keeps a snapshot of the listing pool in Redis. Cache failures
// are logged and the underlying store is used instead.
type CachedStore struct {
	store  Store
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStore(store Store, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedStore{
		store:  store,
		client: client,
		key:    defaultCacheKey,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedStore) FetchRecords(ctx context.Context) ([]map[string]any, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err == nil {
			c.logger.Debug("listing pool served from cache", zap.Int("records", len(records)))
			return records, nil
		}
		c.logger.Warn("discarding unreadable listing cache", zap.String("key", c.key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("reading listing cache", zap.Error(err))
	}

	records, err := c.store.FetchRecords(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(records)
	if err != nil {
		c.logger.Warn("encoding listing cache", zap.Error(err))
		return records, nil
	}

	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("writing listing cache", zap.Error(err))
	}

	return records, nil
}

// SearchRecords bypasses the cache.
func (c *CachedStore) SearchRecords(ctx context.Context, keywords []string, limit int) ([]map[string]any, error) {
	searcher, ok := c.store.(Searcher)
	if !ok {
		return nil, ErrNoSearch
	}
	return searcher.SearchRecords(ctx, keywords, limit)
}

// Invalidate drops the cached pool so that the next fetch reads the store.
func (c *CachedStore) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
