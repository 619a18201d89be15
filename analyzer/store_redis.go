package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore keeps entries in Redis so several instances share one cache.
// Keys expire with the cache TTL.
type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// redisEntry is the stored form of a cacheEntry. The raw category scores
// travel with the result so the status overall survives the round trip.
type redisEntry struct {
	Result      *AnalysisResult `json:"result"`
	Raw         [4]float64      `json:"raw"`
	ContentHash string          `json:"contentHash"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NewRedisCache returns a Cache whose entries live in Redis under keys
// starting with prefix.
func NewRedisCache(client redis.UniversalClient, prefix string, hasher Hasher, ttl time.Duration, logger *slog.Logger) *Cache {
	return newCache(&redisStore{client: client, prefix: prefix}, hasher, ttl, 0, logger)
}

func (r *redisStore) key(k string) string { return r.prefix + k }

func (r *redisStore) get(ctx context.Context, key string) (cacheEntry, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cacheEntry{}, false, nil
	}
	if err != nil {
		return cacheEntry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return cacheEntry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if stored.Result == nil {
		return cacheEntry{}, false, errors.New("decode cache entry: missing result")
	}
	stored.Result.raw = rawScores{
		performance:   stored.Raw[0],
		accessibility: stored.Raw[1],
		seo:           stored.Raw[2],
		bestPractices: stored.Raw[3],
	}
	return cacheEntry{
		result:      stored.Result,
		contentHash: stored.ContentHash,
		timestamp:   stored.Timestamp,
	}, true, nil
}

func (r *redisStore) peek(ctx context.Context, key string) (cacheEntry, bool, error) {
	return r.get(ctx, key)
}

func (r *redisStore) add(ctx context.Context, key string, entry cacheEntry, ttl time.Duration) error {
	raw := entry.result.raw
	data, err := json.Marshal(redisEntry{
		Result:      entry.result,
		Raw:         [4]float64{raw.performance, raw.accessibility, raw.seo, raw.bestPractices},
		ContentHash: entry.contentHash,
		Timestamp:   entry.timestamp,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *redisStore) remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *redisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

func (r *redisStore) len(ctx context.Context) (int, error) {
	keys, err := r.keys(ctx)
	return len(keys), err
}

func (r *redisStore) purge(ctx context.Context) error {
	keys, err := r.keys(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *redisStore) name() string { return "redis" }
