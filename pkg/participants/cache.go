package participants

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
)

const userNameKeyPrefix = "epadash:usernames:"

// DefaultCacheTTL bounds staleness of cached user names. Name changes are
// rare; fifteen minutes keeps repeated sync runs cheap without pinning stale
// data for long.
const DefaultCacheTTL = 15 * time.Minute

// CachedSource decorates a Source with a Redis cache for user name lookups.
// Cache failures degrade to the underlying source; a dead Redis never fails a
// sync run.
type CachedSource struct {
	inner  Source
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// NewCachedSource wraps inner with Redis-backed user name caching. A zero ttl
// falls back to DefaultCacheTTL.
func NewCachedSource(inner Source, client *redis.Client, ttl time.Duration, logger logging.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With(logging.F("component", "participant_cache")),
	}
}

// ListByReport delegates to the underlying source. Participant rows are
// per-report and read once per run, so caching them buys nothing.
func (c *CachedSource) ListByReport(ctx context.Context, reportID int64) ([]Candidate, error) {
	return c.inner.ListByReport(ctx, reportID)
}

// UserNames serves name variants from Redis where cached, fetching and
// caching the misses from the underlying source.
func (c *CachedSource) UserNames(ctx context.Context, ids []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	misses := ids
	if cached, err := c.readCache(ctx, ids); err != nil {
		c.logger.Warn("User name cache read failed, falling back to source", logging.Err(err))
	} else {
		misses = nil
		for _, id := range ids {
			if names, ok := cached[id]; ok {
				result[id] = names
			} else {
				misses = append(misses, id)
			}
		}
	}

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := c.inner.UserNames(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, names := range fetched {
		result[id] = names
	}

	if err := c.writeCache(ctx, fetched); err != nil {
		c.logger.Warn("User name cache write failed", logging.Err(err))
	}

	return result, nil
}

func (c *CachedSource) readCache(ctx context.Context, ids []int64) (map[int64][]string, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("%s%d", userNameKeyPrefix, id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]string, len(ids))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var names []string
		if err := json.Unmarshal([]byte(s), &names); err != nil {
			// Corrupt entry; treat as a miss and let the rewrite fix it.
			continue
		}
		out[ids[i]] = names
	}
	return out, nil
}

func (c *CachedSource) writeCache(ctx context.Context, fetched map[int64][]string) error {
	if len(fetched) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for id, names := range fetched {
		data, err := json.Marshal(names)
		if err != nil {
			return fmt.Errorf("failed to marshal names for user %d: %w", id, err)
		}
		pipe.Set(ctx, fmt.Sprintf("%s%d", userNameKeyPrefix, id), data, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
