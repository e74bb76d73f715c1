// Package cache is a read-through Redis cache in front of Engine's
// export queries, guarded by a circuit breaker so a degraded Redis
// falls back to querying the engine directly instead of blocking.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elommr/ratingengine/internal/breaker"
	"github.com/elommr/ratingengine/internal/metrics"
	"github.com/elommr/ratingengine/internal/ratings"
)

// RatingCache fronts Engine.GetRatingOf / ExportPlayerHistoryOf /
// ExportContestDetailOf with a Redis layer.
type RatingCache struct {
	client  *redis.Client
	breaker *breaker.Breaker
	metrics *metrics.Registry
	ttl     time.Duration
	engine  *ratings.Engine
}

// New wires a RatingCache over addr, falling back to engine directly
// when Redis is unreachable or the breaker is open. reg may be nil to
// disable metrics.
func New(addr string, db int, ttl time.Duration, engine *ratings.Engine, reg *metrics.Registry) *RatingCache {
	rc := &RatingCache{
		client:  redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ttl:     ttl,
		engine:  engine,
		metrics: reg,
	}
	var onChange breaker.StateChangeFunc
	if reg != nil {
		onChange = reg.RecordBreakerStateChange
	}
	rc.breaker = breaker.New("rating-cache", onChange)
	return rc
}

func (c *RatingCache) recordHit(kind string) {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(kind)
	}
}

func (c *RatingCache) recordMiss(kind string) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(kind)
	}
}

// GetAllRatings returns every known player's rating, preferring a
// single cached blob over re-scanning the engine's player map.
func (c *RatingCache) GetAllRatings(ctx context.Context) []ratings.RatingEntry {
	key := "elommr:ratings:all"

	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Get(ctx, key).Result()
	})
	if err == nil {
		var out []ratings.RatingEntry
		if jsonErr := json.Unmarshal([]byte(result.(string)), &out); jsonErr == nil {
			c.recordHit("ratings")
			return out
		}
	}
	c.recordMiss("ratings")

	out := c.engine.ExportPlayerRatings()
	if encoded, err := json.Marshal(out); err == nil {
		_, _ = c.breaker.Execute(func() (any, error) {
			return nil, c.client.Set(ctx, key, encoded, c.ttl).Err()
		})
	}
	return out
}

// GetRating returns a player's rating, preferring the cache and
// falling back to the engine (and repopulating the cache) on a miss or
// a breaker trip.
func (c *RatingCache) GetRating(ctx context.Context, playerID int64) (float64, bool) {
	key := fmt.Sprintf("elommr:rating:%d", playerID)

	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Get(ctx, key).Result()
	})
	if err == nil {
		var mu float64
		if jsonErr := json.Unmarshal([]byte(result.(string)), &mu); jsonErr == nil {
			c.recordHit("rating")
			return mu, true
		}
	}
	c.recordMiss("rating")

	mu, ok := c.engine.GetRatingOf(playerID)
	if !ok {
		return 0, false
	}

	if encoded, err := json.Marshal(mu); err == nil {
		_, _ = c.breaker.Execute(func() (any, error) {
			return nil, c.client.Set(ctx, key, encoded, c.ttl).Err()
		})
	}
	return mu, true
}

// GetHistory returns a player's history, cache-then-engine as above.
func (c *RatingCache) GetHistory(ctx context.Context, playerID int64) ([]ratings.PlayerHistoryEntry, bool) {
	key := fmt.Sprintf("elommr:history:%d", playerID)

	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Get(ctx, key).Result()
	})
	if err == nil {
		var history []ratings.PlayerHistoryEntry
		if jsonErr := json.Unmarshal([]byte(result.(string)), &history); jsonErr == nil {
			c.recordHit("history")
			return history, true
		}
	}
	c.recordMiss("history")

	history, ok := c.engine.ExportPlayerHistoryOf(playerID)
	if !ok {
		return nil, false
	}

	if encoded, err := json.Marshal(history); err == nil {
		_, _ = c.breaker.Execute(func() (any, error) {
			return nil, c.client.Set(ctx, key, encoded, c.ttl).Err()
		})
	}
	return history, true
}

// GetContest returns a contest's detail record, cache-then-engine.
func (c *RatingCache) GetContest(ctx context.Context, contestID int64) (ratings.ContestDetail, bool) {
	key := fmt.Sprintf("elommr:contest:%d", contestID)

	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Get(ctx, key).Result()
	})
	if err == nil {
		var detail ratings.ContestDetail
		if jsonErr := json.Unmarshal([]byte(result.(string)), &detail); jsonErr == nil {
			c.recordHit("contest")
			return detail, true
		}
	}
	c.recordMiss("contest")

	detail, ok := c.engine.ExportContestDetailOf(contestID)
	if !ok {
		return ratings.ContestDetail{}, false
	}

	if encoded, err := json.Marshal(detail); err == nil {
		_, _ = c.breaker.Execute(func() (any, error) {
			return nil, c.client.Set(ctx, key, encoded, c.ttl).Err()
		})
	}
	return detail, true
}

// Invalidate drops every cached key touched by contestID's submission:
// its own detail plus each participant's rating and history. Callers
// invoke this right after Engine.Submit returns.
func (c *RatingCache) Invalidate(ctx context.Context, contestID int64, playerIDs []int64) {
	keys := make([]string, 0, len(playerIDs)*2+2)
	keys = append(keys, fmt.Sprintf("elommr:contest:%d", contestID), "elommr:ratings:all")
	for _, id := range playerIDs {
		keys = append(keys, fmt.Sprintf("elommr:rating:%d", id), fmt.Sprintf("elommr:history:%d", id))
	}
	_, _ = c.breaker.Execute(func() (any, error) {
		return nil, c.client.Del(ctx, keys...).Err()
	})
}

// Close releases the underlying Redis connection pool.
func (c *RatingCache) Close() error {
	return c.client.Close()
}
