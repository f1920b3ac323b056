package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/models"
	"github.com/redis/go-redis/v9"
)

// CacheService provides a read cache for deadline-year records. Reads during
// reconciliation and auto-population go cache-first; every upsert
// invalidates the (college, year) key after its transaction commits.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// DeadlineYearKey generates the cache key for a (college, year) record.
// Format: deadline_year:<collegeID>:<year>
func (c *CacheService) DeadlineYearKey(collegeID string, year int) string {
	return fmt.Sprintf("deadline_year:%s:%d", collegeID, year)
}

// GetDeadlineYear retrieves a cached record. A miss returns (nil, nil).
func (c *CacheService) GetDeadlineYear(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error) {
	data, err := c.redis.Get(ctx, c.DeadlineYearKey(collegeID, year))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read deadline record from cache: %w", err)
	}

	var rec models.DeadlineYearRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		// A corrupt entry behaves like a miss; the caller falls back to
		// Postgres and the next Set overwrites it.
		return nil, nil
	}

	return &rec, nil
}

// SetDeadlineYear caches a record with the configured TTL
func (c *CacheService) SetDeadlineYear(ctx context.Context, rec *models.DeadlineYearRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal deadline record for cache: %w", err)
	}

	return c.redis.Set(ctx, c.DeadlineYearKey(rec.CollegeID, rec.ApplicationYear), data, c.ttl)
}

// InvalidateDeadlineYear removes the cached record for a (college, year)
func (c *CacheService) InvalidateDeadlineYear(ctx context.Context, collegeID string, year int) error {
	return c.redis.Del(ctx, c.DeadlineYearKey(collegeID, year))
}
