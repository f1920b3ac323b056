package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/deadline-tracker/internal/dates"
	"github.com/deadline-tracker/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestCache creates a CacheService backed by a miniredis instance
func setupTestCache(t *testing.T, ttl time.Duration) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheService(NewRedisCacheFromClient(client), ttl), mr
}

func datePtr(y int, m time.Month, d int) *dates.Date {
	dt := dates.New(y, m, d)
	return &dt
}

func TestCacheService_SetGetDeadlineYear(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	conf := 0.9
	rec := &models.DeadlineYearRecord{
		CollegeID:           "college-1",
		ApplicationYear:     2026,
		ED1Date:             datePtr(2025, time.November, 1),
		OffersEarlyDecision: true,
		ConfidenceScore:     &conf,
		SourceURL:           "https://example.edu/deadlines",
	}

	require.NoError(t, cache.SetDeadlineYear(ctx, rec))

	got, err := cache.GetDeadlineYear(ctx, "college-1", 2026)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.CollegeID, got.CollegeID)
	assert.Equal(t, rec.ApplicationYear, got.ApplicationYear)
	require.NotNil(t, got.ED1Date)
	assert.True(t, got.ED1Date.Equal(*rec.ED1Date))
	assert.True(t, got.OffersEarlyDecision)
	require.NotNil(t, got.ConfidenceScore)
	assert.InDelta(t, 0.9, *got.ConfidenceScore, 1e-9)
}

func TestCacheService_MissReturnsNil(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	got, err := cache.GetDeadlineYear(context.Background(), "college-unknown", 2026)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheService_Invalidate(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	rec := &models.DeadlineYearRecord{CollegeID: "college-1", ApplicationYear: 2026}
	require.NoError(t, cache.SetDeadlineYear(ctx, rec))
	require.NoError(t, cache.InvalidateDeadlineYear(ctx, "college-1", 2026))

	got, err := cache.GetDeadlineYear(ctx, "college-1", 2026)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheService_TTLExpiry(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()

	rec := &models.DeadlineYearRecord{CollegeID: "college-1", ApplicationYear: 2026}
	require.NoError(t, cache.SetDeadlineYear(ctx, rec))

	mr.FastForward(2 * time.Minute)

	got, err := cache.GetDeadlineYear(ctx, "college-1", 2026)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheService_CorruptEntryBehavesAsMiss(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)

	require.NoError(t, mr.Set(cache.DeadlineYearKey("college-1", 2026), "not-json"))

	got, err := cache.GetDeadlineYear(context.Background(), "college-1", 2026)
	require.NoError(t, err)
	assert.Nil(t, got)
}
