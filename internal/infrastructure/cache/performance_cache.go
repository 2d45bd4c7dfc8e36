package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/infrastructure/config"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// PerformanceCache stores computed performance series in Redis. It fails
// open: any Redis error is logged and treated as a miss so a cache outage
// never breaks reads.
type PerformanceCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewPerformanceCache creates a new performance cache
func NewPerformanceCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PerformanceCache {
	return &PerformanceCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func seriesKey(portfolioID uuid.UUID, from, to time.Time) string {
	f, t := "open", "open"
	if !from.IsZero() {
		f = from.UTC().Format("2006-01-02")
	}
	if !to.IsZero() {
		t = to.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("folio:perf:%s:%s:%s", portfolioID, f, t)
}

// GetSeries returns the cached series for the range, if present.
func (c *PerformanceCache) GetSeries(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]entities.DailyPerformance, bool) {
	raw, err := c.client.Get(ctx, seriesKey(portfolioID, from, to)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("performance cache read failed", zap.Error(err))
		return nil, false
	}

	var series []entities.DailyPerformance
	if err := json.Unmarshal(raw, &series); err != nil {
		c.logger.Warn("performance cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return series, true
}

// SetSeries stores the series for the range with the configured TTL.
func (c *PerformanceCache) SetSeries(ctx context.Context, portfolioID uuid.UUID, from, to time.Time, series []entities.DailyPerformance) {
	raw, err := json.Marshal(series)
	if err != nil {
		c.logger.Warn("performance cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, seriesKey(portfolioID, from, to), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("performance cache write failed", zap.Error(err))
	}
}

// Invalidate drops every cached series for the portfolio. Snapshot writes
// call this so stale ranges never outlive a recomputation.
func (c *PerformanceCache) Invalidate(ctx context.Context, portfolioID uuid.UUID) {
	pattern := fmt.Sprintf("folio:perf:%s:*", portfolioID)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		c.logger.Warn("performance cache invalidation scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("performance cache invalidation failed", zap.Error(err))
	}
}
