package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"paper-attempt-service/internal/domain"
)

const standingsKey = "leaderboard:standings"

// StandingsCache shares the computed ranking between service instances.
type StandingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStandingsCache(client *redis.Client, ttl time.Duration) *StandingsCache {
	return &StandingsCache{client: client, ttl: ttl}
}

func (c *StandingsCache) Get(ctx context.Context) ([]domain.Standing, bool, error) {
	raw, err := c.client.Get(ctx, standingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get standings: %w", err)
	}
	var standings []domain.Standing
	if err := json.Unmarshal(raw, &standings); err != nil {
		return nil, false, fmt.Errorf("decode standings: %w", err)
	}
	return standings, true, nil
}

func (c *StandingsCache) Set(ctx context.Context, standings []domain.Standing) error {
	raw, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("encode standings: %w", err)
	}
	return c.client.Set(ctx, standingsKey, raw, c.ttl).Err()
}

func (c *StandingsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, standingsKey).Err()
}
