package memory

import (
	"context"
	"sync"
	"time"

	"paper-attempt-service/internal/domain"
)

// StandingsCache keeps the last computed ranking in process memory.
type StandingsCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu        sync.RWMutex
	standings []domain.Standing
	expiresAt time.Time
	valid     bool
}

// NewStandingsCache returns a cache whose entries expire after ttl; zero
// keeps them until invalidated.
func NewStandingsCache(ttl time.Duration) *StandingsCache {
	return &StandingsCache{ttl: ttl, clock: time.Now}
}

func (c *StandingsCache) Get(_ context.Context) ([]domain.Standing, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || (c.ttl > 0 && !c.expiresAt.After(c.clock())) {
		return nil, false, nil
	}
	return append([]domain.Standing(nil), c.standings...), true, nil
}

func (c *StandingsCache) Set(_ context.Context, standings []domain.Standing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.standings = append([]domain.Standing(nil), standings...)
	c.expiresAt = c.clock().Add(c.ttl)
	c.valid = true
	return nil
}

func (c *StandingsCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.standings = nil
	c.valid = false
	return nil
}
