// Package cache provides Redis-based caching for quick state reads.
// Dashboard endpoints read profile summaries from here instead of hitting
// SQLite on every poll; the store remains the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RedisClient is an interface for Redis operations.
// This allows for easy mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ProfileSummary is the cached, presentation-ready view of a profile.
type ProfileSummary struct {
	ProfileID     string `json:"profile_id"`
	StationName   string `json:"station_name"`
	StationLevel  int    `json:"station_level"`
	Reputation    int    `json:"reputation"`
	Heat          int    `json:"heat"`
	Balance       int    `json:"balance"`
	VehicleCount  int    `json:"vehicle_count"`
	StaffCount    int    `json:"staff_count"`
	UnitsOnDuty   int    `json:"units_on_duty"`  // units currently on cooldown
	LastProcessed int64  `json:"last_processed"` // Unix timestamp
}

// ProfileCache provides fast access to profile summaries.
type ProfileCache struct {
	client     RedisClient
	expiration time.Duration
}

// NewProfileCache creates a new profile cache instance.
func NewProfileCache(client RedisClient) *ProfileCache {
	return &ProfileCache{
		client:     client,
		expiration: 5 * time.Minute,
	}
}

// SetSummary caches the current summary of a profile.
func (c *ProfileCache) SetSummary(ctx context.Context, summary ProfileSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal profile summary: %w", err)
	}
	return c.client.Set(ctx, c.profileKey(summary.ProfileID), data, c.expiration)
}

// GetSummary retrieves the cached summary of a profile.
func (c *ProfileCache) GetSummary(ctx context.Context, profileID string) (*ProfileSummary, error) {
	data, err := c.client.Get(ctx, c.profileKey(profileID))
	if err != nil {
		return nil, err // Cache miss or error
	}

	var summary ProfileSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile summary: %w", err)
	}
	return &summary, nil
}

// Invalidate removes the cached summary after a mutation commits.
func (c *ProfileCache) Invalidate(ctx context.Context, profileID string) error {
	return c.client.Del(ctx, c.profileKey(profileID))
}

func (c *ProfileCache) profileKey(profileID string) string {
	return fmt.Sprintf("chief:profile:%s:summary", profileID)
}
