// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/benystat/internal/config"
	"github.com/Thermoquad/benystat/pkg/charger"
)

// ErrNoStatus is returned by Latest when nothing is cached for a charger
var ErrNoStatus = errors.New("no cached status")

// RedisCache keeps the last status of each charger with a TTL
type RedisCache struct {
	cfg    config.RedisConfig
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewRedisCache creates a cache client. The connection is checked by Ping.
func NewRedisCache(cfg config.RedisConfig, logger zerolog.Logger) *RedisCache {
	return &RedisCache{
		cfg: cfg,
		rdb: redis.NewClient(&redis.Options{
			Addr: cfg.Addr,
			DB:   cfg.DB,
		}),
		logger: logger.With().Str("component", "redis").Logger(),
	}
}

// Ping checks the server is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	c.logger.Info().Str("addr", c.cfg.Addr).Msg("redis connected")
	return nil
}

// Key returns the key holding a charger's last status
func (c *RedisCache) Key(serial int) string {
	return fmt.Sprintf("%s:%d:status", c.cfg.KeyPrefix, serial)
}

// Publish stores the status payload under the charger key
func (c *RedisCache) Publish(ctx context.Context, serial int, status *charger.Status) error {
	data, err := NewPayload(serial, status).Marshal()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.rdb.Set(ctx, c.Key(serial), data, c.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", c.Key(serial), err)
	}
	return nil
}

// Latest returns the cached payload for a charger
func (c *RedisCache) Latest(ctx context.Context, serial int) (*Payload, error) {
	data, err := c.rdb.Get(ctx, c.Key(serial)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoStatus
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", c.Key(serial), err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode cached status: %w", err)
	}
	if payload.Status == nil {
		return nil, ErrNoStatus
	}
	return &payload, nil
}

// Close releases the connection pool
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
