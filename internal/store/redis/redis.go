// Package redis provides the settings change bus and the computed result
// cache. Both are optional: the service runs without Redis, it just loses
// cross-instance settings broadcasts and cached responses.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tradedash/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// SettingsChannel carries user indicator settings changes so every
	// instance can push updates to its websocket clients.
	SettingsChannel = "config:indicators"

	defaultResultTTL = 5 * time.Minute
)

// Config configures the Redis client.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Client wraps a Redis connection for pubsub and result caching.
type Client struct {
	rdb *goredis.Client
}

// New connects and pings the server.
func New(cfg Config) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Client{rdb: rdb}, nil
}

// Raw returns the underlying client for health checks.
func (c *Client) Raw() *goredis.Client { return c.rdb }

// SettingsEvent is the payload published on SettingsChannel.
type SettingsEvent struct {
	UserID        int64          `json:"userId"`
	IndicatorCode string         `json:"indicatorCode"`
	Params        map[string]any `json:"params"`
	Active        bool           `json:"active"`
}

// PublishSettingsChange broadcasts one settings change to all instances.
func (c *Client) PublishSettingsChange(ctx context.Context, ev SettingsEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal settings event: %w", err)
	}
	if err := c.rdb.Publish(ctx, SettingsChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// SubscribeSettings delivers settings events to fn until ctx is cancelled.
// Malformed payloads are logged and dropped.
func (c *Client) SubscribeSettings(ctx context.Context, fn func(SettingsEvent)) {
	sub := c.rdb.Subscribe(ctx, SettingsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev SettingsEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[redis] bad settings payload: %v", err)
				continue
			}
			fn(ev)
		}
	}
}

// CacheResults stores a computed response under key with the default TTL.
func (c *Client) CacheResults(ctx context.Context, key string, results []model.IndicatorResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := c.rdb.Set(ctx, "indicators:result:"+key, payload, defaultResultTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// CachedResults fetches a cached response; ok is false on miss.
func (c *Client) CachedResults(ctx context.Context, key string) ([]model.IndicatorResult, bool, error) {
	payload, err := c.rdb.Get(ctx, "indicators:result:"+key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var results []model.IndicatorResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached results: %w", err)
	}
	return results, true, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
