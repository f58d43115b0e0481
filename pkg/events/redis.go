package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig contains event sink configuration for Redis pub/sub.
type RedisConfig struct {
	// Addr is the Redis host:port.
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Password is the Redis password, if any.
	Password string `mapstructure:"password" yaml:"password"`

	// DB is the Redis database index.
	DB int `mapstructure:"db" yaml:"db"`

	// Channel is the pub/sub channel prefix. Events are published to
	// "{channel}.{event_type}", e.g. "filecore.events.file.created".
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// RedisSink publishes catalog events to Redis pub/sub channels.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink connects to Redis and returns a publishing sink.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "filecore.events"
	}

	return &RedisSink{
		client:  client,
		channel: channel,
	}, nil
}

// Publish sends the event as JSON to the type-specific channel.
func (s *RedisSink) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.client.Publish(ctx, s.channel+"."+event.Type, data).Err()
}

// Close releases the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
