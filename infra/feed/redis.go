package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kilianp07/outagewatch/core/model"
	"github.com/kilianp07/outagewatch/core/schedule"
)

// RedisConfig configures a RedisFeed.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
	Format   string `json:"format"`
}

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisFeed reads the schedule document stored under one key, typically
// written by the upstream scraper.
type RedisFeed struct {
	c      kv
	key    string
	format Format
}

func NewRedisFeed(cfg RedisConfig) *RedisFeed {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisFeed(c, cfg)
}

func newRedisFeed(c kv, cfg RedisConfig) *RedisFeed {
	if cfg.Key == "" {
		cfg.Key = "outagewatch:schedule"
	}
	return &RedisFeed{c: c, key: cfg.Key, format: Format(cfg.Format)}
}

func (f *RedisFeed) Fetch(ctx context.Context) (schedule.FeedData, error) {
	data, err := f.c.Get(ctx, f.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return schedule.FeedData{}, fmt.Errorf("redis key %s: %w", f.key, model.ErrNotFound)
		}
		return schedule.FeedData{}, fmt.Errorf("redis get %s: %w", f.key, err)
	}
	return Decode(data, f.format)
}

// Store writes data under the feed key.
func (f *RedisFeed) Store(ctx context.Context, data schedule.FeedData) error {
	format := f.format
	if format == FormatAuto {
		format = FormatJSON
	}
	b, err := Encode(data, format)
	if err != nil {
		return err
	}
	return f.c.Set(ctx, f.key, b, 0).Err()
}

// Close releases the client when it owns one.
func (f *RedisFeed) Close() error {
	if c, ok := f.c.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}
