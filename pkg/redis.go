package pkg

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/campuskit/classroom-service/internal/config"
)

// NewRedisClient creates a Redis client from the configured URL.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return redis.NewClient(opts), nil
}
