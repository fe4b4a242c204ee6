package redis

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"placement-service/internal/config"
)

// NewClient builds a client for cfg. A failed ping is only logged: usage
// counters degrade to direct Mongo writes while Redis is away.
func NewClient(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Error connect to Redis: %s", err)
	} else {
		log.Printf("Connected to Redis at %s", cfg.Address)
	}
	return client
}

func Close(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Printf("Error closing Redis client: %s", err)
	}
}
