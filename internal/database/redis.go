package database

import (
	"context"
	"log"

	"github.com/fortebank/backend/internal/config"
	"github.com/go-redis/redis/v8"
)

// InitRedis connects to Redis. A failed connection is not fatal: queues and
// the payment-request cache degrade, the ledger core does not.
func InitRedis(cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without Redis: %v", err)
		return nil
	}

	log.Println("Redis connection established")
	return rdb
}
