package redis

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

type IRedis interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	PushCapped(ctx context.Context, key string, value string, limit int64, expiration time.Duration) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting key %s: %v", key, err))
		return "", err
	}
	return val, nil
}

func (r *redisClient) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error setting key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) Delete(ctx context.Context, key string) error {
	if _, err := r.client.Del(ctx, key).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Error deleting key %s: %v", key, err))
		return err
	}
	return nil
}

// PushCapped prepends value to the list at key, trims the list to limit
// entries and refreshes its expiration. Used for rolling event streams.
func (r *redisClient) PushCapped(ctx context.Context, key string, value string, limit int64, expiration time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, limit-1)
	pipe.Expire(ctx, key, expiration)

	if _, err := pipe.Exec(ctx); err != nil {
		logrus.Error(fmt.Sprintf("Error pushing to capped list %s: %v", key, err))
		return err
	}
	return nil
}
