package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"edrs-docstore/internal/config"
	"edrs-docstore/internal/domain/user"

	"github.com/redis/go-redis/v9"
)

const (
	backendRedis     = "redis"
	redisPingTimeout = 5 * time.Second
	userKeyPrefix    = "edrs:user:"

	errRedisPingFmt = "redis ping: %w"
)

// NewRedisClient connects and pings once so misconfiguration fails at startup.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf(errRedisPingFmt, err)
	}

	return client, nil
}

// RedisUserCache shares resolved accounts across instances. Redis failures degrade to a
// cache miss; the registry stays authoritative.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisUserCache(client *redis.Client, ttl time.Duration) *RedisUserCache {
	return &RedisUserCache{client: client, ttl: ttl}
}

type cachedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func (c *RedisUserCache) Get(ctx context.Context, id int64) (*user.User, bool) {
	raw, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("user cache get %d: %v", id, err)
		}
		userCacheMissesTotal.WithLabelValues(backendRedis).Inc()
		return nil, false
	}

	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		userCacheMissesTotal.WithLabelValues(backendRedis).Inc()
		return nil, false
	}
	role, ok := user.ParseRole(cu.Role)
	if !ok {
		userCacheMissesTotal.WithLabelValues(backendRedis).Inc()
		return nil, false
	}

	userCacheHitsTotal.WithLabelValues(backendRedis).Inc()
	return &user.User{
		ID:       cu.ID,
		Username: cu.Username,
		Email:    cu.Email,
		Role:     role,
		IsActive: cu.IsActive,
	}, true
}

func (c *RedisUserCache) Set(ctx context.Context, u *user.User) {
	if u == nil {
		return
	}
	raw, err := json.Marshal(cachedUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role.String(),
		IsActive: u.IsActive,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, userKey(u.ID), raw, c.ttl).Err(); err != nil {
		log.Printf("user cache set %d: %v", u.ID, err)
	}
}

func (c *RedisUserCache) Delete(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, userKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("user cache delete %d: %v", id, err)
	}
}

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// Ping lets the health endpoint report the shared cache.
func (c *RedisUserCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
