package cache

import (
	"context"
	"time"

	"edrs-docstore/internal/domain/user"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	userCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edrs_user_cache_hits_total",
		Help: "User lookups answered from cache.",
	}, []string{"backend"})
	userCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edrs_user_cache_misses_total",
		Help: "User lookups that fell through to the registry.",
	}, []string{"backend"})
)

const backendMemory = "memory"

// UserCache holds recently resolved accounts so that every request does not hit Postgres
// just to learn the caller's role.
type UserCache interface {
	Get(ctx context.Context, id int64) (*user.User, bool)
	Set(ctx context.Context, u *user.User)
	Delete(ctx context.Context, id int64)
}

// MemoryUserCache is a per-instance LRU with a fixed TTL.
type MemoryUserCache struct {
	lru *expirable.LRU[int64, user.User]
}

func NewMemoryUserCache(size int, ttl time.Duration) *MemoryUserCache {
	return &MemoryUserCache{lru: expirable.NewLRU[int64, user.User](size, nil, ttl)}
}

func (c *MemoryUserCache) Get(_ context.Context, id int64) (*user.User, bool) {
	u, ok := c.lru.Get(id)
	if !ok {
		userCacheMissesTotal.WithLabelValues(backendMemory).Inc()
		return nil, false
	}
	userCacheHitsTotal.WithLabelValues(backendMemory).Inc()
	return &u, true
}

// Set stores a copy so callers cannot mutate the cached value.
func (c *MemoryUserCache) Set(_ context.Context, u *user.User) {
	if u == nil {
		return
	}
	c.lru.Add(u.ID, *u)
}

func (c *MemoryUserCache) Delete(_ context.Context, id int64) {
	c.lru.Remove(id)
}
