package cache

import (
	"context"
	"testing"
	"time"

	"edrs-docstore/internal/domain/user"
)

func warmUserCache(n int) *MemoryUserCache {
	c := NewMemoryUserCache(n, 10*time.Minute)
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		c.Set(ctx, &user.User{ID: int64(i), Role: user.RoleProcessEngineer, IsActive: true})
	}
	return c
}

// BenchmarkMemoryUserCacheGet measures the per-request role lookup on a warm cache
func BenchmarkMemoryUserCacheGet(b *testing.B) {
	c := warmUserCache(1000)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		c.Get(ctx, int64(i%1000)+1)
	}
}

// BenchmarkMemoryUserCacheGetParallel measures lock contention under concurrent requests
func BenchmarkMemoryUserCacheGetParallel(b *testing.B) {
	c := warmUserCache(1000)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Get(ctx, int64(i%1000)+1)
			i++
		}
	})
}

// BenchmarkMemoryUserCacheEviction keeps inserting past capacity
func BenchmarkMemoryUserCacheEviction(b *testing.B) {
	c := NewMemoryUserCache(128, 10*time.Minute)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		c.Set(ctx, &user.User{ID: int64(i) + 1, Role: user.RoleSafetyEngineer, IsActive: true})
	}
}
