package cache

import (
	"context"
	"testing"
	"time"

	"todo_webapp/internal/domain"

	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

func TestMemoryGetSetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0)

	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Fatalf("expected miss on empty cache")
	}

	tasks := []domain.Task{{ID: "a", Title: "one"}}
	if err := c.Set(ctx, 1, tasks); err != nil {
		t.Fatalf("set: %v", err)
	}
	tasks[0].Title = "mutated by caller"

	got, ok, err := c.Get(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got[0].Title != "one" {
		t.Fatalf("cache must hold its own copy, got %q", got[0].Title)
	}
	if _, ok, _ := c.Get(ctx, 2); ok {
		t.Fatalf("entries must be scoped per user")
	}

	if err := c.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Fatalf("expected miss after invalidate")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 3 || s.Sets != 1 || s.Invalidations != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := NewMemory(time.Minute)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, 1, []domain.Task{{ID: "a"}})
	if _, ok, _ := c.Get(ctx, 1); !ok {
		t.Fatalf("expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, 1); ok {
		t.Fatalf("expected miss after expiry")
	}
}

// Integration-style test: requires Redis on localhost:6379.
func TestRedisGetSetInvalidate(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	defer client.Close()

	prefix := "test:" + t.Name() + ":"
	c := NewRedis(client, prefix, time.Minute)
	defer client.Del(ctx, prefix+"42")

	if _, ok, err := c.Get(ctx, 42); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	created := time.Now().UTC().Truncate(time.Millisecond)
	if err := c.Set(ctx, 42, []domain.Task{{ID: "a", Title: "cached", CreatedAt: created}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := c.Get(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Title != "cached" || !got[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected cached value: %+v", got)
	}

	if err := c.Invalidate(ctx, 42); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, 42); ok {
		t.Fatalf("expected miss after invalidate")
	}
}
