// Package cache holds each user's task collection between reads.
// A successful mutation drops the entry so the next read refetches from the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"todo_webapp/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "task_cache_lookups_total",
		Help: "Task collection cache lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

// ListCache stores one task collection per user.
type ListCache interface {
	Get(ctx context.Context, userID int64) ([]domain.Task, bool, error)
	Set(ctx context.Context, userID int64, tasks []domain.Task) error
	Invalidate(ctx context.Context, userID int64) error
}

// Stats tracks cache statistics.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Sets          uint64 `json:"sets"`
	Invalidations uint64 `json:"invalidations"`
	Errors        uint64 `json:"errors"`
}

func (s *Stats) snapshot() Stats {
	return Stats{
		Hits:          atomic.LoadUint64(&s.Hits),
		Misses:        atomic.LoadUint64(&s.Misses),
		Sets:          atomic.LoadUint64(&s.Sets),
		Invalidations: atomic.LoadUint64(&s.Invalidations),
		Errors:        atomic.LoadUint64(&s.Errors),
	}
}

func (s *Stats) hit() {
	atomic.AddUint64(&s.Hits, 1)
	lookups.WithLabelValues("hit").Inc()
}

func (s *Stats) miss() {
	atomic.AddUint64(&s.Misses, 1)
	lookups.WithLabelValues("miss").Inc()
}

func (s *Stats) fail() {
	atomic.AddUint64(&s.Errors, 1)
	lookups.WithLabelValues("error").Inc()
}

// Redis keeps collections as JSON under <prefix><user_id>.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  Stats
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (c *Redis) key(userID int64) string {
	return c.prefix + strconv.FormatInt(userID, 10)
}

func (c *Redis) Get(ctx context.Context, userID int64) ([]domain.Task, bool, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.stats.miss()
			return nil, false, nil
		}
		c.stats.fail()
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		c.stats.fail()
		return nil, false, domain.NewError(domain.KindSerialization, "cache get", err)
	}

	c.stats.hit()
	return tasks, true, nil
}

func (c *Redis) Set(ctx context.Context, userID int64, tasks []domain.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		c.stats.fail()
		return domain.NewError(domain.KindSerialization, "cache set", err)
	}

	if err := c.client.Set(ctx, c.key(userID), data, c.ttl).Err(); err != nil {
		c.stats.fail()
		return fmt.Errorf("cache set error: %w", err)
	}

	atomic.AddUint64(&c.stats.Sets, 1)
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		c.stats.fail()
		return fmt.Errorf("cache delete error: %w", err)
	}

	atomic.AddUint64(&c.stats.Invalidations, 1)
	return nil
}

func (c *Redis) Stats() Stats {
	return c.stats.snapshot()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type memEntry struct {
	tasks   []domain.Task
	expires time.Time
}

// Memory is the in-process ListCache used in local mode and when redis is absent.
type Memory struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[int64]memEntry
	stats Stats
}

// NewMemory creates a Memory cache. A zero ttl never expires entries.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, items: make(map[int64]memEntry)}
}

func (c *Memory) Get(_ context.Context, userID int64) ([]domain.Task, bool, error) {
	c.mu.RLock()
	e, ok := c.items[userID]
	c.mu.RUnlock()

	if !ok || (!e.expires.IsZero() && c.now().After(e.expires)) {
		c.stats.miss()
		return nil, false, nil
	}

	c.stats.hit()
	out := make([]domain.Task, len(e.tasks))
	copy(out, e.tasks)
	return out, true, nil
}

func (c *Memory) Set(_ context.Context, userID int64, tasks []domain.Task) error {
	stored := make([]domain.Task, len(tasks))
	copy(stored, tasks)

	e := memEntry{tasks: stored}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.items[userID] = e
	c.mu.Unlock()

	atomic.AddUint64(&c.stats.Sets, 1)
	return nil
}

func (c *Memory) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	delete(c.items, userID)
	c.mu.Unlock()

	atomic.AddUint64(&c.stats.Invalidations, 1)
	return nil
}

func (c *Memory) Stats() Stats {
	return c.stats.snapshot()
}
