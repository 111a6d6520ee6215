package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard remembers ids for a while so repeated deliveries can be ignored
type Guard interface {
	// FirstSeen reports whether id has not been seen within the TTL, and marks it seen
	FirstSeen(ctx context.Context, id string) (bool, error)
	// Forget releases id so a later delivery is processed again
	Forget(ctx context.Context, id string) error
}

// RedisGuard shares seen ids across processes via SETNX
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisGuard(opts RedisOptions) *RedisGuard {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisGuard{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: "portal:telegram:update:",
		ttl:    ttl,
	}
}

// Ping checks the connection
func (g *RedisGuard) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (g *RedisGuard) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+id, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record update %s: %w", id, err)
	}
	return ok, nil
}

func (g *RedisGuard) Forget(ctx context.Context, id string) error {
	if err := g.client.Del(ctx, g.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to forget update %s: %w", id, err)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// MemoryGuard is a single-process Guard used when Redis is not configured
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (g *MemoryGuard) FirstSeen(ctx context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, expiry := range g.seen {
		if !now.Before(expiry) {
			delete(g.seen, key)
		}
	}

	if _, ok := g.seen[id]; ok {
		return false, nil
	}
	g.seen[id] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Forget(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, id)
	return nil
}
