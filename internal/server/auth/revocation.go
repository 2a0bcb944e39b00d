package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers bearer tokens (by jti) that were logged out before
// their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationList keeps revoked token ids as Redis keys that expire
// together with the token.
type RedisRevocationList struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRevocationList(rdb redis.UniversalClient, prefix string) *RedisRevocationList {
	if prefix == "" {
		prefix = "useradmin:revoked:"
	}
	return &RedisRevocationList{rdb: rdb, prefix: prefix, now: time.Now}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.rdb.Set(ctx, l.prefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// MemoryRevocationList is the single-process fallback used when no Redis is
// configured.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: map[string]time.Time{}, now: time.Now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.entries {
		if !exp.After(now) {
			delete(l.entries, k)
		}
	}
	if until.After(now) {
		l.entries[jti] = until
	}
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(l.now()) {
		delete(l.entries, jti)
		return false, nil
	}
	return true, nil
}
