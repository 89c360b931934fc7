package apns

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TreeBites/treebites-push/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTokenTTL is how long a provider token is reused. The gateway
// rejects tokens older than one hour and throttles tokens refreshed more
// often than every twenty minutes.
const DefaultTokenTTL = 50 * time.Minute

// TokenCache stores signed provider tokens by key id.
type TokenCache interface {
	Get(ctx context.Context, keyID string) (string, bool, error)
	Set(ctx context.Context, keyID, token string, ttl time.Duration) error
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// MemoryTokenCache is a process-local TokenCache.
type MemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]cachedToken
	now     func() time.Time
}

// NewMemoryTokenCache creates an empty in-process cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{
		entries: make(map[string]cachedToken),
		now:     time.Now,
	}
}

func (c *MemoryTokenCache) Get(_ context.Context, keyID string) (string, bool, error) {
	c.mu.RLock()
	entry, found := c.entries[keyID]
	c.mu.RUnlock()

	if !found || !c.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, keyID, token string, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[keyID] = cachedToken{value: token, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// RedisTokenCache shares provider tokens between replicas.
type RedisTokenCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisTokenCache creates a cache storing tokens under "apns:provider-token:<kid>".
func NewRedisTokenCache(client redis.Cmdable) *RedisTokenCache {
	return &RedisTokenCache{client: client, prefix: "apns:provider-token:"}
}

func (c *RedisTokenCache) key(keyID string) string {
	return c.prefix + keyID
}

func (c *RedisTokenCache) Get(ctx context.Context, keyID string) (string, bool, error) {
	value, err := c.client.Get(ctx, c.key(keyID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached provider token: %w", err)
	}
	return value, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, keyID, token string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(keyID), token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache provider token: %w", err)
	}
	return nil
}

// CachingSigner reuses a signed token until its TTL elapses. Cache failures
// fall back to minting a fresh token.
type CachingSigner struct {
	signer      *Signer
	cache       TokenCache
	ttl         time.Duration
	refreshLock sync.Mutex
	logger      *zap.Logger
}

// NewCachingSigner wraps signer with cache. A non-positive ttl uses DefaultTokenTTL.
func NewCachingSigner(signer *Signer, cache TokenCache, ttl time.Duration, logger *zap.Logger) *CachingSigner {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &CachingSigner{
		signer: signer,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("ProviderTokenCache"),
	}
}

func (c *CachingSigner) lookup(ctx context.Context) (ProviderToken, bool) {
	value, found, err := c.cache.Get(ctx, c.signer.KeyID())
	if err != nil {
		c.logger.Warn("Provider token cache read failed", zap.Error(err))
		return ProviderToken{}, false
	}
	if !found {
		return ProviderToken{}, false
	}
	return ProviderToken{Value: value, KeyID: c.signer.KeyID()}, true
}

// Token returns a cached token or mints and caches a new one.
func (c *CachingSigner) Token(ctx context.Context) (ProviderToken, error) {
	if token, ok := c.lookup(ctx); ok {
		return token, nil
	}

	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if token, ok := c.lookup(ctx); ok {
		return token, nil
	}

	token, err := c.signer.Token(ctx)
	if err != nil {
		return ProviderToken{}, err
	}

	if err := c.cache.Set(ctx, token.KeyID, token.Value, c.ttl); err != nil {
		c.logger.Warn("Provider token cache write failed", zap.Error(err))
	}
	c.logger.Debug("Minted provider token",
		zap.String("kid", token.KeyID),
		zap.String("token", logger.MaskJWT(token.Value)),
		zap.Duration("ttl", c.ttl))
	return token, nil
}
