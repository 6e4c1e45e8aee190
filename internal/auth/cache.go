package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache keeps verified token identities in redis so repeat requests skip
// provider verification. Keys are token hashes, never raw tokens.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{Client: client, TTL: ttl}
}

func (c *Cache) Get(ctx context.Context, rawToken string) (Identity, bool) {
	val, err := c.Client.Get(ctx, cacheKey(rawToken)).Result()
	if err != nil {
		return Identity{}, false
	}
	var identity Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		return Identity{}, false
	}
	return identity, true
}

func (c *Cache) Set(ctx context.Context, rawToken string, identity Identity) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return
	}
	c.Client.Set(ctx, cacheKey(rawToken), payload, c.TTL)
}

func cacheKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return "auth_identity:" + hex.EncodeToString(sum[:])
}
