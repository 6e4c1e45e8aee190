package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// CodeGuard holds short-lived reservations on freshly drawn pickup codes.
// The allocator's uniqueness check reads committed orders only, leaving a
// window between check and insert; a SetNX reservation closes most of it.
// Reservations expire on their own, so a failed checkout never leaks a
// code.
type CodeGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCodeGuard(client *redis.Client, ttl time.Duration) *CodeGuard {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CodeGuard{Client: client, TTL: ttl}
}

// ReserveCode claims the code for the TTL. It returns false when another
// allocation holds the code already.
func (g *CodeGuard) ReserveCode(ctx context.Context, code string) (bool, error) {
	return g.Client.SetNX(ctx, "pickup_code:"+code, "reserved", g.TTL).Result()
}

// ReleaseCode drops a reservation early, e.g. when the order insert
// fails after allocation.
func (g *CodeGuard) ReleaseCode(ctx context.Context, code string) error {
	return g.Client.Del(ctx, "pickup_code:"+code).Err()
}
