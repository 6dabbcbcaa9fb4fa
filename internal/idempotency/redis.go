package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a claim only if this process still owns it, so a
// Release racing a takeover after TTL expiry cannot delete someone
// else's claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard implements Guard on a shared Redis, which makes the claim
// atomic across replicas. Claims are taken with SET NX; completion
// markers outlive the provider's redelivery window, and the database
// unique index on source_event_id is the permanent backstop.
type RedisGuard struct {
	client       *redis.Client
	pendingTTL   time.Duration
	completedTTL time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{
		client:       client,
		pendingTTL:   15 * time.Minute,
		completedTTL: 30 * 24 * time.Hour,
		tokens:       make(map[string]string),
	}
}

func claimKey(eventID string) string {
	return fmt.Sprintf("idem:%s", eventID)
}

func (g *RedisGuard) Claim(ctx context.Context, eventID string) (Outcome, error) {
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, claimKey(eventID), token, g.pendingTTL).Result()
	if err != nil {
		return Duplicate, fmt.Errorf("claiming event %s: %w", eventID, err)
	}
	if !ok {
		return Duplicate, nil
	}

	g.mu.Lock()
	g.tokens[eventID] = token
	g.mu.Unlock()

	return Fresh, nil
}

func (g *RedisGuard) Complete(ctx context.Context, eventID string) error {
	g.mu.Lock()
	delete(g.tokens, eventID)
	g.mu.Unlock()

	if err := g.client.Set(ctx, claimKey(eventID), stateDone, g.completedTTL).Err(); err != nil {
		return fmt.Errorf("completing event %s: %w", eventID, err)
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, eventID string) error {
	g.mu.Lock()
	token, ok := g.tokens[eventID]
	delete(g.tokens, eventID)
	g.mu.Unlock()

	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, g.client, []string{claimKey(eventID)}, token).Err(); err != nil {
		return fmt.Errorf("releasing event %s: %w", eventID, err)
	}
	return nil
}
