// Package badge keeps the per-member unread private-message count ("badge")
// fresh. A refresh recounts from the store, caches the count in Redis, and
// publishes it so connected clients can update without polling.
//
// Without Redis, Nop recounts on demand and caches nothing.
package badge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached count survives without a refresh.
const DefaultTTL = 24 * time.Hour

// Counter recounts a member's unread private messages from the store.
type Counter func(ctx context.Context, userID string) (int64, error)

// Update is the payload published on every refresh.
type Update struct {
	UserID string `json:"user_id"`
	Unread int64  `json:"unread"`
}

// Key is the Redis key holding userID's cached count.
func Key(userID string) string { return "unread:" + userID }

// Nop refreshes by recounting and keeps nothing.
type Nop struct {
	Count Counter
}

// Refresh recounts userID's unread messages.
func (n Nop) Refresh(ctx context.Context, userID string) (int64, error) {
	if n.Count == nil {
		return 0, nil
	}
	return n.Count(ctx, userID)
}

// Cached always misses.
func (Nop) Cached(context.Context, string) (int64, bool) { return 0, false }

// Redis caches counts under Key(userID) and publishes an Update on Channel.
type Redis struct {
	client  *redis.Client
	count   Counter
	channel string
	ttl     time.Duration
}

// NewRedis returns a Redis-backed refresher. A non-positive ttl uses DefaultTTL.
func NewRedis(client *redis.Client, count Counter, channel string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, count: count, channel: channel, ttl: ttl}
}

// Refresh recounts userID's unread messages, stores the count and publishes it.
// The recount result is returned even when the Redis write fails.
func (r *Redis) Refresh(ctx context.Context, userID string) (int64, error) {
	n, err := r.count(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	payload, err := json.Marshal(Update{UserID: userID, Unread: n})
	if err != nil {
		return n, err
	}
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, Key(userID), n, r.ttl)
		p.Publish(ctx, r.channel, payload)
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("publish badge: %w", err)
	}
	return n, nil
}

// Cached returns the stored count for userID, if any.
func (r *Redis) Cached(ctx context.Context, userID string) (int64, bool) {
	n, err := r.client.Get(ctx, Key(userID)).Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

// Subscribe streams userID's counts as they are published. The subscription
// is confirmed before Subscribe returns. Call the returned func to stop; the
// channel is closed afterwards.
func (r *Redis) Subscribe(ctx context.Context, userID string) (<-chan int64, func() error, error) {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	out := make(chan int64, 1)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var u Update
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil || u.UserID != userID {
				continue
			}
			select {
			case out <- u.Unread:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close, nil
}

// ErrNoStream is returned by Subscribe on refreshers that cannot push.
var ErrNoStream = errors.New("badge streaming requires redis")

// Subscribe is not supported without Redis.
func (Nop) Subscribe(context.Context, string) (<-chan int64, func() error, error) {
	return nil, nil, ErrNoStream
}
