package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tasklane.org/internal/auth"
)

const defaultRedisPrefix = "tasklane:session:"

type redisRecord struct {
	AccountID int64     `json:"account_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Redis stores sessions as JSON values whose key TTL tracks the idle
// window, clipped to what remains of the absolute lifetime.
type Redis struct {
	client *redis.Client
	prefix string
	idle   time.Duration
	max    time.Duration
	now    func() time.Time
}

var _ auth.SessionStore = (*Redis)(nil)

// NewRedis builds a store on client. At least one of IdleTimeout and
// MaxLifetime must be set so keys do not live forever.
func NewRedis(client *redis.Client, opts Options) (*Redis, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	if opts.IdleTimeout <= 0 && opts.MaxLifetime <= 0 {
		return nil, errors.New("session: redis store needs an idle timeout or max lifetime")
	}
	return &Redis{
		client: client,
		prefix: defaultRedisPrefix,
		idle:   opts.IdleTimeout,
		max:    opts.MaxLifetime,
		now:    opts.clock(),
	}, nil
}

func (r *Redis) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *Redis) Create(ctx context.Context, identity auth.Identity) (string, error) {
	if !identity.Valid() {
		return "", errors.New("session: identity is incomplete")
	}
	now := r.now().UTC()
	data, err := json.Marshal(redisRecord{AccountID: identity.AccountID, Username: identity.Username, CreatedAt: now})
	if err != nil {
		return "", fmt.Errorf("session: marshal: %w", err)
	}
	ttl := r.ttl(now, now)
	for attempt := 0; attempt < 3; attempt++ {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		ok, err := r.client.SetNX(ctx, r.key(id), data, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("session: store: %w", err)
		}
		if ok {
			return id, nil
		}
	}
	return "", errors.New("session: could not allocate a unique id")
}

func (r *Redis) Lookup(ctx context.Context, sessionID string) (auth.Identity, error) {
	if sessionID == "" {
		return auth.Identity{}, auth.ErrSessionNotFound
	}
	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.Identity{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.Identity{}, fmt.Errorf("session: get: %w", err)
	}
	var rec redisRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return auth.Identity{}, fmt.Errorf("session: unmarshal: %w", err)
	}
	now := r.now().UTC()
	ttl := r.ttl(rec.CreatedAt, now)
	if ttl <= 0 {
		_ = r.client.Del(ctx, r.key(sessionID)).Err()
		return auth.Identity{}, auth.ErrSessionNotFound
	}
	if r.idle > 0 {
		if err := r.client.Expire(ctx, r.key(sessionID), ttl).Err(); err != nil {
			return auth.Identity{}, fmt.Errorf("session: refresh: %w", err)
		}
	}
	return auth.Identity{AccountID: rec.AccountID, Username: rec.Username}, nil
}

func (r *Redis) Invalidate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// Ping reports whether redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// ttl is the key lifetime for a session created at createdAt as seen at now.
func (r *Redis) ttl(createdAt, now time.Time) time.Duration {
	var remaining time.Duration
	if r.max > 0 {
		remaining = createdAt.Add(r.max).Sub(now)
		if remaining <= 0 {
			return 0
		}
	}
	if r.idle > 0 && (remaining == 0 || r.idle < remaining) {
		return r.idle
	}
	return remaining
}
