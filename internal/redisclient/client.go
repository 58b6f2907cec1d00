package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cart"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

//go:embed scripts/save_if_owner.lua
var saveIfOwnerScript string

// ErrLockLost is returned when a fenced write finds the session lock expired or taken over
var ErrLockLost = errors.New("session lock lost")

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
	saveScript    *redis.Script
	cartTTL       time.Duration
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int, cartTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb, cartTTL), nil
}

func newClient(rdb *redis.Client, cartTTL time.Duration) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		saveScript:    redis.NewScript(saveIfOwnerScript),
		cartTTL:       cartTTL,
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartKey(sessionID string) string { return fmt.Sprintf("cart:%s", sessionID) }
func lockKey(key string) string       { return fmt.Sprintf("lock:%s", key) }
func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}
func revokedKey(jti string) string { return fmt.Sprintf("revoked:%s", jti) }

// LoadCart returns the stored cart snapshot, or an empty cart when none exists
func (c *Client) LoadCart(ctx context.Context, sessionID string) (cart.State, error) {
	raw, err := c.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Empty(), nil
	}
	if err != nil {
		return cart.State{}, fmt.Errorf("failed to load cart: %w", err)
	}

	var s cart.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return cart.State{}, fmt.Errorf("failed to decode cart: %w", err)
	}
	return cart.Normalize(s), nil
}

// SaveCart writes the snapshot only while lockToken still owns the session lock
func (c *Client) SaveCart(ctx context.Context, sessionID, lockToken string, s cart.State) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	res, err := c.saveScript.Run(ctx, c.rdb,
		[]string{lockKey(cartKey(sessionID)), cartKey(sessionID)},
		lockToken, payload, int(c.cartTTL.Seconds()),
	).Int()
	if err != nil {
		return fmt.Errorf("save cart script failed: %w", err)
	}
	if res != 1 {
		return ErrLockLost
	}
	return nil
}

// AcquireLock tries once to take a lock. The returned token must be passed to ReleaseLock.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return token, ok, nil
}

// ReleaseLock deletes the lock only when token still owns it
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	if err := c.releaseScript.Run(ctx, c.rdb, []string{lockKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// GetIdempotencyKey returns the stored value and whether the key exists
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// RevokeToken blacklists a token id until it would have expired anyway
func (c *Client) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti was revoked
func (c *Client) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CartLockKey is the lock name guarding a session's cart
func CartLockKey(sessionID string) string {
	return cartKey(sessionID)
}
