package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/redisclient"
)

type fakePublisher struct {
	mu        sync.Mutex
	created   []*models.OrderCreatedEvent
	cancelled []*models.OrderCancelledEvent
	changed   []*models.OrderStatusChangedEvent
	succeeded []*models.PaymentSuccessEvent
	failed    []*models.PaymentFailedEvent
	err       error
}

func (p *fakePublisher) PublishOrderCreated(ctx context.Context, e *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *fakePublisher) PublishOrderCancelled(ctx context.Context, e *models.OrderCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, e)
	return p.err
}

func (p *fakePublisher) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

func (p *fakePublisher) PublishPaymentSuccess(ctx context.Context, e *models.PaymentSuccessEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.succeeded = append(p.succeeded, e)
	return p.err
}

func (p *fakePublisher) PublishPaymentFailed(ctx context.Context, e *models.PaymentFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, e)
	return p.err
}

// fakeCache stands in for Redis: carts, locks, idempotency keys and revoked tokens
type fakeCache struct {
	mu          sync.Mutex
	carts       map[string]cart.State
	locks       map[string]string
	keys        map[string]string
	revoked     map[string]time.Duration
	saveErr     error
	loadErr     error
	lockedCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		carts:   map[string]cart.State{},
		locks:   map[string]string{},
		keys:    map[string]string{},
		revoked: map[string]time.Duration{},
	}
}

func (c *fakeCache) LoadCart(ctx context.Context, sessionID string) (cart.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return cart.State{}, c.loadErr
	}
	st, ok := c.carts[sessionID]
	if !ok {
		return cart.Empty(), nil
	}
	return st, nil
}

func (c *fakeCache) SaveCart(ctx context.Context, sessionID, lockToken string, s cart.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	if c.locks[redisclient.CartLockKey(sessionID)] != lockToken {
		return redisclient.ErrLockLost
	}
	c.carts[sessionID] = s
	return nil
}

func (c *fakeCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockedCalls++
	if _, held := c.locks[key]; held {
		return "", false, nil
	}
	token := key + "-token"
	c.locks[key] = token
	return token, true, nil
}

func (c *fakeCache) ReleaseLock(ctx context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == token {
		delete(c.locks, key)
	}
	return nil
}

func (c *fakeCache) SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = value
	return nil
}

func (c *fakeCache) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.keys[key]
	return v, ok, nil
}

func (c *fakeCache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = ttl
	return nil
}

func (c *fakeCache) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.revoked[jti]
	return ok, nil
}

type fakeGenerator struct {
	replies []string
	errs    []error
	calls   int
	history []models.ChatTurn
}

func (g *fakeGenerator) Generate(ctx context.Context, userText string, history []models.ChatTurn) (string, error) {
	i := g.calls
	g.calls++
	g.history = history
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// interleavingRepo runs between once, right after the first order read, to let another
// writer change the order before the reader writes it back
type interleavingRepo struct {
	OrderRepository
	between func()
	once    sync.Once
}

func (r *interleavingRepo) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := r.OrderRepository.GetOrderByID(ctx, id)
	r.once.Do(r.between)
	return order, err
}
