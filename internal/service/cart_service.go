package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/redisclient"
	"storefront/internal/util"

	"go.uber.org/zap"
)

const (
	cartLockTTL     = 5 * time.Second
	cartLockWait    = 3 * time.Second
	cartLockBackoff = 25 * time.Millisecond
)

// ErrCartBusy is returned when another request holds the session's cart for too long
var ErrCartBusy = apperr.New(apperr.Conflict, "cart is being updated, please retry")

// CartService serialises cart actions per session and persists the resulting snapshot
type CartService struct {
	carts   CartStore
	locks   Locker
	catalog ProductCatalog
	pricing cart.Policy
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(carts CartStore, locks Locker, catalog ProductCatalog, pricing cart.Policy) *CartService {
	return &CartService{
		carts:   carts,
		locks:   locks,
		catalog: catalog,
		pricing: pricing,
		logger:  util.GetLogger(),
	}
}

// Dispatch applies one action to the session's cart. The stored snapshot only changes when
// the save succeeds.
func (s *CartService) Dispatch(ctx context.Context, sessionID string, action cart.Action) (cart.State, cart.Effect, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Dispatch")
	defer span.End()

	if sessionID == "" {
		return cart.State{}, "", apperr.ValidationError("session id is required")
	}

	token, release, err := s.lockCart(ctx, sessionID)
	if err != nil {
		return cart.State{}, "", util.RecordError(span, err)
	}
	defer release()

	current, err := s.carts.LoadCart(ctx, sessionID)
	if err != nil {
		return cart.State{}, "", util.RecordError(span, err)
	}

	next, effect := cart.Reduce(current, action)
	util.CartActionsTotal.WithLabelValues(action.Name(), string(effect)).Inc()

	if effect == cart.Rejected {
		return current, effect, apperr.ValidationError("product is out of stock").WithCode(apperr.CodeOutOfStock)
	}
	if effect == cart.Unchanged {
		return current, effect, nil
	}

	if err := s.carts.SaveCart(ctx, sessionID, token, next); err != nil {
		if errors.Is(err, redisclient.ErrLockLost) {
			return current, "", ErrCartBusy
		}
		return current, "", util.RecordError(span, fmt.Errorf("failed to save cart: %w", err))
	}

	s.logger.Debug("Cart updated",
		zap.String("session_id", sessionID),
		zap.String("action", action.Name()),
		zap.String("effect", string(effect)),
		zap.Int("item_count", next.ItemCount))
	return next, effect, nil
}

// ErrCartNotCleared reports that Consume's callback succeeded but the emptied cart could not be saved
var ErrCartNotCleared = errors.New("cart was not cleared")

// Consume hands the session's cart to fn and empties it once fn succeeds. The session lock
// is held throughout, so lines added meanwhile wait and are never cleared unseen.
func (s *CartService) Consume(ctx context.Context, sessionID string, fn func(cart.State) error) error {
	ctx, span := util.StartSpan(ctx, "CartService.Consume")
	defer span.End()

	if sessionID == "" {
		return apperr.ValidationError("session id is required")
	}

	token, release, err := s.lockCart(ctx, sessionID)
	if err != nil {
		return util.RecordError(span, err)
	}
	defer release()

	current, err := s.carts.LoadCart(ctx, sessionID)
	if err != nil {
		return util.RecordError(span, err)
	}
	if err := fn(current); err != nil {
		return err
	}

	action := cart.Clear{}
	next, effect := cart.Reduce(current, action)
	util.CartActionsTotal.WithLabelValues(action.Name(), string(effect)).Inc()
	if effect == cart.Unchanged {
		return nil
	}
	if err := s.carts.SaveCart(ctx, sessionID, token, next); err != nil {
		return util.RecordError(span, fmt.Errorf("%w: %v", ErrCartNotCleared, err))
	}
	return nil
}

// AddProduct looks the product up in the catalog and adds one unit of it
func (s *CartService) AddProduct(ctx context.Context, sessionID, productID string) (cart.State, cart.Effect, error) {
	product, err := s.catalog.Get(productID)
	if err != nil {
		return cart.State{}, "", err
	}
	return s.Dispatch(ctx, sessionID, cart.AddItem{Product: product})
}

// Get returns the session's cart
func (s *CartService) Get(ctx context.Context, sessionID string) (cart.State, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Get")
	defer span.End()

	st, err := s.carts.LoadCart(ctx, sessionID)
	return st, util.RecordError(span, err)
}

// Summary returns the session's cart together with its priced totals
func (s *CartService) Summary(ctx context.Context, sessionID string) (cart.State, cart.Summary, error) {
	st, err := s.Get(ctx, sessionID)
	if err != nil {
		return cart.State{}, cart.Summary{}, err
	}
	return st, cart.PriceState(st, s.pricing), nil
}

// Price prices an already loaded cart
func (s *CartService) Price(st cart.State) cart.Summary {
	return cart.PriceState(st, s.pricing)
}

// Clear empties the session's cart
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	_, _, err := s.Dispatch(ctx, sessionID, cart.Clear{})
	return err
}

// lockCart takes the session lock and returns its token with the func that releases it
func (s *CartService) lockCart(ctx context.Context, sessionID string) (string, func(), error) {
	lockKey := redisclient.CartLockKey(sessionID)
	token, err := s.acquire(ctx, lockKey)
	if err != nil {
		return "", nil, err
	}
	return token, func() {
		if err := s.locks.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Warn("Failed to release cart lock", zap.String("session_id", sessionID), zap.Error(err))
		}
	}, nil
}

// acquire polls for the session lock until cartLockWait elapses
func (s *CartService) acquire(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, cartLockWait)
	defer cancel()

	for {
		token, ok, err := s.locks.AcquireLock(ctx, key, cartLockTTL)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if err := sleepContext(ctx, cartLockBackoff); err != nil {
			return "", ErrCartBusy
		}
	}
}
