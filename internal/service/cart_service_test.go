package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/redisclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]models.Product{
		{ID: "1", Name: "ESP32 DevKit V1", Price: 799, Category: "Microcontrollers", Stock: 2},
		{ID: "2", Name: "DHT22 Sensor", Price: 299, Category: "Sensors", Stock: 10},
		{ID: "9", Name: "Sold Out Widget", Price: 100, Category: "Tools", Stock: 0},
	})
	require.NoError(t, err)
	return c
}

func newCartService(t *testing.T) (*CartService, *fakeCache) {
	cache := newFakeCache()
	return NewCartService(cache, cache, testCatalog(t), cart.DefaultPolicy()), cache
}

func TestCartAddProductPersistsState(t *testing.T) {
	svc, cache := newCartService(t)
	ctx := context.Background()

	st, effect, err := svc.AddProduct(ctx, "s1", "1")
	require.NoError(t, err)
	assert.Equal(t, cart.Applied, effect)
	assert.Equal(t, 1, st.ItemCount)
	assert.Equal(t, int64(799), st.Total)

	stored, err := cache.LoadCart(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, st, stored)
	assert.Empty(t, cache.locks, "lock must be released")
}

func TestCartAddProductClampsAtStock(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := svc.AddProduct(ctx, "s1", "1")
		require.NoError(t, err)
	}
	st, effect, err := svc.AddProduct(ctx, "s1", "1")
	require.NoError(t, err)
	assert.Equal(t, cart.Clamped, effect)
	assert.Equal(t, 2, st.Items["1"].Quantity)
}

func TestCartAddProductOutOfStock(t *testing.T) {
	svc, _ := newCartService(t)

	_, effect, err := svc.AddProduct(context.Background(), "s1", "9")
	assert.Equal(t, cart.Rejected, effect)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	assert.Equal(t, apperr.CodeOutOfStock, apperr.CodeOf(err))
}

func TestCartAddProductUnknown(t *testing.T) {
	svc, _ := newCartService(t)

	_, _, err := svc.AddProduct(context.Background(), "s1", "404")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestCartFailedSaveLeavesStateUntouched(t *testing.T) {
	svc, cache := newCartService(t)
	ctx := context.Background()

	_, _, err := svc.AddProduct(ctx, "s1", "2")
	require.NoError(t, err)

	cache.saveErr = errors.New("redis down")
	_, _, err = svc.Dispatch(ctx, "s1", cart.UpdateQuantity{ProductID: "2", Quantity: 5})
	require.Error(t, err)

	cache.saveErr = nil
	st, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Items["2"].Quantity)
	assert.Empty(t, cache.locks)
}

func TestCartDispatchWaitsForBusySession(t *testing.T) {
	svc, cache := newCartService(t)
	cache.locks[redisclient.CartLockKey("s1")] = "someone-else"

	_, _, err := svc.AddProduct(context.Background(), "s1", "2")
	assert.ErrorIs(t, err, ErrCartBusy)
	assert.Greater(t, cache.lockedCalls, 1)
}

func TestCartSummaryAndClear(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, _, err := svc.AddProduct(ctx, "s1", "2")
	require.NoError(t, err)

	st, summary, err := svc.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(299), st.Total)
	assert.Equal(t, cart.Summary{Subtotal: 299, Shipping: 50, Tax: 54, Total: 403}, summary)

	require.NoError(t, svc.Clear(ctx, "s1"))
	st, summary, err = svc.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, st.IsEmpty())
	assert.Equal(t, cart.Summary{}, summary)
}

func TestCartSessionsAreIsolated(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, _, err := svc.AddProduct(ctx, "s1", "2")
	require.NoError(t, err)

	other, err := svc.Get(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestCartDispatchRequiresSession(t *testing.T) {
	svc, _ := newCartService(t)
	_, _, err := svc.Dispatch(context.Background(), "", cart.Clear{})
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestCartConsumeClearsOnlyAfterSuccess(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()
	_, _, err := svc.AddProduct(ctx, "s1", "2")
	require.NoError(t, err)

	err = svc.Consume(ctx, "s1", func(st cart.State) error {
		assert.Equal(t, 1, st.ItemCount)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	st, _ := svc.Get(ctx, "s1")
	assert.Equal(t, 1, st.ItemCount)

	var seen int
	require.NoError(t, svc.Consume(ctx, "s1", func(st cart.State) error {
		seen = st.ItemCount
		return nil
	}))
	assert.Equal(t, 1, seen)
	st, _ = svc.Get(ctx, "s1")
	assert.True(t, st.IsEmpty())
}

func TestCartConsumeHoldsSessionLock(t *testing.T) {
	svc, cache := newCartService(t)
	ctx := context.Background()

	require.NoError(t, svc.Consume(ctx, "s1", func(cart.State) error {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		assert.Contains(t, cache.locks, redisclient.CartLockKey("s1"))
		return nil
	}))
	assert.NotContains(t, cache.locks, redisclient.CartLockKey("s1"))
}

func TestCartConsumeReportsFailedClear(t *testing.T) {
	svc, cache := newCartService(t)
	ctx := context.Background()
	_, _, err := svc.AddProduct(ctx, "s1", "2")
	require.NoError(t, err)
	cache.saveErr = assert.AnError

	err = svc.Consume(ctx, "s1", func(cart.State) error { return nil })
	assert.ErrorIs(t, err, ErrCartNotCleared)
}
