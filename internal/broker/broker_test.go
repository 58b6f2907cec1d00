package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBusRoutesEventsToHandlers(t *testing.T) {
	bus := NewLocalBus()
	handler := NewEventHandler()

	var mu sync.Mutex
	var created []string
	var paid []string

	handler.OnOrderCreated(func(ctx context.Context, e *models.OrderCreatedEvent) error {
		mu.Lock()
		defer mu.Unlock()
		created = append(created, e.OrderID)
		return nil
	})
	handler.OnPaymentSuccess(func(ctx context.Context, e *models.PaymentSuccessEvent) error {
		mu.Lock()
		defer mu.Unlock()
		paid = append(paid, e.TxID)
		return nil
	})
	bus.Subscribe(handler.HandleMessage)

	publisher := NewEventPublisher(bus)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, publisher.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
		BaseEvent: models.NewBaseEvent("e1", models.EventTypeOrderCreated, now),
		OrderID:   "order-1",
		Total:     1296,
	}))
	require.NoError(t, publisher.PublishPaymentSuccess(ctx, &models.PaymentSuccessEvent{
		BaseEvent: models.NewBaseEvent("e2", models.EventTypePaymentSuccess, now),
		OrderID:   "order-1",
		TxID:      "tx-1",
	}))
	// no handler registered for this type
	require.NoError(t, publisher.PublishOrderCancelled(ctx, &models.OrderCancelledEvent{
		BaseEvent: models.NewBaseEvent("e3", models.EventTypeOrderCancelled, now),
		OrderID:   "order-1",
	}))
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"order-1"}, created)
	assert.Equal(t, []string{"tx-1"}, paid)
}

func TestOrderKey(t *testing.T) {
	assert.Equal(t, "order-abc", orderKey("abc"))
}
