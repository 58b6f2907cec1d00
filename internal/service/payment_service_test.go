package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderCreated(orderID string, pt models.PaymentType) *models.OrderCreatedEvent {
	return &models.OrderCreatedEvent{
		BaseEvent:   models.NewBaseEvent("evt-"+orderID, models.EventTypeOrderCreated, time.Now()),
		OrderID:     orderID,
		Total:       403,
		PaymentType: pt,
	}
}

func TestProcessPayment(t *testing.T) {
	tests := []struct {
		name        string
		paymentType models.PaymentType
		roll        float64
		wantSuccess int
		wantFailed  int
	}{
		{"card approved", models.PaymentTypeCreditCard, 0.1, 1, 0},
		{"card declined", models.PaymentTypeDebitCard, 0.95, 0, 1},
		{"upi approved", models.PaymentTypeUPI, 0.89, 1, 0},
		{"cash on delivery", models.PaymentTypeCOD, 0.1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			ps := NewPaymentService(pub, 0.9, 0)
			ps.rand = func() float64 { return tt.roll }

			require.NoError(t, ps.ProcessPayment(context.Background(), orderCreated("o1", tt.paymentType)))
			assert.Len(t, pub.succeeded, tt.wantSuccess)
			assert.Len(t, pub.failed, tt.wantFailed)
		})
	}
}

func TestProcessPaymentHonoursCancellation(t *testing.T) {
	ps := NewPaymentService(&fakePublisher{}, 1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ps.ProcessPayment(ctx, orderCreated("o1", models.PaymentTypeUPI))
	assert.ErrorIs(t, err, context.Canceled)
}

func reconcilerFixture(t *testing.T, status models.OrderStatus) (*PaymentReconciler, *store.MemoryStore, string) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	require.NoError(t, ms.CreateOrder(ctx, &models.Order{
		ID: "o1", UserID: "u1", Status: status, PaymentStatus: models.PaymentStatusPending,
	}))
	return NewPaymentReconciler(ms, ms), ms, "o1"
}

func TestReconcilePaymentSuccessStartsProcessing(t *testing.T) {
	pr, ms, id := reconcilerFixture(t, models.OrderStatusPending)
	ctx := context.Background()

	event := &models.PaymentSuccessEvent{
		BaseEvent: models.NewBaseEvent("evt-1", models.EventTypePaymentSuccess, time.Now()),
		OrderID:   id,
		TxID:      "TXN-1",
	}
	require.NoError(t, pr.HandlePaymentSuccess(ctx, event))

	order, err := ms.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)

	processed, err := ms.IsEventProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestReconcilePaymentSuccessKeepsCancelledOrder(t *testing.T) {
	pr, ms, id := reconcilerFixture(t, models.OrderStatusCancelled)
	ctx := context.Background()

	event := &models.PaymentSuccessEvent{
		BaseEvent: models.NewBaseEvent("evt-1", models.EventTypePaymentSuccess, time.Now()),
		OrderID:   id,
	}
	require.NoError(t, pr.HandlePaymentSuccess(ctx, event))

	order, err := ms.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
}

func TestReconcilePaymentSuccessKeepsConcurrentCancel(t *testing.T) {
	_, ms, id := reconcilerFixture(t, models.OrderStatusPending)
	ctx := context.Background()
	orders := NewOrderService(ms, ms, &fakePublisher{}, cart.DefaultPolicy())

	racing := &interleavingRepo{OrderRepository: ms, between: func() {
		_, err := orders.CancelOrder(ctx, &CancelOrderRequest{
			OrderID: id, UserID: "u1", Reason: models.CancelReasonChangedMind,
		})
		require.NoError(t, err)
	}}
	pr := NewPaymentReconciler(racing, ms)

	event := &models.PaymentSuccessEvent{
		BaseEvent: models.NewBaseEvent("evt-1", models.EventTypePaymentSuccess, time.Now()),
		OrderID:   id,
	}
	require.NoError(t, pr.HandlePaymentSuccess(ctx, event))

	order, err := ms.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, models.CancelReasonChangedMind, order.CancellationReason)
	assert.NotNil(t, order.CancelledAt)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
}

func TestReconcilePaymentFailedKeepsConcurrentCancel(t *testing.T) {
	_, ms, id := reconcilerFixture(t, models.OrderStatusPending)
	ctx := context.Background()
	orders := NewOrderService(ms, ms, &fakePublisher{}, cart.DefaultPolicy())

	racing := &interleavingRepo{OrderRepository: ms, between: func() {
		_, err := orders.CancelOrder(ctx, &CancelOrderRequest{
			OrderID: id, UserID: "u1", Reason: models.CancelReasonChangedMind,
		})
		require.NoError(t, err)
	}}
	pr := NewPaymentReconciler(racing, ms)

	event := &models.PaymentFailedEvent{
		BaseEvent: models.NewBaseEvent("evt-2", models.EventTypePaymentFailed, time.Now()),
		OrderID:   id,
	}
	require.NoError(t, pr.HandlePaymentFailed(ctx, event))

	order, err := ms.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, models.CancelReasonChangedMind, order.CancellationReason)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
}

func TestReconcileSkipsProcessedEvents(t *testing.T) {
	pr, ms, id := reconcilerFixture(t, models.OrderStatusPending)
	ctx := context.Background()
	require.NoError(t, ms.MarkEventProcessed(ctx, "evt-1", models.EventTypePaymentFailed))

	event := &models.PaymentFailedEvent{
		BaseEvent: models.NewBaseEvent("evt-1", models.EventTypePaymentFailed, time.Now()),
		OrderID:   id,
		Reason:    "mock_payment_declined",
	}
	require.NoError(t, pr.HandlePaymentFailed(ctx, event))

	order, err := ms.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
}

func TestReconcilePaymentFailed(t *testing.T) {
	pr, ms, id := reconcilerFixture(t, models.OrderStatusPending)
	ctx := context.Background()

	event := &models.PaymentFailedEvent{
		BaseEvent: models.NewBaseEvent("evt-2", models.EventTypePaymentFailed, time.Now()),
		OrderID:   id,
	}
	require.NoError(t, pr.HandlePaymentFailed(ctx, event))

	order, err := ms.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
}

func TestPaymentFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	require.NoError(t, ms.CreateAddress(ctx, &models.ShippingAddress{ID: "a", UserID: "u1"}))
	require.NoError(t, ms.CreatePaymentMethod(ctx, &models.PaymentMethod{ID: "p", UserID: "u1", Type: models.PaymentTypeCreditCard, Last4: "4242"}))

	pub := &fakePublisher{}
	orders := NewOrderService(ms, ms, pub, cart.DefaultPolicy())
	payments := NewPaymentService(pub, 1, 0)
	reconciler := NewPaymentReconciler(ms, ms)

	order, err := orders.CreateOrder(ctx, &CreateOrderRequest{
		UserID: "u1", ShippingAddressID: "a", PaymentMethodID: "p",
		Items: []models.CartLineItem{{ProductID: "2", Name: "DHT22", Price: 299, Quantity: 1, Stock: 5}},
	})
	require.NoError(t, err)

	require.Len(t, pub.created, 1)
	require.NoError(t, payments.ProcessPayment(ctx, pub.created[0]))
	require.Len(t, pub.succeeded, 1)
	require.NoError(t, reconciler.HandlePaymentSuccess(ctx, pub.succeeded[0]))

	stored, err := orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
}
