package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService settles orders against a simulated provider
type PaymentService struct {
	eventPublisher PaymentEventPublisher
	logger         *zap.Logger
	successRate    float64 // Mock success rate (0.0 - 1.0)
	delay          time.Duration
	rand           func() float64
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewPaymentService creates a new payment service
func NewPaymentService(eventPublisher PaymentEventPublisher, successRate float64, delay time.Duration) *PaymentService {
	return &PaymentService{
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		successRate:    successRate,
		delay:          delay,
		rand:           rand.Float64,
		sleep:          sleepContext,
	}
}

// ProcessPayment charges an order announced by ORDER_CREATED. Cash on delivery is collected
// later and publishes nothing.
func (ps *PaymentService) ProcessPayment(ctx context.Context, event *models.OrderCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessPayment")
	defer span.End()

	if event.PaymentType == models.PaymentTypeCOD {
		ps.logger.Info("Cash on delivery, payment stays pending", zap.String("order_id", event.OrderID))
		return nil
	}

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	ps.logger.Info("Processing payment",
		zap.String("order_id", event.OrderID),
		zap.Int64("amount", event.Total))

	if ps.delay > 0 {
		if err := ps.sleep(ctx, ps.delay); err != nil {
			return fmt.Errorf("payment interrupted: %w", err)
		}
	}

	if ps.rand() < ps.successRate {
		providerTxID := fmt.Sprintf("TXN-%s", uuid.New().String()[:8])
		ps.logger.Info("Payment succeeded",
			zap.String("order_id", event.OrderID),
			zap.String("tx_id", providerTxID))
		util.PaymentSuccessTotal.Inc()

		success := &models.PaymentSuccessEvent{
			BaseEvent: models.NewBaseEvent(uuid.New().String(), models.EventTypePaymentSuccess, time.Now()),
			OrderID:   event.OrderID,
			Amount:    event.Total,
			TxID:      providerTxID,
		}
		if err := ps.eventPublisher.PublishPaymentSuccess(ctx, success); err != nil {
			ps.logger.Error("Failed to publish PaymentSuccess event", zap.Error(err))
		}
		return nil
	}

	ps.logger.Warn("Payment failed", zap.String("order_id", event.OrderID))
	util.PaymentFailedTotal.Inc()

	failed := &models.PaymentFailedEvent{
		BaseEvent: models.NewBaseEvent(uuid.New().String(), models.EventTypePaymentFailed, time.Now()),
		OrderID:   event.OrderID,
		Reason:    "mock_payment_declined",
	}
	if err := ps.eventPublisher.PublishPaymentFailed(ctx, failed); err != nil {
		ps.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
