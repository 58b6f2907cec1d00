package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// PaymentReconciler applies payment outcomes to orders
type PaymentReconciler struct {
	orders OrderRepository
	ledger EventLedger
	now    func() time.Time
	logger *zap.Logger
}

// NewPaymentReconciler creates a new payment reconciler
func NewPaymentReconciler(orders OrderRepository, ledger EventLedger) *PaymentReconciler {
	return &PaymentReconciler{
		orders: orders,
		ledger: ledger,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

// HandlePaymentSuccess marks the order paid and starts processing a pending order
func (pr *PaymentReconciler) HandlePaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentReconciler.HandlePaymentSuccess")
	defer span.End()

	processed, err := pr.ledger.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		pr.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	pr.logger.Info("Handling payment success",
		zap.String("order_id", event.OrderID),
		zap.String("tx_id", event.TxID))

	order, read, err := updateOrder(ctx, pr.orders, event.OrderID, func(order *models.Order) error {
		order.PaymentStatus = models.PaymentStatusPaid
		if order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusProcessing
		}
		order.UpdatedAt = pr.now().UTC()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	from := read.Status

	if from != order.Status {
		util.OrderStatusTransitions.WithLabelValues(string(from), string(order.Status)).Inc()
	}

	if err := pr.ledger.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		pr.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	pr.logger.Info("Order paid",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)))
	return nil
}

// HandlePaymentFailed records the failed charge. The order itself is left for the customer to cancel.
func (pr *PaymentReconciler) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentReconciler.HandlePaymentFailed")
	defer span.End()

	processed, err := pr.ledger.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		pr.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	pr.logger.Warn("Handling payment failure",
		zap.String("order_id", event.OrderID),
		zap.String("reason", event.Reason))

	_, _, err = updateOrder(ctx, pr.orders, event.OrderID, func(order *models.Order) error {
		order.PaymentStatus = models.PaymentStatusFailed
		order.UpdatedAt = pr.now().UTC()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if err := pr.ledger.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		pr.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
