package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/service"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Source delivers messages to a handler until ctx ends. *broker.Consumer is one.
type Source interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// OrderWorker applies payment outcomes to orders
type OrderWorker struct {
	source       Source
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker. source may be nil when events arrive through a LocalBus.
func NewOrderWorker(source Source, reconciler *service.PaymentReconciler) *OrderWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnPaymentSuccess(reconciler.HandlePaymentSuccess)
	eventHandler.OnPaymentFailed(reconciler.HandlePaymentFailed)

	return &OrderWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.Named("order-worker"),
	}
}

// Handler routes one message; subscribe it to a LocalBus when Kafka is disabled
func (w *OrderWorker) Handler() broker.MessageHandler {
	return w.eventHandler.HandleMessage
}

// Start starts the worker
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")
	return w.source.StartConsuming(ctx, w.Handler())
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.source.Close()
}

// PaymentWorker charges newly created orders
type PaymentWorker struct {
	source       Source
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(source Source, paymentService *service.PaymentService) *PaymentWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCreated(paymentService.ProcessPayment)

	return &PaymentWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.Named("payment-worker"),
	}
}

// Handler routes one message; subscribe it to a LocalBus when Kafka is disabled
func (pw *PaymentWorker) Handler() broker.MessageHandler {
	return pw.eventHandler.HandleMessage
}

// Start starts the payment worker
func (pw *PaymentWorker) Start(ctx context.Context) error {
	pw.logger.Info("Starting payment worker")
	return pw.source.StartConsuming(ctx, pw.Handler())
}

// Stop stops the payment worker
func (pw *PaymentWorker) Stop() error {
	pw.logger.Info("Stopping payment worker")
	return pw.source.Close()
}
