package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Total number of orders placed",
	})

	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_cancelled_total",
		Help: "Total number of orders cancelled by customers",
	}, []string{"reason"})

	OrderStatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_status_transitions_total",
		Help: "Order status transitions",
	}, []string{"from", "to"})

	CartActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_actions_total",
		Help: "Cart actions by kind and outcome",
	}, []string{"action", "effect"})

	CheckoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_failures_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_attempts_total",
		Help: "Total number of payment attempts",
	})

	PaymentSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_success_total",
		Help: "Total number of successful payments",
	})

	PaymentFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_payment_failed_total",
		Help: "Total number of failed payments",
	})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_payment_processing_latency_seconds",
		Help:    "Latency of payment processing",
		Buckets: prometheus.DefBuckets,
	})

	ChatRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_chat_requests_total",
		Help: "Chat requests by outcome",
	}, []string{"outcome"})

	ChatRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_chat_retries_total",
		Help: "Generation calls retried after a rate limit",
	})

	ChatLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_chat_latency_seconds",
		Help:    "Latency of chat replies including retries",
		Buckets: []float64{.25, .5, 1, 2, 5, 10, 30, 60},
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
