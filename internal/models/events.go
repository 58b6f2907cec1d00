package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypePaymentSuccess     = "PAYMENT_SUCCESS"
	EventTypePaymentFailed      = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is placed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Total       int64           `json:"total"`
	PaymentType PaymentType     `json:"payment_type"`
	Items       []OrderItemData `json:"items"`
}

// OrderCancelledEvent published when a customer cancels
type OrderCancelledEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Reason  string `json:"reason"`
	Comment string `json:"comment,omitempty"`
}

// OrderStatusChangedEvent published on every admin status advance
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID        string      `json:"order_id"`
	From           OrderStatus `json:"from"`
	To             OrderStatus `json:"to"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
}

// PaymentSuccessEvent published by the payment service
type PaymentSuccessEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	TxID    string `json:"tx_id"`
}

// PaymentFailedEvent published by the payment service
type PaymentFailedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// NewBaseEvent stamps an event envelope
func NewBaseEvent(id, eventType string, at time.Time) BaseEvent {
	return BaseEvent{EventID: id, EventType: eventType, Timestamp: at}
}
