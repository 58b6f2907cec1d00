package models

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// position along the happy path; terminal side branches have none
var happyPath = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, onPath := happyPath[s]
	return onPath || s.IsTerminal()
}

// IsTerminal reports whether no transition may leave s
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanCancel reports whether a customer may still cancel
func (s OrderStatus) CanCancel() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// CanTransitionTo reports whether next is a legal move from s. Happy-path moves must go
// strictly forward; cancelled is reachable from pending/processing and refunded from delivered.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case OrderStatusCancelled:
		return s.CanCancel()
	case OrderStatusRefunded:
		return s == OrderStatusDelivered
	}
	from, ok := happyPath[s]
	if !ok {
		return false
	}
	to, ok := happyPath[next]
	if !ok {
		return false
	}
	return to > from
}

// PaymentStatus is the payment state of an order, independent of OrderStatus
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Cancellation reasons offered to customers
const (
	CancelReasonCheaperElsewhere = "found_cheaper_elsewhere"
	CancelReasonChangedMind      = "changed_mind"
	CancelReasonShippingTooLong  = "shipping_too_long"
	CancelReasonWrongItem        = "ordered_wrong_item"
	CancelReasonOther            = "other"
)

// ValidCancelReason reports whether reason is one of the offered reasons
func ValidCancelReason(reason string) bool {
	switch reason {
	case CancelReasonCheaperElsewhere, CancelReasonChangedMind, CancelReasonShippingTooLong,
		CancelReasonWrongItem, CancelReasonOther:
		return true
	}
	return false
}

// OrderState is the pair of statuses a conditional order update expects to find unchanged
type OrderState struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
}

// State returns the statuses o was read with
func (o *Order) State() OrderState {
	return OrderState{Status: o.Status, PaymentStatus: o.PaymentStatus}
}
