package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

const checkoutKeyTTL = 24 * time.Hour

// CheckoutService turns a session's cart into an order
type CheckoutService struct {
	carts       *CartService
	orders      *OrderService
	idempotency IdempotencyStore
	logger      *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(carts *CartService, orders *OrderService, idempotency IdempotencyStore) *CheckoutService {
	return &CheckoutService{
		carts:       carts,
		orders:      orders,
		idempotency: idempotency,
		logger:      util.GetLogger(),
	}
}

// PlaceOrderRequest represents the checkout form
type PlaceOrderRequest struct {
	ShippingAddressID string `json:"shippingAddressId" binding:"required"`
	PaymentMethodID   string `json:"paymentMethodId" binding:"required"`
	Notes             string `json:"notes" binding:"max=500"`
	IdempotencyKey    string `json:"-"`
}

// checkoutKey scopes a client's idempotency key to the user who sent it
func checkoutKey(userID, key string) string {
	return fmt.Sprintf("checkout:%s:%s", userID, key)
}

// PlaceOrder creates an order from the cart and clears the cart once the order is stored.
// The cart stays locked from the read to the clear.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID, userID string, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	if req.IdempotencyKey != "" {
		if order := s.previousOrder(ctx, userID, req.IdempotencyKey); order != nil {
			return order, nil
		}
	}

	var order *models.Order
	loaded := false
	err := s.carts.Consume(ctx, sessionID, func(st cart.State) error {
		loaded = true
		if st.IsEmpty() {
			util.CheckoutFailuresTotal.WithLabelValues("cart_empty").Inc()
			return apperr.ValidationError("cart is empty").WithCode(apperr.CodeCartEmpty)
		}

		created, err := s.orders.CreateOrder(ctx, &CreateOrderRequest{
			UserID:            userID,
			Items:             st.Lines(),
			ShippingAddressID: req.ShippingAddressID,
			PaymentMethodID:   req.PaymentMethodID,
			Notes:             req.Notes,
			IdempotencyKey:    req.IdempotencyKey,
		})
		if err != nil {
			util.CheckoutFailuresTotal.WithLabelValues(apperr.KindOf(err).String()).Inc()
			return err
		}
		order = created
		return nil
	})
	if order == nil {
		if !loaded {
			util.CheckoutFailuresTotal.WithLabelValues("cart_unavailable").Inc()
		}
		return nil, util.RecordError(span, err)
	}
	if err != nil {
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("session_id", sessionID),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	if req.IdempotencyKey != "" {
		if err := s.idempotency.SetIdempotencyKey(ctx, checkoutKey(userID, req.IdempotencyKey), order.ID, checkoutKeyTTL); err != nil {
			s.logger.Warn("Failed to record idempotency key", zap.Error(err))
		}
	}

	return order, nil
}

// previousOrder returns the order userID already placed under key, if any
func (s *CheckoutService) previousOrder(ctx context.Context, userID, key string) *models.Order {
	orderID, found, err := s.idempotency.GetIdempotencyKey(ctx, checkoutKey(userID, key))
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}

	view, err := s.orders.GetOrderForUser(ctx, userID, orderID)
	if err != nil {
		s.logger.Warn("Ignoring idempotency key that does not resolve to the user's order",
			zap.String("idempotency_key", key),
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil
	}
	s.logger.Info("Duplicate checkout detected",
		zap.String("idempotency_key", key),
		zap.String("order_id", orderID))
	return &view.Order
}
