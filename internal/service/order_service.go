package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	deliveryEstimate = 5 * 24 * time.Hour
	returnWindow     = 7 * 24 * time.Hour
)

// OrderService handles order business logic
type OrderService struct {
	orders         OrderRepository
	profiles       ProfileRepository
	eventPublisher OrderEventPublisher
	pricing        cart.Policy
	numbers        *orderNumbers
	now            func() time.Time
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orders OrderRepository,
	profiles ProfileRepository,
	eventPublisher OrderEventPublisher,
	pricing cart.Policy,
) *OrderService {
	return &OrderService{
		orders:         orders,
		profiles:       profiles,
		eventPublisher: eventPublisher,
		pricing:        pricing,
		numbers:        &orderNumbers{},
		now:            time.Now,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserID            string
	Items             []models.CartLineItem
	ShippingAddressID string
	PaymentMethodID   string
	Notes             string
	IdempotencyKey    string
}

// CancelOrderRequest represents a customer cancellation
type CancelOrderRequest struct {
	OrderID string
	UserID  string
	Reason  string
	Comment string
}

// AdvanceStatusRequest represents an admin status change
type AdvanceStatusRequest struct {
	OrderID        string             `json:"-"`
	Status         models.OrderStatus `json:"status" binding:"required"`
	TrackingNumber string             `json:"trackingNumber"`
	TrackingURL    string             `json:"trackingUrl"`
}

// OrderView is an order with the actions its owner may still take
type OrderView struct {
	models.Order
	CanCancel bool `json:"canCancel"`
	CanReturn bool `json:"canReturn"`
}

// OrderStats summarises all orders for the admin dashboard
type OrderStats struct {
	Total    int                        `json:"total"`
	ByStatus map[models.OrderStatus]int `json:"byStatus"`
	Revenue  int64                      `json:"revenue"`
}

// CreateOrder freezes the cart lines, address and payment method into a new pending order
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, apperr.ValidationError("cart is empty").WithCode(apperr.CodeCartEmpty)
	}

	if req.IdempotencyKey != "" {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID))
			return existing, nil
		}
	}

	if req.ShippingAddressID == "" {
		return nil, apperr.ValidationError("shipping address is required")
	}
	if req.PaymentMethodID == "" {
		return nil, apperr.ValidationError("payment method is required")
	}

	address, err := s.profiles.GetAddress(ctx, req.UserID, req.ShippingAddressID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	payment, err := s.profiles.GetPaymentMethod(ctx, req.UserID, req.PaymentMethodID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var subtotal int64
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, apperr.Newf(apperr.Validation, "invalid quantity for product %s", line.ProductID)
		}
		lineTotal := line.Price * int64(line.Quantity)
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Image:     line.Image,
			Quantity:  line.Quantity,
			Total:     lineTotal,
		})
	}
	summary := cart.Price(subtotal, s.pricing)

	now := s.now().UTC()
	eta := now.Add(deliveryEstimate)
	order := &models.Order{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		Items:             items,
		Subtotal:          summary.Subtotal,
		Shipping:          summary.Shipping,
		Tax:               summary.Tax,
		Total:             summary.Total,
		Status:            models.OrderStatusPending,
		ShippingAddress:   models.SnapshotOf(*address),
		PaymentMethod:     models.PaymentSnapshotOf(*payment),
		PaymentStatus:     models.PaymentStatusPending,
		Notes:             req.Notes,
		IdempotencyKey:    req.IdempotencyKey,
		EstimatedDelivery: &eta,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.insertOrder(ctx, order); err != nil {
		if req.IdempotencyKey != "" && apperr.IsKind(err, apperr.Conflict) {
			if existing, lookupErr := s.orders.GetOrderByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		util.CheckoutFailuresTotal.WithLabelValues("db_error").Inc()
		return nil, util.RecordError(span, fmt.Errorf("failed to create order: %w", err))
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.Total))

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}

	event := &models.OrderCreatedEvent{
		BaseEvent:   models.NewBaseEvent(uuid.New().String(), models.EventTypeOrderCreated, time.Now()),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total,
		PaymentType: order.PaymentMethod.Type,
		Items:       eventItems,
	}

	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	return order, nil
}

// GetOrderForUser retrieves an order owned by userID. Foreign orders are reported as missing.
func (s *OrderService) GetOrderForUser(ctx context.Context, userID, orderID string) (*OrderView, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperr.NotFoundError("order", orderID)
	}
	view := s.view(*order)
	return &view, nil
}

// GetUserOrders returns a user's orders, newest first
func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetUserOrders")
	defer span.End()

	orders, err := s.orders.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list orders: %w", err))
	}
	return s.views(orders), nil
}

// ListOrders returns every order, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list orders: %w", err))
	}
	sortNewestFirst(orders)
	return orders, nil
}

// CancelOrder cancels a pending or processing order on behalf of its owner
func (s *OrderService) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	if req.Reason == "" {
		return nil, apperr.ValidationError("cancellation reason is required")
	}
	if !models.ValidCancelReason(req.Reason) {
		return nil, apperr.Newf(apperr.Validation, "unknown cancellation reason: %s", req.Reason)
	}

	now := s.now().UTC()
	order, read, err := updateOrder(ctx, s.orders, req.OrderID, func(order *models.Order) error {
		if order.UserID != req.UserID {
			return apperr.NotFoundError("order", req.OrderID)
		}
		if !order.Status.CanCancel() {
			return apperr.InvalidTransitionError("order %s cannot be cancelled while %s", order.OrderNumber, order.Status)
		}
		order.Status = models.OrderStatusCancelled
		order.CancellationReason = req.Reason
		order.CancellationComment = req.Comment
		order.CancelledAt = &now
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to cancel order: %w", err))
	}
	from := read.Status

	util.OrdersCancelledTotal.WithLabelValues(req.Reason).Inc()
	util.OrderStatusTransitions.WithLabelValues(string(from), string(order.Status)).Inc()
	s.logger.Info("Order cancelled",
		zap.String("order_id", order.ID),
		zap.String("reason", req.Reason))

	event := &models.OrderCancelledEvent{
		BaseEvent: models.NewBaseEvent(uuid.New().String(), models.EventTypeOrderCancelled, time.Now()),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Reason:    req.Reason,
		Comment:   req.Comment,
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	return order, nil
}

// AdvanceStatus moves an order along its lifecycle on behalf of an admin
func (s *OrderService) AdvanceStatus(ctx context.Context, req *AdvanceStatusRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdvanceStatus")
	defer span.End()

	if !req.Status.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown order status: %s", req.Status)
	}

	now := s.now().UTC()
	order, read, err := updateOrder(ctx, s.orders, req.OrderID, func(order *models.Order) error {
		if !order.Status.CanTransitionTo(req.Status) {
			return apperr.InvalidTransitionError("cannot move order %s from %s to %s", order.OrderNumber, order.Status, req.Status)
		}
		order.Status = req.Status
		order.UpdatedAt = now
		switch req.Status {
		case models.OrderStatusShipped:
			order.TrackingNumber = req.TrackingNumber
			order.TrackingURL = req.TrackingURL
		case models.OrderStatusDelivered:
			order.DeliveredAt = &now
		case models.OrderStatusCancelled:
			order.CancelledAt = &now
		case models.OrderStatusRefunded:
			if order.PaymentStatus == models.PaymentStatusPaid {
				order.PaymentStatus = models.PaymentStatusRefunded
			}
		}
		return nil
	})
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to update order status: %w", err))
	}
	from := read.Status

	util.OrderStatusTransitions.WithLabelValues(string(from), string(order.Status)).Inc()
	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)))

	event := &models.OrderStatusChangedEvent{
		BaseEvent:      models.NewBaseEvent(uuid.New().String(), models.EventTypeOrderStatusChanged, time.Now()),
		OrderID:        order.ID,
		From:           from,
		To:             order.Status,
		TrackingNumber: order.TrackingNumber,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return order, nil
}

// Stats counts orders per status. Cancelled and refunded orders earn no revenue.
func (s *OrderService) Stats(ctx context.Context) (*OrderStats, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{ByStatus: map[models.OrderStatus]int{}}
	for _, o := range orders {
		stats.Total++
		stats.ByStatus[o.Status]++
		if !o.Status.IsTerminal() {
			stats.Revenue += o.Total
		}
	}
	return stats, nil
}

func (s *OrderService) views(orders []models.Order) []OrderView {
	sortNewestFirst(orders)
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, s.view(o))
	}
	return views
}

func (s *OrderService) view(o models.Order) OrderView {
	v := OrderView{Order: o, CanCancel: o.Status.CanCancel()}
	if o.Status == models.OrderStatusDelivered && o.DeliveredAt != nil {
		v.CanReturn = s.now().Sub(*o.DeliveredAt) <= returnWindow
	}
	return v
}

const maxOrderUpdateAttempts = 3

// updateOrder reads the order, lets mutate change it and writes it back conditioned on the
// statuses it was read with. When another writer got there first the order is read again and
// mutate decides afresh, so a concurrent cancel is never overwritten.
func updateOrder(
	ctx context.Context,
	orders OrderRepository,
	id string,
	mutate func(*models.Order) error,
) (*models.Order, models.OrderState, error) {
	for attempt := 1; ; attempt++ {
		order, err := orders.GetOrderByID(ctx, id)
		if err != nil {
			return nil, models.OrderState{}, err
		}
		read := order.State()
		if err := mutate(order); err != nil {
			return nil, read, err
		}

		err = orders.UpdateOrder(ctx, order, read)
		if err == nil {
			return order, read, nil
		}
		if apperr.CodeOf(err) != apperr.CodeStaleOrder || attempt == maxOrderUpdateAttempts {
			return nil, read, err
		}
		util.GetLogger().Debug("Order changed concurrently, retrying",
			zap.String("order_id", id),
			zap.Int("attempt", attempt))
	}
}

const maxOrderNumberAttempts = 3

// orderNumbers hands out BE<unix millis> numbers that never repeat within this process
type orderNumbers struct {
	mu   sync.Mutex
	last int64
}

func (n *orderNumbers) next(now time.Time) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return fmt.Sprintf("BE%d", ms)
}

// insertOrder numbers and stores order. A number already taken by another instance is
// replaced with the next free one.
func (s *OrderService) insertOrder(ctx context.Context, order *models.Order) error {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.numbers.next(order.CreatedAt)
		err := s.orders.CreateOrder(ctx, order)
		if err == nil || apperr.CodeOf(err) != apperr.CodeDuplicateNumber || attempt == maxOrderNumberAttempts {
			return err
		}
		s.logger.Warn("Order number taken, renumbering", zap.String("order_number", order.OrderNumber))
	}
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
