package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const orderColumns = `id, order_number, user_id, subtotal, shipping, tax, total, status,
	shipping_address, payment_method, payment_status, notes, idempotency_key,
	tracking_number, tracking_url, cancellation_reason, cancellation_comment,
	estimated_delivery, cancelled_at, delivered_at, created_at, updated_at`

// CreateOrder inserts an order together with its items
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES (:id, :order_number, :user_id, :subtotal, :shipping, :tax, :total, :status,
				:shipping_address, :payment_method, :payment_status, :notes, :idempotency_key,
				:tracking_number, :tracking_url, :cancellation_reason, :cancellation_comment,
				:estimated_delivery, :cancelled_at, :delivered_at, :created_at, :updated_at)`,
			order)
		if err != nil {
			return orderConflict(err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.GetContext(ctx, &item.ID, `
				INSERT INTO order_items (order_id, product_id, name, price, image, quantity, total)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				item.OrderID, item.ProductID, item.Name, item.Price, item.Image, item.Quantity, item.Total)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}
		return nil
	})
}

// GetOrderByID retrieves an order with its items
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundError("order", id)
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey returns nil when none of userID's orders carries key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND idempotency_key = $2", userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves a user's orders, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return orders, s.attachItemsToSlice(ctx, orders)
}

// ListOrders retrieves every order, newest first
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	return orders, s.attachItemsToSlice(ctx, orders)
}

type orderUpdate struct {
	models.Order
	ExpectedStatus        models.OrderStatus   `db:"expected_status"`
	ExpectedPaymentStatus models.PaymentStatus `db:"expected_payment_status"`
}

// UpdateOrder writes the mutable lifecycle fields of an order, but only while the stored
// statuses still equal expected. A lost race is a Conflict carrying CodeStaleOrder.
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order, expected models.OrderState) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE orders SET
			status = :status,
			payment_status = :payment_status,
			tracking_number = :tracking_number,
			tracking_url = :tracking_url,
			cancellation_reason = :cancellation_reason,
			cancellation_comment = :cancellation_comment,
			cancelled_at = :cancelled_at,
			delivered_at = :delivered_at,
			updated_at = :updated_at
		WHERE id = :id AND status = :expected_status AND payment_status = :expected_payment_status`,
		orderUpdate{Order: *order, ExpectedStatus: expected.Status, ExpectedPaymentStatus: expected.PaymentStatus})
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", order.ID); err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return apperr.NotFoundError("order", order.ID)
	}
	return staleOrder(order.ID)
}

func staleOrder(id string) error {
	return apperr.Newf(apperr.Conflict, "order %s was changed by another request", id).WithCode(apperr.CodeStaleOrder)
}

const orderNumberIndex = "idx_orders_number"

// orderConflict tells a taken order number apart from any other duplicate
func orderConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == orderNumberIndex {
		return apperr.Wrap(apperr.Conflict, "order number already taken", err).WithCode(apperr.CodeDuplicateNumber)
	}
	return conflictOr(err, "order already exists")
}

func (s *Store) attachItemsToSlice(ctx context.Context, orders []models.Order) error {
	ptrs := make([]*models.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	return s.attachItems(ctx, ptrs)
}

func (s *Store) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []models.OrderItem{}
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}

func expectOneRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundError(entity, id)
	}
	return nil
}
