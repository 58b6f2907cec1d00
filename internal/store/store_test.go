package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStoreWithDB(sqlx.NewDb(db, "postgres")), mock
}

func TestSetDefaultAddressFlipsAllFlagsInOneStatement(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM shipping_addresses").
		WithArgs("addr-2", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE shipping_addresses SET is_default = \\(id = \\$2\\)").
		WithArgs("user-1", "addr-2").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := s.SetDefaultAddress(context.Background(), "user-1", "addr-2")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDefaultPaymentMethodForeignIDRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM payment_methods").
		WithArgs("pm-9", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := s.SetDefaultPaymentMethod(context.Background(), "user-1", "pm-9")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAddressAsDefault(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	a := &models.ShippingAddress{
		ID: "addr-1", UserID: "user-1", FullName: "Asha Rao", Phone: "9876543210", Street: "12 MG Road",
		City: "Bengaluru", State: "KA", Pincode: "560001", Country: "India", Type: models.AddressTypeHome,
		IsDefault: true, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shipping_addresses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("addr-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE shipping_addresses SET is_default").WithArgs("user-1", "addr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.CreateAddress(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAddressMissingRowIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE shipping_addresses").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateAddress(context.Background(), &models.ShippingAddress{ID: "addr-1", UserID: "someone-else"})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM orders WHERE id = \\$1").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := s.GetOrderByID(context.Background(), "missing")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByIDLoadsItemsAndSnapshots(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	eta := created.Add(5 * 24 * time.Hour)

	orderRows := sqlmock.NewRows([]string{
		"id", "order_number", "user_id", "subtotal", "shipping", "tax", "total", "status",
		"shipping_address", "payment_method", "payment_status", "notes", "idempotency_key",
		"tracking_number", "tracking_url", "cancellation_reason", "cancellation_comment",
		"estimated_delivery", "cancelled_at", "delivered_at", "created_at", "updated_at",
	}).AddRow(
		"order-1", "BE1709287200000", "user-1", 1098, 0, 198, 1296, "pending",
		[]byte(`{"fullName":"Asha Rao","city":"Bengaluru","pincode":"560001"}`),
		[]byte(`{"type":"upi","upiId":"asha@okbank"}`),
		"pending", "", "key-1", "", "", "", "",
		eta, nil, nil, created, created,
	)
	mock.ExpectQuery("FROM orders WHERE id = \\$1").WithArgs("order-1").WillReturnRows(orderRows)

	itemRows := sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "price", "image", "quantity", "total"}).
		AddRow(1, "order-1", "1", "ESP32 DevKit V1", 799, "esp.jpg", 1, 799).
		AddRow(2, "order-1", "2", "DHT22", 299, "dht.jpg", 1, 299)
	mock.ExpectQuery("SELECT \\* FROM order_items WHERE order_id IN \\(\\$1\\)").
		WithArgs("order-1").
		WillReturnRows(itemRows)

	order, err := s.GetOrderByID(context.Background(), "order-1")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "Asha Rao", order.ShippingAddress.FullName)
	assert.Equal(t, "asha@okbank", order.PaymentMethod.UPIID)
	require.NotNil(t, order.EstimatedDelivery)
	assert.True(t, eta.Equal(*order.EstimatedDelivery))
	assert.Nil(t, order.CancelledAt)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(299), order.Items[1].Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByIdempotencyKeyIsScopedToUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM orders WHERE user_id = \\$1 AND idempotency_key = \\$2").
		WithArgs("user-2", "k").
		WillReturnError(sql.ErrNoRows)

	order, err := s.GetOrderByIdempotencyKey(context.Background(), "user-2", "k")
	assert.NoError(t, err)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderOnlyWhileStatusesUnchanged(t *testing.T) {
	s, mock := newMockStore(t)
	order := &models.Order{ID: "o1", Status: models.OrderStatusProcessing, PaymentStatus: models.PaymentStatusPaid}
	expected := models.OrderState{Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}

	mock.ExpectExec("WHERE id = \\$10 AND status = \\$11 AND payment_status = \\$12").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateOrder(context.Background(), order, expected))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderLostRaceIsStale(t *testing.T) {
	s, mock := newMockStore(t)
	order := &models.Order{ID: "o1", Status: models.OrderStatusProcessing}
	expected := models.OrderState{Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}

	mock.ExpectExec("UPDATE orders SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM orders WHERE id = \\$1\\)").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := s.UpdateOrder(context.Background(), order, expected)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
	assert.Equal(t, apperr.CodeStaleOrder, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderMissingRowIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE orders SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("o9").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := s.UpdateOrder(context.Background(), &models.Order{ID: "o9"}, models.OrderState{})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTakenNumberIsDuplicateNumber(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_orders_number", Message: "duplicate key"})
	mock.ExpectRollback()

	err := s.CreateOrder(context.Background(), &models.Order{ID: "o1", OrderNumber: "BE1"})
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
	assert.Equal(t, apperr.CodeDuplicateNumber, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmailIsConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	err := s.CreateUser(context.Background(), &models.User{ID: "u", Email: "a@b.co"})
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessedEvents(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM processed_events").WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO processed_events").WithArgs("evt-1", models.EventTypePaymentSuccess).
		WillReturnResult(sqlmock.NewResult(0, 1))

	done, err := s.IsEventProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, done)
	require.NoError(t, s.MarkEventProcessed(context.Background(), "evt-1", models.EventTypePaymentSuccess))
	assert.NoError(t, mock.ExpectationsWereMet())
}
