package service

import (
	"context"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
)

// OrderRepository persists orders and their items. UpdateOrder only writes while the stored
// statuses still equal expected and otherwise fails with apperr.CodeStaleOrder.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order, expected models.OrderState) error
}

// EventLedger remembers consumed event ids
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ProfileRepository persists per-user addresses and payment methods. Every lookup is scoped by user id.
type ProfileRepository interface {
	ListAddresses(ctx context.Context, userID string) ([]models.ShippingAddress, error)
	GetAddress(ctx context.Context, userID, id string) (*models.ShippingAddress, error)
	CreateAddress(ctx context.Context, a *models.ShippingAddress) error
	UpdateAddress(ctx context.Context, a *models.ShippingAddress) error
	DeleteAddress(ctx context.Context, userID, id string) error
	SetDefaultAddress(ctx context.Context, userID, id string) error

	ListPaymentMethods(ctx context.Context, userID string) ([]models.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, userID, id string) (*models.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, p *models.PaymentMethod) error
	UpdatePaymentMethod(ctx context.Context, p *models.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, userID, id string) error
	SetDefaultPaymentMethod(ctx context.Context, userID, id string) error
}

// UserRepository persists identities
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// CartStore keeps one cart snapshot per session. Writes are fenced by the session lock token.
type CartStore interface {
	LoadCart(ctx context.Context, sessionID string) (cart.State, error)
	SaveCart(ctx context.Context, sessionID, lockToken string, s cart.State) error
}

// Locker hands out expiring named locks
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// IdempotencyStore remembers request keys for a while
type IdempotencyStore interface {
	SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
}

// TokenRevoker tracks signed-out tokens
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// OrderEventPublisher publishes order lifecycle events
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// PaymentEventPublisher publishes payment outcomes
type PaymentEventPublisher interface {
	PublishPaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// ProductCatalog resolves products
type ProductCatalog interface {
	Get(id string) (models.Product, error)
	List() []models.Product
}
