package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// MemoryStore keeps everything in process memory. It backs DB_DRIVER=memory and service tests.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]models.Order
	addresses map[string]models.ShippingAddress
	payments  map[string]models.PaymentMethod
	users     map[string]models.User
	processed map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:    make(map[string]models.Order),
		addresses: make(map[string]models.ShippingAddress),
		payments:  make(map[string]models.PaymentMethod),
		users:     make(map[string]models.User),
		processed: make(map[string]string),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// orders

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.ID]; ok {
		return apperr.New(apperr.Conflict, "order already exists")
	}
	for _, o := range m.orders {
		if order.OrderNumber != "" && o.OrderNumber == order.OrderNumber {
			return apperr.New(apperr.Conflict, "order number already taken").WithCode(apperr.CodeDuplicateNumber)
		}
		if order.IdempotencyKey != "" && o.UserID == order.UserID && o.IdempotencyKey == order.IdempotencyKey {
			return apperr.New(apperr.Conflict, "order already exists")
		}
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		order.Items[i].ID = int64(i + 1)
	}
	m.orders[order.ID] = copyOrder(*order)
	return nil
}

func (m *MemoryStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFoundError("order", id)
	}
	c := copyOrder(o)
	return &c, nil
}

func (m *MemoryStore) GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			c := copyOrder(o)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	return m.selectOrders(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (m *MemoryStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return m.selectOrders(func(models.Order) bool { return true }), nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, order *models.Order, expected models.OrderState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[order.ID]
	if !ok {
		return apperr.NotFoundError("order", order.ID)
	}
	if o.State() != expected {
		return staleOrder(order.ID)
	}
	o.Status = order.Status
	o.PaymentStatus = order.PaymentStatus
	o.TrackingNumber = order.TrackingNumber
	o.TrackingURL = order.TrackingURL
	o.CancellationReason = order.CancellationReason
	o.CancellationComment = order.CancellationComment
	o.CancelledAt = order.CancelledAt
	o.DeliveredAt = order.DeliveredAt
	o.UpdatedAt = order.UpdatedAt
	m.orders[order.ID] = o
	return nil
}

func (m *MemoryStore) selectOrders(keep func(models.Order) bool) []models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}

// processed events

func (m *MemoryStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *MemoryStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = eventType
	return nil
}

// addresses

func (m *MemoryStore) ListAddresses(ctx context.Context, userID string) ([]models.ShippingAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.ShippingAddress{}
	for _, a := range m.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetAddress(ctx context.Context, userID, id string) (*models.ShippingAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return nil, apperr.NotFoundError("address", id)
	}
	return &a, nil
}

func (m *MemoryStore) CreateAddress(ctx context.Context, a *models.ShippingAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *a
	stored.IsDefault = false
	m.addresses[a.ID] = stored
	if a.IsDefault {
		m.setDefaultAddressLocked(a.UserID, a.ID)
	}
	return nil
}

func (m *MemoryStore) UpdateAddress(ctx context.Context, a *models.ShippingAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.addresses[a.ID]
	if !ok || cur.UserID != a.UserID {
		return apperr.NotFoundError("address", a.ID)
	}
	cur.FullName = a.FullName
	cur.Phone = a.Phone
	cur.Street = a.Street
	cur.City = a.City
	cur.State = a.State
	cur.Pincode = a.Pincode
	cur.Country = a.Country
	cur.Type = a.Type
	cur.UpdatedAt = a.UpdatedAt
	m.addresses[a.ID] = cur
	return nil
}

func (m *MemoryStore) DeleteAddress(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return apperr.NotFoundError("address", id)
	}
	delete(m.addresses, id)
	return nil
}

func (m *MemoryStore) SetDefaultAddress(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return apperr.NotFoundError("address", id)
	}
	m.setDefaultAddressLocked(userID, id)
	return nil
}

func (m *MemoryStore) setDefaultAddressLocked(userID, id string) {
	now := time.Now()
	for k, a := range m.addresses {
		if a.UserID != userID {
			continue
		}
		a.IsDefault = k == id
		a.UpdatedAt = now
		m.addresses[k] = a
	}
}

// payment methods

func (m *MemoryStore) ListPaymentMethods(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.PaymentMethod{}
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetPaymentMethod(ctx context.Context, userID, id string) (*models.PaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok || p.UserID != userID {
		return nil, apperr.NotFoundError("payment method", id)
	}
	return &p, nil
}

func (m *MemoryStore) CreatePaymentMethod(ctx context.Context, p *models.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *p
	stored.IsDefault = false
	m.payments[p.ID] = stored
	if p.IsDefault {
		m.setDefaultPaymentLocked(p.UserID, p.ID)
	}
	return nil
}

func (m *MemoryStore) UpdatePaymentMethod(ctx context.Context, p *models.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.payments[p.ID]
	if !ok || cur.UserID != p.UserID {
		return apperr.NotFoundError("payment method", p.ID)
	}
	cur.NameOnCard = p.NameOnCard
	cur.ExpiryDate = p.ExpiryDate
	cur.UPIID = p.UPIID
	cur.UpdatedAt = p.UpdatedAt
	m.payments[p.ID] = cur
	return nil
}

func (m *MemoryStore) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok || p.UserID != userID {
		return apperr.NotFoundError("payment method", id)
	}
	delete(m.payments, id)
	return nil
}

func (m *MemoryStore) SetDefaultPaymentMethod(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok || p.UserID != userID {
		return apperr.NotFoundError("payment method", id)
	}
	m.setDefaultPaymentLocked(userID, id)
	return nil
}

func (m *MemoryStore) setDefaultPaymentLocked(userID, id string) {
	now := time.Now()
	for k, p := range m.payments {
		if p.UserID != userID {
			continue
		}
		p.IsDefault = k == id
		p.UpdatedAt = now
		m.payments[k] = p
	}
}

// users

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.New(apperr.Conflict, "email already registered")
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFoundError("user", email)
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFoundError("user", id)
	}
	return &u, nil
}

func (m *MemoryStore) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return apperr.NotFoundError("user", id)
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *MemoryStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.LastLogin = at
		m.users[id] = u
	}
	return nil
}
