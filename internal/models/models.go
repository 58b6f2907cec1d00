package models

import "time"

// Product represents a product in the catalog
type Product struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Price           int64             `json:"price"`
	Image           string            `json:"image"`
	Category        string            `json:"category"`
	Stock           int               `json:"stock"`
	Rating          float64           `json:"rating,omitempty"`
	Badges          []string          `json:"badges,omitempty"`
	CountryOfOrigin string            `json:"countryOfOrigin,omitempty"`
	Protocols       []string          `json:"protocols,omitempty"`
	UseCases        []string          `json:"useCases,omitempty"`
	KeySpecs        map[string]string `json:"keySpecs,omitempty"`
	Compatibility   []string          `json:"compatibility,omitempty"`
}

// CartLineItem is one product entry in a cart. Price and Stock are captured when the
// product is first added and are not re-read from the catalog afterwards.
type CartLineItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
}

// ShippingAddress represents a saved delivery address
type ShippingAddress struct {
	ID        string      `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"userId"`
	FullName  string      `db:"full_name" json:"fullName"`
	Phone     string      `db:"phone" json:"phone"`
	Street    string      `db:"street" json:"street"`
	City      string      `db:"city" json:"city"`
	State     string      `db:"state" json:"state"`
	Pincode   string      `db:"pincode" json:"pincode"`
	Country   string      `db:"country" json:"country"`
	IsDefault bool        `db:"is_default" json:"isDefault"`
	Type      AddressType `db:"type" json:"type"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// PaymentMethod represents a saved payment method. Only the last four card digits
// and the detected brand are kept.
type PaymentMethod struct {
	ID         string      `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"userId"`
	Type       PaymentType `db:"type" json:"type"`
	Last4      string      `db:"last4" json:"last4,omitempty"`
	CardType   string      `db:"card_type" json:"cardType,omitempty"`
	UPIID      string      `db:"upi_id" json:"upiId,omitempty"`
	ExpiryDate string      `db:"expiry_date" json:"expiryDate,omitempty"`
	NameOnCard string      `db:"name_on_card" json:"nameOnCard,omitempty"`
	IsDefault  bool        `db:"is_default" json:"isDefault"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// Order represents a placed customer order
type Order struct {
	ID                  string          `db:"id" json:"id"`
	OrderNumber         string          `db:"order_number" json:"orderNumber"`
	UserID              string          `db:"user_id" json:"userId"`
	Items               []OrderItem     `db:"-" json:"items"`
	Subtotal            int64           `db:"subtotal" json:"subtotal"`
	Shipping            int64           `db:"shipping" json:"shipping"`
	Tax                 int64           `db:"tax" json:"tax"`
	Total               int64           `db:"total" json:"total"`
	Status              OrderStatus     `db:"status" json:"status"`
	ShippingAddress     AddressSnapshot `db:"shipping_address" json:"shippingAddress"`
	PaymentMethod       PaymentSnapshot `db:"payment_method" json:"paymentMethod"`
	PaymentStatus       PaymentStatus   `db:"payment_status" json:"paymentStatus"`
	Notes               string          `db:"notes" json:"notes,omitempty"`
	IdempotencyKey      string          `db:"idempotency_key" json:"-"`
	TrackingNumber      string          `db:"tracking_number" json:"trackingNumber,omitempty"`
	TrackingURL         string          `db:"tracking_url" json:"trackingUrl,omitempty"`
	CancellationReason  string          `db:"cancellation_reason" json:"cancellationReason,omitempty"`
	CancellationComment string          `db:"cancellation_comment" json:"cancellationComment,omitempty"`
	EstimatedDelivery   *time.Time      `db:"estimated_delivery" json:"estimatedDelivery,omitempty"`
	CancelledAt         *time.Time      `db:"cancelled_at" json:"cancelledAt,omitempty"`
	DeliveredAt         *time.Time      `db:"delivered_at" json:"deliveredAt,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updatedAt"`
}

// OrderItem is a frozen copy of a cart line at checkout time
type OrderItem struct {
	ID        int64  `db:"id" json:"-"`
	OrderID   string `db:"order_id" json:"-"`
	ProductID string `db:"product_id" json:"productId"`
	Name      string `db:"name" json:"name"`
	Price     int64  `db:"price" json:"price"`
	Image     string `db:"image" json:"image"`
	Quantity  int    `db:"quantity" json:"quantity"`
	Total     int64  `db:"total" json:"total"`
}

// User is an identity known to the storefront
type User struct {
	ID           string    `db:"id" json:"uid"`
	Email        string    `db:"email" json:"email"`
	DisplayName  string    `db:"display_name" json:"displayName"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	LastLogin    time.Time `db:"last_login" json:"lastLogin"`
}

// ChatTurn is one message of a chat conversation
type ChatTurn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// ChatAction is a suggestion attached to an assistant reply
type ChatAction struct {
	Type  string            `json:"type"` // "search", "product" or "cart"
	Label string            `json:"label"`
	Data  map[string]string `json:"data,omitempty"`
}

// Address types
type AddressType string

const (
	AddressTypeHome  AddressType = "home"
	AddressTypeWork  AddressType = "work"
	AddressTypeOther AddressType = "other"
)

// Payment method types
type PaymentType string

const (
	PaymentTypeCreditCard PaymentType = "credit_card"
	PaymentTypeDebitCard  PaymentType = "debit_card"
	PaymentTypeUPI        PaymentType = "upi"
	PaymentTypeNetBanking PaymentType = "net_banking"
	PaymentTypeCOD        PaymentType = "cod"
)

// IsCard reports whether the type carries card details
func (t PaymentType) IsCard() bool {
	return t == PaymentTypeCreditCard || t == PaymentTypeDebitCard
}

// Valid reports whether t is a known payment type
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeCreditCard, PaymentTypeDebitCard, PaymentTypeUPI, PaymentTypeNetBanking, PaymentTypeCOD:
		return true
	}
	return false
}

// Roles
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleCustomer:   1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above required
func (r Role) AtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required] && roleRank[r] > 0
}
