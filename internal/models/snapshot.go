package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AddressSnapshot is the frozen shipping address stored on an order
type AddressSnapshot struct {
	FullName string      `json:"fullName"`
	Phone    string      `json:"phone"`
	Street   string      `json:"street"`
	City     string      `json:"city"`
	State    string      `json:"state"`
	Pincode  string      `json:"pincode"`
	Country  string      `json:"country"`
	Type     AddressType `json:"type,omitempty"`
}

// SnapshotOf copies an address without its id and default flag
func SnapshotOf(a ShippingAddress) AddressSnapshot {
	return AddressSnapshot{
		FullName: a.FullName,
		Phone:    a.Phone,
		Street:   a.Street,
		City:     a.City,
		State:    a.State,
		Pincode:  a.Pincode,
		Country:  a.Country,
		Type:     a.Type,
	}
}

// Value implements driver.Valuer (stored as JSONB)
func (a AddressSnapshot) Value() (driver.Value, error) {
	return marshalJSON(a)
}

// Scan implements sql.Scanner
func (a *AddressSnapshot) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// PaymentSnapshot is the frozen payment method stored on an order
type PaymentSnapshot struct {
	Type       PaymentType `json:"type"`
	Last4      string      `json:"last4,omitempty"`
	CardType   string      `json:"cardType,omitempty"`
	UPIID      string      `json:"upiId,omitempty"`
	ExpiryDate string      `json:"expiryDate,omitempty"`
	NameOnCard string      `json:"nameOnCard,omitempty"`
}

// PaymentSnapshotOf copies a payment method without its id and default flag
func PaymentSnapshotOf(p PaymentMethod) PaymentSnapshot {
	return PaymentSnapshot{
		Type:       p.Type,
		Last4:      p.Last4,
		CardType:   p.CardType,
		UPIID:      p.UPIID,
		ExpiryDate: p.ExpiryDate,
		NameOnCard: p.NameOnCard,
	}
}

// Value implements driver.Valuer (stored as JSONB)
func (p PaymentSnapshot) Value() (driver.Value, error) {
	return marshalJSON(p)
}

// Scan implements sql.Scanner
func (p *PaymentSnapshot) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// lib/pq sends []byte as bytea, so JSONB parameters go out as text
func marshalJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported snapshot source type %T", src)
	}
}
