package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

const (
	addressTable = "shipping_addresses"
	paymentTable = "payment_methods"
)

// ListAddresses returns the default address first, then newest first
func (s *Store) ListAddresses(ctx context.Context, userID string) ([]models.ShippingAddress, error) {
	addresses := []models.ShippingAddress{}
	err := s.db.SelectContext(ctx, &addresses,
		"SELECT * FROM shipping_addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC", userID)
	return addresses, err
}

// GetAddress retrieves an address owned by userID
func (s *Store) GetAddress(ctx context.Context, userID, id string) (*models.ShippingAddress, error) {
	var a models.ShippingAddress
	err := s.db.GetContext(ctx, &a,
		"SELECT * FROM shipping_addresses WHERE id = $1 AND user_id = $2", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundError("address", id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAddress inserts an address; when IsDefault is set every other address of the user loses the flag
func (s *Store) CreateAddress(ctx context.Context, a *models.ShippingAddress) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shipping_addresses
				(id, user_id, full_name, phone, street, city, state, pincode, country, is_default, type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11, $12)`,
			a.ID, a.UserID, a.FullName, a.Phone, a.Street, a.City, a.State, a.Pincode, a.Country,
			a.Type, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert address: %w", err)
		}
		if a.IsDefault {
			return setDefaultTx(ctx, tx, addressTable, a.UserID, a.ID)
		}
		return nil
	})
}

// UpdateAddress rewrites the editable fields of an address
func (s *Store) UpdateAddress(ctx context.Context, a *models.ShippingAddress) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shipping_addresses
		SET full_name = $1, phone = $2, street = $3, city = $4, state = $5, pincode = $6,
			country = $7, type = $8, updated_at = $9
		WHERE id = $10 AND user_id = $11`,
		a.FullName, a.Phone, a.Street, a.City, a.State, a.Pincode, a.Country, a.Type, a.UpdatedAt,
		a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	return expectOneRow(res, "address", a.ID)
}

// DeleteAddress removes an address. No other address is promoted.
func (s *Store) DeleteAddress(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM shipping_addresses WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return expectOneRow(res, "address", id)
}

// SetDefaultAddress makes id the only default address of userID
func (s *Store) SetDefaultAddress(ctx context.Context, userID, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return setDefaultTx(ctx, tx, addressTable, userID, id)
	})
}

// ListPaymentMethods returns the default method first, then newest first
func (s *Store) ListPaymentMethods(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	methods := []models.PaymentMethod{}
	err := s.db.SelectContext(ctx, &methods,
		"SELECT * FROM payment_methods WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC", userID)
	return methods, err
}

// GetPaymentMethod retrieves a payment method owned by userID
func (s *Store) GetPaymentMethod(ctx context.Context, userID, id string) (*models.PaymentMethod, error) {
	var p models.PaymentMethod
	err := s.db.GetContext(ctx, &p,
		"SELECT * FROM payment_methods WHERE id = $1 AND user_id = $2", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundError("payment method", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePaymentMethod inserts a payment method, honouring IsDefault like CreateAddress
func (s *Store) CreatePaymentMethod(ctx context.Context, p *models.PaymentMethod) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payment_methods
				(id, user_id, type, last4, card_type, upi_id, expiry_date, name_on_card, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10)`,
			p.ID, p.UserID, p.Type, p.Last4, p.CardType, p.UPIID, p.ExpiryDate, p.NameOnCard,
			p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment method: %w", err)
		}
		if p.IsDefault {
			return setDefaultTx(ctx, tx, paymentTable, p.UserID, p.ID)
		}
		return nil
	})
}

// UpdatePaymentMethod rewrites holder name, expiry and UPI handle
func (s *Store) UpdatePaymentMethod(ctx context.Context, p *models.PaymentMethod) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_methods
		SET name_on_card = $1, expiry_date = $2, upi_id = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6`,
		p.NameOnCard, p.ExpiryDate, p.UPIID, p.UpdatedAt, p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to update payment method: %w", err)
	}
	return expectOneRow(res, "payment method", p.ID)
}

// DeletePaymentMethod removes a payment method
func (s *Store) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM payment_methods WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}
	return expectOneRow(res, "payment method", id)
}

// SetDefaultPaymentMethod makes id the only default payment method of userID
func (s *Store) SetDefaultPaymentMethod(ctx context.Context, userID, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return setDefaultTx(ctx, tx, paymentTable, userID, id)
	})
}

// setDefaultTx flips every flag of the user in one statement, so no reader ever sees two defaults
func setDefaultTx(ctx context.Context, tx *sqlx.Tx, table, userID, id string) error {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1 AND user_id = $2)", table), id, userID)
	if err != nil {
		return err
	}
	if !exists {
		entity := "address"
		if table == paymentTable {
			entity = "payment method"
		}
		return apperr.NotFoundError(entity, id)
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET is_default = (id = $2), updated_at = NOW() WHERE user_id = $1", table),
		userID, id)
	if err != nil {
		return fmt.Errorf("failed to set default: %w", err)
	}
	return nil
}
