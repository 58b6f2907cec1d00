package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCountry = "India"

var cvvRe = regexp.MustCompile(`^\d{3,4}$`)

// ProfileService manages saved addresses and payment methods
type ProfileService struct {
	profiles ProfileRepository
	now      func() time.Time
	logger   *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileRepository) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// AddressRequest carries the editable fields of an address
type AddressRequest struct {
	FullName  string             `json:"fullName" binding:"required,max=100"`
	Phone     string             `json:"phone" binding:"required,phone10"`
	Street    string             `json:"street" binding:"required,max=200"`
	City      string             `json:"city" binding:"required,max=100"`
	State     string             `json:"state" binding:"required,max=100"`
	Pincode   string             `json:"pincode" binding:"required,pincode"`
	Country   string             `json:"country" binding:"max=100"`
	Type      models.AddressType `json:"type" binding:"omitempty,oneof=home work other"`
	IsDefault bool               `json:"isDefault"`
}

// AddPaymentMethodRequest carries a new payment method. CardNumber and CVV are only inspected.
type AddPaymentMethodRequest struct {
	Type       models.PaymentType `json:"type" binding:"required,oneof=credit_card debit_card upi net_banking cod"`
	CardNumber string             `json:"cardNumber"`
	ExpiryDate string             `json:"expiryDate" binding:"omitempty,expiry"`
	NameOnCard string             `json:"nameOnCard" binding:"max=100"`
	CVV        string             `json:"cvv"`
	UPIID      string             `json:"upiId" binding:"omitempty,upi"`
	IsDefault  bool               `json:"isDefault"`
}

// UpdatePaymentMethodRequest carries the fields of a payment method that may change
type UpdatePaymentMethodRequest struct {
	ExpiryDate string `json:"expiryDate" binding:"omitempty,expiry"`
	NameOnCard string `json:"nameOnCard" binding:"max=100"`
	UPIID      string `json:"upiId" binding:"omitempty,upi"`
}

// DetectCardBrand guesses the network from the leading digit
func DetectCardBrand(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return "Unknown"
	}
	switch number[0] {
	case '4':
		return "Visa"
	case '5':
		return "Mastercard"
	case '3':
		return "American Express"
	case '6':
		return "Discover"
	}
	return "Unknown"
}

func normalizeCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ListAddresses returns the default address first, then newest first
func (s *ProfileService) ListAddresses(ctx context.Context, userID string) ([]models.ShippingAddress, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.ListAddresses")
	defer span.End()

	addresses, err := s.profiles.ListAddresses(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list addresses: %w", err))
	}
	return addresses, nil
}

// AddAddress saves a new address. A user's first address becomes the default.
func (s *ProfileService) AddAddress(ctx context.Context, userID string, req *AddressRequest) (*models.ShippingAddress, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.AddAddress")
	defer span.End()

	if err := validateAddress(req); err != nil {
		return nil, err
	}

	existing, err := s.profiles.ListAddresses(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list addresses: %w", err))
	}

	now := s.now().UTC()
	a := &models.ShippingAddress{
		ID:        uuid.New().String(),
		UserID:    userID,
		IsDefault: req.IsDefault || len(existing) == 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyAddress(a, req)

	if err := s.profiles.CreateAddress(ctx, a); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to add address: %w", err))
	}
	s.logger.Info("Address added", zap.String("user_id", userID), zap.String("address_id", a.ID))
	return a, nil
}

// UpdateAddress rewrites an address; IsDefault set to true also makes it the default
func (s *ProfileService) UpdateAddress(ctx context.Context, userID, id string, req *AddressRequest) (*models.ShippingAddress, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.UpdateAddress")
	defer span.End()

	if err := validateAddress(req); err != nil {
		return nil, err
	}

	a, err := s.profiles.GetAddress(ctx, userID, id)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	applyAddress(a, req)
	a.UpdatedAt = s.now().UTC()

	if err := s.profiles.UpdateAddress(ctx, a); err != nil {
		return nil, util.RecordError(span, err)
	}
	if req.IsDefault && !a.IsDefault {
		if err := s.profiles.SetDefaultAddress(ctx, userID, id); err != nil {
			return nil, util.RecordError(span, err)
		}
		a.IsDefault = true
	}
	return a, nil
}

// DeleteAddress removes an address. Deleting the default leaves the user without one.
func (s *ProfileService) DeleteAddress(ctx context.Context, userID, id string) error {
	ctx, span := util.StartSpan(ctx, "ProfileService.DeleteAddress")
	defer span.End()

	return util.RecordError(span, s.profiles.DeleteAddress(ctx, userID, id))
}

// SetDefaultAddress makes id the user's only default address
func (s *ProfileService) SetDefaultAddress(ctx context.Context, userID, id string) error {
	ctx, span := util.StartSpan(ctx, "ProfileService.SetDefaultAddress")
	defer span.End()

	return util.RecordError(span, s.profiles.SetDefaultAddress(ctx, userID, id))
}

func validateAddress(req *AddressRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Street = strings.TrimSpace(req.Street)
	req.City = strings.TrimSpace(req.City)
	req.State = strings.TrimSpace(req.State)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Pincode = strings.TrimSpace(req.Pincode)
	return validateStruct(req)
}

func applyAddress(a *models.ShippingAddress, req *AddressRequest) {
	a.FullName = req.FullName
	a.Phone = req.Phone
	a.Street = req.Street
	a.City = req.City
	a.State = req.State
	a.Pincode = req.Pincode
	a.Country = strings.TrimSpace(req.Country)
	if a.Country == "" {
		a.Country = defaultCountry
	}
	a.Type = req.Type
	if a.Type == "" {
		a.Type = models.AddressTypeHome
	}
}

// ListPaymentMethods returns the default method first, then newest first
func (s *ProfileService) ListPaymentMethods(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.ListPaymentMethods")
	defer span.End()

	methods, err := s.profiles.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list payment methods: %w", err))
	}
	return methods, nil
}

// AddPaymentMethod saves a payment method. Only the brand and last four digits of a card are kept.
func (s *ProfileService) AddPaymentMethod(ctx context.Context, userID string, req *AddPaymentMethodRequest) (*models.PaymentMethod, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.AddPaymentMethod")
	defer span.End()

	if err := validatePaymentMethod(req); err != nil {
		return nil, err
	}

	existing, err := s.profiles.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to list payment methods: %w", err))
	}

	now := s.now().UTC()
	p := &models.PaymentMethod{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      req.Type,
		IsDefault: req.IsDefault || len(existing) == 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch {
	case req.Type.IsCard():
		number := normalizeCardNumber(req.CardNumber)
		p.Last4 = number[len(number)-4:]
		p.CardType = DetectCardBrand(number)
		p.ExpiryDate = req.ExpiryDate
		p.NameOnCard = strings.TrimSpace(req.NameOnCard)
	case req.Type == models.PaymentTypeUPI:
		p.UPIID = strings.TrimSpace(req.UPIID)
	}

	if err := s.profiles.CreatePaymentMethod(ctx, p); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to add payment method: %w", err))
	}
	s.logger.Info("Payment method added",
		zap.String("user_id", userID),
		zap.String("payment_method_id", p.ID),
		zap.String("type", string(p.Type)))
	return p, nil
}

// UpdatePaymentMethod changes holder name, expiry or UPI handle
func (s *ProfileService) UpdatePaymentMethod(ctx context.Context, userID, id string, req *UpdatePaymentMethodRequest) (*models.PaymentMethod, error) {
	ctx, span := util.StartSpan(ctx, "ProfileService.UpdatePaymentMethod")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	p, err := s.profiles.GetPaymentMethod(ctx, userID, id)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	switch {
	case p.Type.IsCard():
		if req.ExpiryDate != "" {
			p.ExpiryDate = req.ExpiryDate
		}
		if name := strings.TrimSpace(req.NameOnCard); name != "" {
			p.NameOnCard = name
		}
	case p.Type == models.PaymentTypeUPI:
		if req.UPIID != "" {
			p.UPIID = strings.TrimSpace(req.UPIID)
		}
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.profiles.UpdatePaymentMethod(ctx, p); err != nil {
		return nil, util.RecordError(span, err)
	}
	return p, nil
}

// DeletePaymentMethod removes a payment method
func (s *ProfileService) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	ctx, span := util.StartSpan(ctx, "ProfileService.DeletePaymentMethod")
	defer span.End()

	return util.RecordError(span, s.profiles.DeletePaymentMethod(ctx, userID, id))
}

// SetDefaultPaymentMethod makes id the user's only default payment method
func (s *ProfileService) SetDefaultPaymentMethod(ctx context.Context, userID, id string) error {
	ctx, span := util.StartSpan(ctx, "ProfileService.SetDefaultPaymentMethod")
	defer span.End()

	return util.RecordError(span, s.profiles.SetDefaultPaymentMethod(ctx, userID, id))
}

func validatePaymentMethod(req *AddPaymentMethodRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}

	switch {
	case req.Type.IsCard():
		number := normalizeCardNumber(req.CardNumber)
		if len(number) < 12 || len(number) > 19 || !isDigits(number) {
			return apperr.ValidationError("cardNumber must be 12 to 19 digits")
		}
		if req.ExpiryDate == "" {
			return apperr.ValidationError("expiryDate is required")
		}
		if strings.TrimSpace(req.NameOnCard) == "" {
			return apperr.ValidationError("nameOnCard is required")
		}
		if req.CVV != "" && !cvvRe.MatchString(req.CVV) {
			return apperr.ValidationError("cvv must be 3 or 4 digits")
		}
	case req.Type == models.PaymentTypeUPI:
		if req.UPIID == "" {
			return apperr.ValidationError("upiId is required")
		}
	}
	return nil
}
