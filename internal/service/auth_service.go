package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the payload of a storefront access token
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthResult is returned by Signup and Login
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// AuthService issues and verifies access tokens for storefront users
type AuthService struct {
	users    UserRepository
	revoker  TokenRevoker
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepository, revoker TokenRevoker, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		revoker:  revoker,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		logger:   util.GetLogger(),
	}
}

// SignupRequest represents a new account
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest represents a sign-in attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a customer and signs them in
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Signup")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.DisplayName)
	if !emailRe.MatchString(email) {
		return nil, apperr.AuthError(apperr.Validation, apperr.AuthInvalidEmail, "")
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}
	if !displayNameRe.MatchString(name) {
		return nil, apperr.AuthError(apperr.Validation, apperr.AuthInvalidDisplayName, "")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hashed),
		Role:         models.RoleCustomer,
		CreatedAt:    now,
		LastLogin:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if apperr.IsKind(err, apperr.Conflict) {
			return nil, apperr.AuthError(apperr.Conflict, apperr.AuthEmailInUse, "")
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Login verifies credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRe.MatchString(email) {
		return nil, apperr.AuthError(apperr.Validation, apperr.AuthInvalidEmail, "")
	}
	if req.Password == "" {
		return nil, apperr.AuthError(apperr.Validation, apperr.AuthMissingPassword, "")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthInvalidCredential, "")
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to load user: %w", err))
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthInvalidCredential, "")
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = now

	return s.issue(user)
}

// Logout revokes the token until it would have expired
func (s *AuthService) Logout(ctx context.Context, token string) error {
	ctx, span := util.StartSpan(ctx, "AuthService.Logout")
	defer span.End()

	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return util.RecordError(span, fmt.Errorf("failed to revoke token: %w", err))
	}
	return nil
}

// Authenticate resolves the user behind a token
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Authenticate")
	defer span.End()

	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoker.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ExternalService, apperr.AuthMessage(apperr.AuthUnavailable), err).
			WithCode(apperr.AuthUnavailable)
	}
	if revoked {
		return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthTokenExpired, "")
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthUserNotFound, "")
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to load user: %w", err))
	}
	return user, nil
}

// UpdateRole changes a user's role. Only a superadmin may do this.
func (s *AuthService) UpdateRole(ctx context.Context, actor *models.User, userID string, role models.Role) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.UpdateRole")
	defer span.End()

	if actor == nil || actor.Role != models.RoleSuperAdmin {
		return nil, apperr.AuthError(apperr.Forbidden, apperr.AuthInsufficientPerm, "")
	}
	if !role.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown role: %s", role)
	}

	if err := s.users.UpdateUserRole(ctx, userID, role); err != nil {
		return nil, util.RecordError(span, err)
	}
	s.logger.Info("User role updated",
		zap.String("actor_id", actor.ID),
		zap.String("user_id", userID),
		zap.String("role", string(role)))
	return s.users.GetUserByID(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	now := s.now()
	expires := now.Add(s.tokenTTL)
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &AuthResult{User: user, Token: signed, ExpiresAt: expires}, nil
}

func (s *AuthService) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthInvalidCredential, "authentication required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthTokenExpired, "")
		}
		return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthInvalidCredential, "")
	}
	if claims.ExpiresAt == nil || claims.ID == "" {
		return nil, apperr.AuthError(apperr.Unauthorized, apperr.AuthInvalidCredential, "")
	}
	return claims, nil
}

func checkPassword(password string) error {
	if password == "" {
		return apperr.AuthError(apperr.Validation, apperr.AuthMissingPassword, "")
	}
	if len(password) < 8 {
		return apperr.AuthError(apperr.Validation, apperr.AuthWeakPassword, "")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apperr.AuthError(apperr.Validation, apperr.AuthWeakPassword,
			"Password must contain uppercase, lowercase, and numbers.")
	}
	return nil
}
