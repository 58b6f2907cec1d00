package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthService() (*AuthService, *store.MemoryStore, *fakeCache) {
	ms := store.NewMemoryStore()
	cache := newFakeCache()
	return NewAuthService(ms, cache, testSecret, time.Hour), ms, cache
}

func signup(t *testing.T, svc *AuthService, email string) *AuthResult {
	t.Helper()
	res, err := svc.Signup(context.Background(), &SignupRequest{
		Email: email, Password: "Secret123", DisplayName: "Asha Rao",
	})
	require.NoError(t, err)
	return res
}

func TestSignupAndAuthenticate(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()

	res := signup(t, svc, "Asha@Example.com")
	assert.Equal(t, "asha@example.com", res.User.Email)
	assert.Equal(t, models.RoleCustomer, res.User.Role)
	assert.NotEqual(t, "Secret123", res.User.PasswordHash)

	user, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name string
		req  SignupRequest
		code string
	}{
		{"bad email", SignupRequest{Email: "asha", Password: "Secret123", DisplayName: "Asha"}, apperr.AuthInvalidEmail},
		{"short password", SignupRequest{Email: "a@b.co", Password: "Se1", DisplayName: "Asha"}, apperr.AuthWeakPassword},
		{"no digit", SignupRequest{Email: "a@b.co", Password: "SecretPass", DisplayName: "Asha"}, apperr.AuthWeakPassword},
		{"missing password", SignupRequest{Email: "a@b.co", DisplayName: "Asha"}, apperr.AuthMissingPassword},
		{"digits in name", SignupRequest{Email: "a@b.co", Password: "Secret123", DisplayName: "R2D2"}, apperr.AuthInvalidDisplayName},
	}

	svc, _, _ := newAuthService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.Signup(context.Background(), &req)
			assert.True(t, apperr.IsKind(err, apperr.Validation))
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthService()
	signup(t, svc, "asha@example.com")

	_, err := svc.Signup(context.Background(), &SignupRequest{
		Email: "ASHA@example.com", Password: "Secret123", DisplayName: "Asha",
	})
	assert.Equal(t, apperr.AuthEmailInUse, apperr.CodeOf(err))
	assert.Equal(t, "An account with this email already exists.", err.Error())
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	signup(t, svc, "asha@example.com")

	res, err := svc.Login(ctx, &LoginRequest{Email: "asha@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Login(ctx, &LoginRequest{Email: "asha@example.com", Password: "Wrong1234"})
	assert.Equal(t, apperr.AuthInvalidCredential, apperr.CodeOf(err))

	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "Secret123"})
	assert.Equal(t, apperr.AuthInvalidCredential, apperr.CodeOf(err))
	assert.True(t, apperr.IsKind(err, apperr.Unauthorized))
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, cache := newAuthService()
	ctx := context.Background()
	res := signup(t, svc, "asha@example.com")

	require.NoError(t, svc.Logout(ctx, res.Token))
	assert.Len(t, cache.revoked, 1)

	_, err := svc.Authenticate(ctx, res.Token)
	assert.Equal(t, apperr.AuthTokenExpired, apperr.CodeOf(err))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	res := signup(t, svc, "asha@example.com")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   res.User.ID,
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   res.User.ID,
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"expired": apperr.AuthTokenExpired,
		"forged":  apperr.AuthInvalidCredential,
		"garbage": apperr.AuthInvalidCredential,
		"empty":   apperr.AuthInvalidCredential,
	}
	tokens := map[string]string{
		"expired": expiredToken,
		"forged":  forged,
		"garbage": "not.a.token",
		"empty":   "",
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tokens[name])
			assert.True(t, apperr.IsKind(err, apperr.Unauthorized))
			assert.Equal(t, code, apperr.CodeOf(err))
		})
	}
}

func TestUpdateRoleRequiresSuperAdmin(t *testing.T) {
	svc, ms, _ := newAuthService()
	ctx := context.Background()
	target := signup(t, svc, "asha@example.com").User
	admin := signup(t, svc, "admin@example.com").User
	require.NoError(t, ms.UpdateUserRole(ctx, admin.ID, models.RoleAdmin))
	admin.Role = models.RoleAdmin

	_, err := svc.UpdateRole(ctx, admin, target.ID, models.RoleAdmin)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))

	root := &models.User{ID: "root", Role: models.RoleSuperAdmin}
	_, err = svc.UpdateRole(ctx, root, target.ID, "emperor")
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	updated, err := svc.UpdateRole(ctx, root, target.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestRoleRanking(t *testing.T) {
	assert.True(t, models.RoleSuperAdmin.AtLeast(models.RoleAdmin))
	assert.True(t, models.RoleAdmin.AtLeast(models.RoleAdmin))
	assert.False(t, models.RoleCustomer.AtLeast(models.RoleAdmin))
	assert.False(t, models.Role("").AtLeast(models.RoleCustomer))
}
