package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/internal/repository"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
)

type stubUserStore struct {
	users map[string]*models.User
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *stubUserStore) Create(ctx context.Context, user *models.User) error {
	if _, ok := s.users[user.Email]; ok {
		return repository.ErrDuplicate
	}
	user.ID = int64(len(s.users) + 1)
	s.users[user.Email] = user
	return nil
}

func newTestAuthService(t *testing.T, clock *fixedClock) (*AuthService, *stubUserStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &stubUserStore{users: map[string]*models.User{
		"staff@example.org":    {ID: 1, Email: "staff@example.org", PasswordHash: string(hash), Role: models.RoleStaff, Active: true},
		"disabled@example.org": {ID: 2, Email: "disabled@example.org", PasswordHash: string(hash), Role: models.RoleStaff},
	}}
	svc := NewAuthService(store, nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "inventory-test"}, WithClock(clock.Now))
	return svc, store
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	clock := newFixedClock(time.Now().UTC())
	svc, _ := newTestAuthService(t, clock)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: " Staff@Example.org ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(1), resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.False(t, claims.IsAdmin())
	assert.NotEmpty(t, claims.ID)

	clock.Advance(2 * time.Hour)
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, _ := newTestAuthService(t, newFixedClock(time.Now().UTC()))

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@example.org", Password: "wrong-password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "ghost@example.org", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "disabled@example.org", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	svc, _ := newTestAuthService(t, newFixedClock(time.Now().UTC()))

	now := time.Now()
	claims := models.JWTClaims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "inventory-test",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	claims.Issuer = "someone-else"
	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceEnsureAdmin(t *testing.T) {
	svc, store := newTestAuthService(t, newFixedClock(time.Now().UTC()))

	created, err := svc.EnsureAdmin(context.Background(), "Admin@Example.org", "supersecret", "")
	require.NoError(t, err)
	assert.True(t, created)
	admin := store.users["admin@example.org"]
	require.NotNil(t, admin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "Administrator", admin.FullName)
	assert.NotEqual(t, "supersecret", admin.PasswordHash)

	created, err = svc.EnsureAdmin(context.Background(), "admin@example.org", "supersecret", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureAdmin(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAuthServiceCreateUserDuplicate(t *testing.T) {
	svc, _ := newTestAuthService(t, newFixedClock(time.Now().UTC()))

	_, err := svc.CreateUser(context.Background(), dto.CreateUserRequest{Email: "staff@example.org", FullName: "Sam", Role: models.RoleStaff, Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.CreateUser(context.Background(), dto.CreateUserRequest{Email: "new@example.org", FullName: "Sam", Role: "owner", Password: "short"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
