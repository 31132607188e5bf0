package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/exam-slot-api/internal/models"
	appErrors "github.com/noah-isme/exam-slot-api/pkg/errors"
)

type userRepoStub struct {
	user *models.User
}

func (r *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.user == nil || r.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return r.user, nil
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return r.user, nil
}

func newAuthFixture(t *testing.T, user *models.User) *AuthService {
	t.Helper()
	return NewAuthService(&userRepoStub{user: user}, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "exam-slot-api",
	})
}

func userFixture(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		Name:         "Admin",
		PasswordHash: string(hash),
		Active:       true,
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	service := newAuthFixture(t, userFixture(t, "secret123"))

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "exam-slot-api", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	service := newAuthFixture(t, userFixture(t, "secret123"))

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	service := newAuthFixture(t, userFixture(t, "secret123"))

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := userFixture(t, "secret123")
	user.Active = false
	service := newAuthFixture(t, user)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAuthServiceLoginValidatesPayload(t *testing.T) {
	service := newAuthFixture(t, userFixture(t, "secret123"))

	_, err := service.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceValidateTokenRejectsForgedToken(t *testing.T) {
	service := newAuthFixture(t, userFixture(t, "secret123"))

	other := NewAuthService(&userRepoStub{}, nil, zap.NewNop(), AuthConfig{
		Secret:     "different-secret",
		Expiration: time.Hour,
	})
	resp, err := other.Login(context.Background(), models.LoginRequest{Email: "x@example.com", Password: "y"})
	require.Error(t, err)
	assert.Nil(t, resp)

	_, err = service.ValidateToken("invalid.token.here")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceValidateTokenRejectsExpired(t *testing.T) {
	user := userFixture(t, "secret123")
	short := NewAuthService(&userRepoStub{user: user}, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Millisecond,
	})
	resp, err := short.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = short.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceMe(t *testing.T) {
	service := newAuthFixture(t, userFixture(t, "secret123"))

	user, err := service.Me(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)

	_, err = service.Me(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
