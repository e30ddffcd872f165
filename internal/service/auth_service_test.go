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

	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]models.User
	lastLogin map[string]time.Time
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if m.lastLogin == nil {
		m.lastLogin = make(map[string]time.Time)
	}
	m.lastLogin[id] = ts
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "promo-api"}
}

func seededUserRepo(t *testing.T) *mockUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockUserRepo{users: map[string]models.User{
		"user-1": {ID: "user-1", Email: "poster@example.com", PasswordHash: string(hash), FullName: "Pat Poster", Role: models.RolePoster, Active: true},
		"user-2": {ID: "user-2", Email: "inactive@example.com", PasswordHash: string(hash), FullName: "Iggy Idle", Role: models.RolePoster, Active: false},
	}}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := seededUserRepo(t)
	audit := &stubAudit{}
	svc := NewAuthService(repo, audit, nil, zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "poster@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, models.RolePoster, resp.User.Role)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Contains(t, repo.lastLogin, "user-1")
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RolePoster, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, zap.NewNop(), testAuthConfig())
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "poster@example.com", Password: "wrong"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, zap.NewNop(), testAuthConfig())
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	requireAppError(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, zap.NewNop(), testAuthConfig())
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "inactive@example.com", Password: "correct horse"})
	requireAppError(t, err, appErrors.ErrInactiveAccount.Code)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, zap.NewNop(), testAuthConfig())
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email"})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(seededUserRepo(t), nil, nil, zap.NewNop(), testAuthConfig())
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "poster@example.com", Password: "correct horse"})
	require.NoError(t, err)

	other := NewAuthService(seededUserRepo(t), nil, nil, zap.NewNop(), AuthConfig{Secret: "different", Expiration: time.Hour})
	_, err = other.ValidateToken(resp.AccessToken)
	requireAppError(t, err, appErrors.ErrUnauthorized.Code)
}
