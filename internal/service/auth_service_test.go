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

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type stubUserRepo struct {
	users     map[string]*models.User
	lastLogin map[string]time.Time
	audits    []models.AuditLog
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if s.lastLogin == nil {
		s.lastLogin = make(map[string]time.Time)
	}
	s.lastLogin[id] = ts
	return nil
}

func (s *stubUserRepo) InsertAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.audits = append(s.audits, *entry)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *stubUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Rectoria2026!"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubUserRepo{users: map[string]*models.User{
		"u-1": {
			ID:           "u-1",
			Email:        "rectoria@edusonrisas.co",
			PasswordHash: string(hash),
			FullName:     "Gloria Pineda",
			Role:         models.RoleAdmin,
			Active:       true,
		},
		"u-2": {
			ID:           "u-2",
			Email:        "antiguo@edusonrisas.co",
			PasswordHash: string(hash),
			FullName:     "Cuenta Retirada",
			Role:         models.RoleTeacher,
			Active:       false,
		},
	}}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "academia-api",
	})
	return svc, repo
}

func TestLoginIssuesToken(t *testing.T) {
	svc, repo := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "rectoria@edusonrisas.co",
		Password: "Rectoria2026!",
	}, "10.0.0.5", "go-test")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	assert.Contains(t, repo.lastLogin, "u-1")
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)
	assert.Equal(t, "10.0.0.5", repo.audits[0].IPAddress)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "rectoria@edusonrisas.co",
		Password: "not-the-password",
	}, "", "")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Empty(t, repo.audits)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nadie@edusonrisas.co",
		Password: "whatever",
	}, "", "")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "antiguo@edusonrisas.co",
		Password: "Rectoria2026!",
	}, "", "")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestLoginValidatesPayload(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "no-es-correo"}, "", "")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "rectoria@edusonrisas.co",
		Password: "Rectoria2026!",
	}, "", "")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "academia-api", claims.Issuer)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := newAuthFixture(t)
	other := NewAuthService(&stubUserRepo{}, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "another-secret",
		AccessTokenExpiry: time.Hour,
	})

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "rectoria@edusonrisas.co",
		Password: "Rectoria2026!",
	}, "", "")
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestMeReturnsProfile(t *testing.T) {
	svc, _ := newAuthFixture(t)

	info, err := svc.Me(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Gloria Pineda", info.FullName)

	_, err = svc.Me(context.Background(), "u-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
