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

	"github.com/noah-isme/school-ops-api/internal/models"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthUser(t *testing.T, password string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "u1", Email: "teacher@example.com", PasswordHash: string(hash), FullName: "Teacher", Role: models.RoleTeacher, Active: true}
}

func newAuthService(repo authUserRepository) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "school-ops-api"})
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newAuthUser(t, "password123")}
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: " Teacher@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{userByEmail: newAuthUser(t, "password123")})
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	missing := newAuthService(&mockAuthRepo{findByEmailErr: sql.ErrNoRows})
	_, err = missing.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginRejectsInactiveAndInvalidPayload(t *testing.T) {
	user := newAuthUser(t, "password123")
	user.Active = false
	svc := newAuthService(&mockAuthRepo{userByEmail: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "password123"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: newAuthUser(t, "password123")}
	issuer := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour, Issuer: "school-ops-api"})
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = newAuthService(repo).ValidateToken(resp.AccessToken)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
