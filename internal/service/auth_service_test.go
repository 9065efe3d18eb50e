package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/config"
	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/repository"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

type fakeAccountRepo struct {
	accounts map[string]domain.Account
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	for _, acc := range r.accounts {
		if acc.ID == id {
			return &acc, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	acc, ok := r.accounts[strings.ToLower(email)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &acc, nil
}

var _ repository.AccountRepository = (*fakeAccountRepo)(nil)

func newAuthService(t *testing.T, status domain.AccountStatus) *AuthService {
	t.Helper()
	hash, err := auth.HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeAccountRepo{accounts: map[string]domain.Account{
		"pro@example.com": {
			ID:           "provider-1",
			Email:        "pro@example.com",
			PasswordHash: hash,
			Role:         domain.RoleProvider,
			Status:       status,
		},
	}}
	return NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15}, repo)
}

func TestLogin_IssuesRoleBearingToken(t *testing.T) {
	svc := newAuthService(t, domain.AccountStatusActive)

	result, err := svc.Login(context.Background(), "Pro@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), result.ExpiresAt, time.Minute)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "provider-1", claims.SubjectID)
	assert.Equal(t, domain.RoleProvider, claims.Role)
}

func TestLogin_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, domain.AccountStatusActive)

	_, err := svc.Login(ctx, "pro@example.com", "wrong")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(ctx, "", "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	suspended := newAuthService(t, domain.AccountStatusSuspended)
	_, err = suspended.Login(ctx, "pro@example.com", "s3cret-pass")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}
