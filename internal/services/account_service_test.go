package services

import (
	"context"
	"testing"
	"time"

	"github.com/redirex/shipglobal-backend/internal/apperr"
	"github.com/redirex/shipglobal-backend/internal/auth"
	"github.com/redirex/shipglobal-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T) (*AccountService, *auth.TokenManager) {
	t.Helper()
	repos := memory.NewRepositories()
	tm := auth.NewTokenManager("access-secret", "refresh-secret", "test", 15*time.Minute, time.Hour)
	return NewAccountService(repos.Users, repos.Companies, tm), tm
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tm := newAccountService(t)
	ctx := context.Background()

	u, err := svc.RegisterUser(ctx, "carol", "carol@example.com", "s3cret-pass", nil)
	require.NoError(t, err)
	assert.Equal(t, "user", u.Role)

	pair, err := svc.Login(ctx, "carol@example.com", "s3cret-pass")
	require.NoError(t, err)

	claims, isRefresh, err := tm.ParseAny(pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, isRefresh)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "user", claims.AccountType)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "carol", "carol@example.com", "s3cret-pass", nil)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "carol@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "x", "carol@example.com", "s3cret-pass", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.RegisterUser(ctx, "carol", "not-an-email", "s3cret-pass", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.RegisterUser(ctx, "carol", "carol@example.com", "short", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	unknown := "00000000-0000-0000-0000-000000000000"
	_, err = svc.RegisterUser(ctx, "carol", "carol@example.com", "s3cret-pass", &unknown)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegisterCompanyAndAttachUser(t *testing.T) {
	svc, tm := newAccountService(t)
	ctx := context.Background()

	c, err := svc.RegisterCompany(ctx, "Acme Imports", "12.345.678/0001-90", "BR")
	require.NoError(t, err)

	_, err = svc.RegisterUser(ctx, "dave", "dave@acme.example.com", "s3cret-pass", &c.ID)
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "dave@acme.example.com", "s3cret-pass")
	require.NoError(t, err)
	claims, _, err := tm.ParseAny(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, c.ID, claims.CompanyID)
}

func TestRefreshRotatesPair(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "carol", "carol@example.com", "s3cret-pass", nil)
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "carol@example.com", "s3cret-pass")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)

	// an access token is not a refresh token
	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
