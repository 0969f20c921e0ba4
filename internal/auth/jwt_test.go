package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(accessTTL time.Duration) *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", "shipglobal", accessTTL, time.Hour)
}

func TestGeneratePairRoundTrip(t *testing.T) {
	tm := newTestManager(15 * time.Minute)

	access, refresh, exp, err := tm.GeneratePair("u1", "user", "c1", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, isRefresh, err := tm.ParseAny(access)
	require.NoError(t, err)
	assert.False(t, isRefresh)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "user", claims.AccountType)
	assert.Equal(t, "c1", claims.CompanyID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "shipglobal", claims.Issuer)

	claims, isRefresh, err = tm.ParseAny(refresh)
	require.NoError(t, err)
	assert.True(t, isRefresh)
	assert.Equal(t, "u1", claims.UserID)
}

func TestParseAnyRejectsForeignSignature(t *testing.T) {
	tm := newTestManager(time.Minute)
	other := NewTokenManager("someone", "else", "shipglobal", time.Minute, time.Hour)

	access, _, _, err := other.GeneratePair("u1", "user", "", "user")
	require.NoError(t, err)

	_, _, err = tm.ParseAny(access)
	assert.Error(t, err)
}

func TestParseAnyRejectsExpiredToken(t *testing.T) {
	tm := newTestManager(-time.Minute)

	access, _, _, err := tm.GeneratePair("u1", "user", "", "user")
	require.NoError(t, err)

	_, _, err = tm.ParseAny(access)
	assert.Error(t, err)
}

func TestParseAnyRejectsGarbage(t *testing.T) {
	tm := newTestManager(time.Minute)
	_, _, err := tm.ParseAny("not-a-token")
	assert.Error(t, err)
}
