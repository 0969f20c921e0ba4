package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Claims identify either a user or a company account. CompanyID is set for
// users attached to a company and for company accounts themselves.
type Claims struct {
	UserID      string `json:"uid"`
	AccountType string `json:"act"` // "user" | "company"
	CompanyID   string `json:"cid,omitempty"`
	Role        string `json:"role"`
	Type        string `json:"typ"` // "access" | "refresh"
	jwt.RegisteredClaims
}

func (tm *TokenManager) GeneratePair(userID, accountType, companyID, role string) (access string, refresh string, accessExp time.Time, err error) {
	now := time.Now()

	base := Claims{
		UserID:      userID,
		AccountType: accountType,
		CompanyID:   companyID,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tm.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	accClaims := base
	accClaims.Type = "access"
	accClaims.ExpiresAt = jwt.NewNumericDate(now.Add(tm.accessTTL))

	refClaims := base
	refClaims.Type = "refresh"
	refClaims.ExpiresAt = jwt.NewNumericDate(now.Add(tm.refreshTTL))

	access, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accClaims).SignedString(tm.accessSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	refresh, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refClaims).SignedString(tm.refreshSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, accClaims.ExpiresAt.Time, nil
}

// ParseAny tries access then refresh; the bool reports a refresh token.
func (tm *TokenManager) ParseAny(tokenStr string) (*Claims, bool, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return tm.accessSecret, nil
	})
	if err == nil && claims.Type == "access" {
		return claims, false, nil
	}

	claims = &Claims{}
	_, err = jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return tm.refreshSecret, nil
	})
	if err == nil && claims.Type == "refresh" {
		return claims, true, nil
	}
	return nil, false, errors.New("invalid token")
}
