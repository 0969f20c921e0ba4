package middleware

import (
	"context"

	"github.com/redirex/shipglobal-backend/internal/models"
)

type identityKey struct{}

// Identity is the authenticated principal resolved from the session token.
type Identity struct {
	UserID    string
	CompanyID string
	Type      models.AccountType
	Role      string
}

// OwnerID is the tenant key for owned records: the company when the user
// belongs to one, otherwise the user.
func (id Identity) OwnerID() string {
	if id.CompanyID != "" {
		return id.CompanyID
	}
	return id.UserID
}

func (id Identity) OwnerType() models.AccountType {
	if id.CompanyID != "" {
		return models.AccountCompany
	}
	return models.AccountUser
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey{}).(Identity)
	return v, ok
}
