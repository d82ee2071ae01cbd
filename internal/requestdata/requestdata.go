package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

var identityKey contextKey

// Identity is the caller attached by the auth middleware. The core trusts it;
// all permission checks derive from these three fields.
type Identity struct {
	UserID       uuid.UUID
	IsAdmin      bool
	IsAgencyUser bool
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}
