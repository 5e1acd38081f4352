package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// Identity is the authenticated member behind a request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   enums.MemberRole
}

func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

// WithIdentity injects the caller into the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID.String()
	}
	return ""
}
