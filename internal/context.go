package internal

import (
	"context"
	"time"

	coreUser "github.com/frahmantamala/leave-management/internal/core/user"
)

type principalKey struct{}

// Principal is the identity resolved from a verified access token.
type Principal struct {
	ID      string
	Email   string
	Role    coreUser.Role
	TokenID string
	Expiry  time.Time
}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reports false when the request was not authenticated.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
