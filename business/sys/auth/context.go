package auth

import (
	"context"
	"errors"
)

// ctxKey represents the type of value for the context key.
type ctxKey int

// claimKey is how claim values are stored/retrieved.
const claimKey ctxKey = 1

// SetClaims stores the claims in the context.
func SetClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimKey, claims)
}

// GetClaims returns the claims from the context.
func GetClaims(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}

	return v, nil
}
