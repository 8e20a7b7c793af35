// Package auth verifies bearer credentials issued by an external identity
// provider and turns them into an Identity.
package auth

import (
	"context"
	"errors"
)

// ErrRejected is returned (wrapped) for every credential that does not
// resolve to an identity.
var ErrRejected = errors.New("credential rejected")

type Identity struct {
	Email string
}

type Gatekeeper interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
