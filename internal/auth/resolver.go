package auth

import (
	"context"
	"errors"
)

// PrincipalSource looks up a principal by login identifier. Implemented by
// the persistence layer; the resolver only needs the one read.
type PrincipalSource interface {
	FindByEmail(ctx context.Context, email string) (*Principal, error)
}

// ErrPrincipalNotFound is how a PrincipalSource reports an absent row.
var ErrPrincipalNotFound = errors.New("auth: principal not found")

// Resolver recovers the current principal from a presented bearer token.
type Resolver struct {
	tokens *TokenService
	source PrincipalSource
}

// NewResolver constructs a Resolver.
func NewResolver(tokens *TokenService, source PrincipalSource) *Resolver {
	return &Resolver{tokens: tokens, source: source}
}

// Resolve validates the raw token and re-loads the subject from storage.
// Claims are never trusted over current storage state: a principal deleted
// after token issuance resolves as unauthenticated even while the token is
// otherwise valid. Read-only, no side effects.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := r.tokens.Validate(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	principal, err := r.source.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return principal, nil
}
