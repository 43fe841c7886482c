// Package auth verifies bearer tokens presented to the gateway.
// Token issuance is out of scope: operators generate a token, store its
// bcrypt hash in config and hand the token to clients.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aatumaykin/cronkeeper/internal/apperrors"
)

// MinTokenLength is the shortest token HashToken accepts.
const MinTokenLength = 16

// Principal identifies an authenticated caller.
type Principal struct {
	Name string
}

// Authenticator checks a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// TokenEntry is one accepted token, stored as a bcrypt hash.
type TokenEntry struct {
	Name string
	Hash string
}

// TokenAuthenticator accepts tokens whose bcrypt hash is configured.
type TokenAuthenticator struct {
	entries []tokenHash
}

type tokenHash struct {
	name string
	hash []byte
}

// NewTokenAuthenticator validates the configured hashes. At least one is
// required: a gateway without credentials must not start.
func NewTokenAuthenticator(entries []TokenEntry) (*TokenAuthenticator, error) {
	if len(entries) == 0 {
		return nil, errors.New("no auth tokens configured")
	}
	a := &TokenAuthenticator{}
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("token-%d", i+1)
		}
		if _, err := bcrypt.Cost([]byte(e.Hash)); err != nil {
			return nil, fmt.Errorf("auth token %q: invalid bcrypt hash: %w", name, err)
		}
		a.entries = append(a.entries, tokenHash{name: name, hash: []byte(e.Hash)})
	}
	return a, nil
}

// Authenticate compares token against every configured hash.
func (a *TokenAuthenticator) Authenticate(_ context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperrors.New(apperrors.KindUnauthorized, "missing bearer token")
	}
	for _, e := range a.entries {
		if bcrypt.CompareHashAndPassword(e.hash, []byte(token)) == nil {
			return Principal{Name: e.name}, nil
		}
	}
	return Principal{}, apperrors.New(apperrors.KindUnauthorized, "invalid bearer token")
}

// HashToken produces the bcrypt hash to put in config.
func HashToken(token string, cost int) (string, error) {
	if len(token) < MinTokenLength {
		return "", fmt.Errorf("token must be at least %d characters", MinTokenLength)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
