package commerce

import (
	"context"
	"strings"
)

// TokenProvider supplies the bearer credential for commerce API calls. An empty token means the
// user is not signed in.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed service credential, used by the worker.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) { return string(t), nil }

type tokenKey struct{}

// WithToken attaches a request-scoped bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// ContextToken reads the token placed by WithToken.
type ContextToken struct{}

func (ContextToken) Token(ctx context.Context) (string, error) {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v, nil
	}
	return "", nil
}

// BearerToken extracts the token from an Authorization header value, or "" if absent.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
