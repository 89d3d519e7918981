package ports

import (
	"context"

	"github.com/zmooth/console/internal/core/domain"
)

// IdentityProvider authenticates an identifier/password pair. Providers are
// consulted in rank order; returning domain.ErrInvalidCredentials passes the
// attempt to the next one.
type IdentityProvider interface {
	Name() string
	Authenticate(ctx context.Context, identifier, password string) (*domain.Credential, error)
}

// SessionRestorer re-establishes a session from a server-held refresh
// credential (an HttpOnly cookie the client never inspects).
type SessionRestorer interface {
	Refresh(ctx context.Context) (*domain.Credential, error)
}

// SessionRevoker tells the backend the session is over.
type SessionRevoker interface {
	Logout(ctx context.Context) error
}

// TokenSource yields the bearer token to attach to an outgoing request, or ""
// when there is none.
type TokenSource interface {
	AccessToken() string
}
