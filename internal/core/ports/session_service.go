package ports

import (
	"context"

	"github.com/zmooth/console/internal/core/domain"
)

// SessionService is what screens consume: the current session plus the
// login, logout and silent-restore operations.
type SessionService interface {
	TokenSource
	Login(ctx context.Context, identifier, password string) (*domain.Identity, error)
	Logout(ctx context.Context)
	Restore(ctx context.Context)
	Snapshot() domain.Session
	Ready() <-chan struct{}
}
