package ports

import (
	"context"

	"github.com/zmooth/console/internal/core/domain"
)

// Grant is issued by the auth stub on login or refresh.
type Grant struct {
	AccessToken string
	SessionID   string
	Identity    *domain.Identity
}

// AuthService is the auth stub's use-case surface.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*Grant, error)
	Refresh(ctx context.Context, sessionID string) (*Grant, error)
	Logout(ctx context.Context, sessionID string) error
	Verify(token string) (*domain.Identity, error)
}
