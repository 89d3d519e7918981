package service

import (
	"context"

	"github.com/zmooth/console/internal/core/domain"
)

// DemoAccessToken is the placeholder bearer token for demo logins.
const DemoAccessToken = "mock-access-token"

// DemoCredential is one row of the built-in demo table.
type DemoCredential struct {
	Identity domain.Identity
	Password string
}

var demoTable = [...]DemoCredential{
	{
		Identity: domain.Identity{
			ID:       1,
			Username: "admin1",
			Email:    "admin@zmooth.local",
			Name:     "Admin One",
			Role:     domain.RoleAdmin,
			Phone:    "+254712345678",
		},
		Password: "admin123",
	},
	{
		Identity: domain.Identity{
			ID:       2,
			Username: "super",
			Email:    "root@zmooth.local",
			Name:     "Super User",
			Role:     domain.RoleSuper,
			Phone:    "+254787654321",
		},
		Password: "super123",
	},
}

// DemoCredentials returns a copy of the demo table.
func DemoCredentials() []DemoCredential {
	out := make([]DemoCredential, len(demoTable))
	copy(out, demoTable[:])
	return out
}

// LocalProvider accepts the demo identities offline. Matching is exact and
// case-sensitive on either the email or the username.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Authenticate(_ context.Context, identifier, password string) (*domain.Credential, error) {
	for _, row := range demoTable {
		if row.Identity.Email != identifier && row.Identity.Username != identifier {
			continue
		}
		if row.Password != password {
			continue
		}
		identity := row.Identity
		return &domain.Credential{AccessToken: DemoAccessToken, Identity: &identity}, nil
	}
	return nil, domain.ErrInvalidCredentials
}
