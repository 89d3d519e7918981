package ports

import (
	"context"

	"github.com/zmooth/console/internal/core/domain"
)

// AccountRepository looks up stub backend accounts.
type AccountRepository interface {
	// FindByIdentifier matches the identifier against username or email.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
}

// AccountLister enumerates accounts for the super-admin listing.
type AccountLister interface {
	List(ctx context.Context) ([]domain.Account, error)
}
