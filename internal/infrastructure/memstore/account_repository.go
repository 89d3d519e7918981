package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

// AccountRepository serves a fixed set of accounts from memory.
type AccountRepository struct {
	mu   sync.RWMutex
	byID map[int64]*domain.Account
}

var (
	_ ports.AccountRepository = (*AccountRepository)(nil)
	_ ports.AccountLister     = (*AccountRepository)(nil)
)

// NewAccountRepository indexes accounts by id. Duplicate ids, usernames or
// emails are rejected so an identifier always resolves to one account.
func NewAccountRepository(accounts []domain.Account) (*AccountRepository, error) {
	r := &AccountRepository{byID: make(map[int64]*domain.Account, len(accounts))}
	seen := make(map[string]int64)

	for i := range accounts {
		a := accounts[i]
		if _, dup := r.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate account id %d", a.ID)
		}
		for _, ident := range []string{a.Username, a.Email} {
			if ident == "" {
				continue
			}
			if other, dup := seen[ident]; dup {
				return nil, fmt.Errorf("identifier %q used by accounts %d and %d", ident, other, a.ID)
			}
			seen[ident] = a.ID
		}
		r.byID[a.ID] = &a
	}
	return r, nil
}

func (r *AccountRepository) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	if identifier == "" {
		return nil, domain.ErrUserNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if a.Username == identifier || a.Email == identifier {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *AccountRepository) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *a
	return &clone, nil
}

// List returns every account ordered by id.
func (r *AccountRepository) List(context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	out := make([]domain.Account, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, *a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
