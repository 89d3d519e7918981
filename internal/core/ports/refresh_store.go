package ports

import (
	"context"
	"time"
)

// RefreshStore keeps the server side of refresh cookies: session id to
// account id, expiring after ttl.
type RefreshStore interface {
	Save(ctx context.Context, sessionID string, accountID int64, ttl time.Duration) error
	// Lookup returns domain.ErrSessionNotFound for unknown or expired ids.
	Lookup(ctx context.Context, sessionID string) (int64, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}
