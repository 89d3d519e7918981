package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

// RefreshStore keeps refresh sessions in Redis with native key expiry.
// Key format: refresh:<session_id> -> <account_id>
type RefreshStore struct {
	client *redis.Client
}

var _ ports.RefreshStore = (*RefreshStore)(nil)

// NewRefreshStore creates a RefreshStore wrapping the given Redis client.
func NewRefreshStore(client *redis.Client) *RefreshStore {
	return &RefreshStore{client: client}
}

func (s *RefreshStore) Save(ctx context.Context, sessionID string, accountID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(sessionID), accountID, ttl).Err(); err != nil {
		return fmt.Errorf("refresh save: %w", err)
	}
	return nil
}

func (s *RefreshStore) Lookup(ctx context.Context, sessionID string) (int64, error) {
	v, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrSessionNotFound
		}
		return 0, fmt.Errorf("refresh lookup: %w", err)
	}

	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, domain.ErrSessionNotFound
	}
	return id, nil
}

func (s *RefreshStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("refresh delete: %w", err)
	}
	return nil
}

func (s *RefreshStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RefreshStore) key(sessionID string) string {
	return "refresh:" + sessionID
}
