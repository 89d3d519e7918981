// Package memstore holds the auth stub's in-process stores, used when no
// Redis address is configured.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

const janitorSpec = "@every 1m"

type refreshEntry struct {
	accountID int64
	expiresAt time.Time
}

// RefreshStore is a map-backed ports.RefreshStore. Expired entries are
// invisible to Lookup immediately and are swept by a cron janitor.
type RefreshStore struct {
	mu      sync.Mutex
	entries map[string]refreshEntry
	now     func() time.Time

	cron *cron.Cron
	log  zerolog.Logger
}

var _ ports.RefreshStore = (*RefreshStore)(nil)

func NewRefreshStore(log zerolog.Logger) *RefreshStore {
	return &RefreshStore{
		entries: make(map[string]refreshEntry),
		now:     time.Now,
		log:     log,
	}
}

// Start schedules the janitor. Calling Start twice is a no-op.
func (s *RefreshStore) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(janitorSpec, s.sweepAndLog); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the janitor and waits for a running sweep to finish.
func (s *RefreshStore) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *RefreshStore) Save(_ context.Context, sessionID string, accountID int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = refreshEntry{accountID: accountID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *RefreshStore) Lookup(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok || !s.now().Before(e.expiresAt) {
		return 0, domain.ErrSessionNotFound
	}
	return e.accountID, nil
}

func (s *RefreshStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *RefreshStore) Ping(context.Context) error { return nil }

// Sweep drops expired entries and returns how many were removed.
func (s *RefreshStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *RefreshStore) sweepAndLog() {
	if n := s.Sweep(); n > 0 {
		s.log.Debug().Int("removed", n).Msg("expired refresh sessions swept")
	}
}

// Len is the number of stored entries, expired ones included.
func (s *RefreshStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
