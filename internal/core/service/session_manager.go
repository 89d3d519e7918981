package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
	"github.com/zmooth/console/internal/metrics"
)

const logoutFlightKey = "logout"

// SessionManager is the single source of truth for who is logged in and with
// what bearer token. The shared API client reads the token through
// AccessToken at request time, so nothing else holds a copy.
type SessionManager struct {
	providers []ports.IdentityProvider
	restorer  ports.SessionRestorer
	revoker   ports.SessionRevoker
	log       zerolog.Logger

	mu       sync.RWMutex
	token    string
	identity *domain.Identity
	loading  bool

	flight      singleflight.Group
	restoreOnce sync.Once
	ready       chan struct{}
}

var _ ports.SessionService = (*SessionManager)(nil)

// NewSessionManager returns an empty, loading session. providers are tried in
// order on Login. restorer and revoker may be nil.
func NewSessionManager(
	providers []ports.IdentityProvider,
	restorer ports.SessionRestorer,
	revoker ports.SessionRevoker,
	log zerolog.Logger,
) *SessionManager {
	return &SessionManager{
		providers: providers,
		restorer:  restorer,
		revoker:   revoker,
		log:       log,
		loading:   true,
		ready:     make(chan struct{}),
	}
}

// Login authenticates against the ranked providers and, on success, installs
// the token and identity together. Failures leave the session untouched,
// apart from a token that arrived without a user, and come back as domain.ErrInvalidCredentials, domain.ErrTransport or
// domain.ErrMalformedResponse. Identical concurrent calls share one attempt.
// The shared attempt is detached from any single caller's cancellation and is
// bounded by the client timeout instead; a caller whose ctx ends stops waiting
// with domain.ErrTransport while the attempt completes for the others.
func (m *SessionManager) Login(ctx context.Context, identifier, password string) (*domain.Identity, error) {
	attemptCtx := context.WithoutCancel(ctx)
	ch := m.flight.DoChan(loginFlightKey(identifier, password), func() (any, error) {
		return m.login(attemptCtx, identifier, password)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("login: %w: %w", domain.ErrTransport, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Identity).Clone(), nil
	}
}

func (m *SessionManager) login(ctx context.Context, identifier, password string) (*domain.Identity, error) {
	err := domain.ErrInvalidCredentials
	decidedBy := "none"

	for _, p := range m.providers {
		decidedBy = p.Name()

		var cred *domain.Credential
		cred, err = p.Authenticate(ctx, identifier, password)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			continue
		}
		if err != nil {
			break
		}

		identity, acceptErr := m.accept(cred)
		if acceptErr != nil {
			err = fmt.Errorf("%s provider: %w", p.Name(), acceptErr)
			break
		}

		metrics.SessionLoginsTotal.WithLabelValues(decidedBy, "ok").Inc()
		m.log.Info().
			Str("provider", decidedBy).
			Str("username", identity.Username).
			Str("role", identity.Role).
			Msg("login succeeded")
		return identity, nil
	}

	metrics.SessionLoginsTotal.WithLabelValues(decidedBy, loginOutcome(err)).Inc()
	m.log.Debug().Err(err).Str("provider", decidedBy).Msg("login failed")
	return nil, err
}

// accept applies what the provider returned. An identity is only installed
// next to the token issued with it, so a credential without a token changes
// nothing. A token without a user is still applied but is not a successful
// login.
func (m *SessionManager) accept(cred *domain.Credential) (*domain.Identity, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, domain.ErrMalformedResponse
	}
	if hasToken := m.apply(cred); !hasToken || cred.Identity == nil {
		return nil, domain.ErrMalformedResponse
	}
	return cred.Identity.Clone(), nil
}

// apply installs the present fields of cred under one lock so readers never
// see a token from one call next to an identity from another. It reports
// whether the session holds a token afterwards.
func (m *SessionManager) apply(cred *domain.Credential) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cred.AccessToken != "" {
		m.token = cred.AccessToken
	}
	if cred.Identity != nil {
		m.identity = cred.Identity.Clone()
	}
	return m.token != ""
}

// Logout notifies the backend on a best-effort basis and then clears the
// session unconditionally. It is safe to call when already logged out.
func (m *SessionManager) Logout(ctx context.Context) {
	_, _, _ = m.flight.Do(logoutFlightKey, func() (any, error) {
		notified := true
		if m.revoker != nil {
			if err := m.revoker.Logout(ctx); err != nil {
				notified = false
				m.log.Debug().Err(err).Msg("logout notification failed")
			}
		}

		m.mu.Lock()
		m.token = ""
		m.identity = nil
		m.mu.Unlock()

		metrics.SessionLogoutsTotal.WithLabelValues(strconv.FormatBool(notified)).Inc()
		return nil, nil
	})
}

// Restore makes the one silent-restore attempt of the manager's lifetime.
// Later and concurrent calls wait for that attempt and do nothing else.
// Failure means "no existing session" and is not reported.
func (m *SessionManager) Restore(ctx context.Context) {
	m.restoreOnce.Do(func() {
		defer m.finishLoading()

		if m.restorer == nil {
			return
		}

		cred, err := m.restorer.Refresh(ctx)
		if err != nil {
			metrics.SessionRestoresTotal.WithLabelValues("failed").Inc()
			m.log.Debug().Err(err).Msg("no session to restore")
			return
		}
		if cred == nil || !m.apply(cred) {
			metrics.SessionRestoresTotal.WithLabelValues("empty").Inc()
			return
		}

		metrics.SessionRestoresTotal.WithLabelValues("restored").Inc()
		m.log.Info().Msg("session restored")
	})
}

func (m *SessionManager) finishLoading() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
	close(m.ready)
}

// Ready is closed once the silent restore has finished.
func (m *SessionManager) Ready() <-chan struct{} {
	return m.ready
}

// AccessToken returns the current bearer token, or "" when logged out.
func (m *SessionManager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Snapshot returns the token, identity and loading flag as of one instant.
func (m *SessionManager) Snapshot() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Session{
		AccessToken: m.token,
		Identity:    m.identity.Clone(),
		Loading:     m.loading,
	}
}

// loginFlightKey keys concurrent logins by their credentials without keeping
// the plaintext password in the flight group.
func loginFlightKey(identifier, password string) string {
	sum := sha256.Sum256([]byte(identifier + "\x00" + password))
	return "login:" + hex.EncodeToString(sum[:])
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrTransport):
		return "transport_error"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "error"
	}
}
