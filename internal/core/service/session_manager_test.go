package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubProvider struct {
	authFn func(ctx context.Context, identifier, password string) (*domain.Credential, error)
	calls  atomic.Int32
}

func (p *stubProvider) Name() string { return "remote" }

func (p *stubProvider) Authenticate(ctx context.Context, identifier, password string) (*domain.Credential, error) {
	p.calls.Add(1)
	return p.authFn(ctx, identifier, password)
}

type stubRestorer struct {
	refreshFn func(ctx context.Context) (*domain.Credential, error)
	calls     atomic.Int32
}

func (r *stubRestorer) Refresh(ctx context.Context) (*domain.Credential, error) {
	r.calls.Add(1)
	return r.refreshFn(ctx)
}

type stubRevoker struct {
	err   error
	calls atomic.Int32
}

func (r *stubRevoker) Logout(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func rejectingRemote() *stubProvider {
	return &stubProvider{authFn: func(context.Context, string, string) (*domain.Credential, error) {
		return nil, domain.ErrInvalidCredentials
	}}
}

func newTestManager(remote *stubProvider, restorer ports.SessionRestorer, revoker ports.SessionRevoker) *SessionManager {
	providers := []ports.IdentityProvider{NewLocalProvider()}
	if remote != nil {
		providers = append(providers, remote)
	}
	return NewSessionManager(providers, restorer, revoker, zerolog.Nop())
}

func assertLoggedOut(t *testing.T, s domain.Session) {
	t.Helper()
	if s.AccessToken != "" {
		t.Fatalf("expected no token, got %q", s.AccessToken)
	}
	if s.Identity != nil {
		t.Fatalf("expected no identity, got %+v", s.Identity)
	}
	if s.Authenticated() {
		t.Fatalf("expected unauthenticated session")
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestSessionManager_Login_DemoIdentifiers(t *testing.T) {
	cases := []struct {
		identifier string
		password   string
		wantUser   string
		wantRole   string
	}{
		{"admin1", "admin123", "admin1", domain.RoleAdmin},
		{"admin@zmooth.local", "admin123", "admin1", domain.RoleAdmin},
		{"super", "super123", "super", domain.RoleSuper},
		{"root@zmooth.local", "super123", "super", domain.RoleSuper},
	}

	for _, tc := range cases {
		t.Run(tc.identifier, func(t *testing.T) {
			remote := &stubProvider{authFn: func(context.Context, string, string) (*domain.Credential, error) {
				t.Fatalf("remote provider must not be called for demo credentials")
				return nil, nil
			}}
			m := newTestManager(remote, nil, nil)

			identity, err := m.Login(context.Background(), tc.identifier, tc.password)
			if err != nil {
				t.Fatalf("Login returned error: %v", err)
			}
			if identity == nil || identity.Username != tc.wantUser || identity.Role != tc.wantRole {
				t.Fatalf("unexpected identity: %+v", identity)
			}

			snap := m.Snapshot()
			if snap.AccessToken != DemoAccessToken {
				t.Fatalf("expected demo token, got %q", snap.AccessToken)
			}
			if m.AccessToken() != DemoAccessToken {
				t.Fatalf("AccessToken disagrees with snapshot")
			}
			if snap.Identity == nil || snap.Identity.Username != tc.wantUser {
				t.Fatalf("identity not stored: %+v", snap.Identity)
			}
		})
	}
}

func TestSessionManager_Login_DemoAdminProfile(t *testing.T) {
	m := newTestManager(nil, nil, nil)

	identity, err := m.Login(context.Background(), "admin1", "admin123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	want := domain.Identity{
		ID:       1,
		Username: "admin1",
		Role:     domain.RoleAdmin,
		Email:    "admin@zmooth.local",
		Phone:    "+254712345678",
		Name:     "Admin One",
	}
	if *identity != want {
		t.Fatalf("expected %+v, got %+v", want, *identity)
	}
}

func TestSessionManager_Login_DemoMatchIsCaseSensitive(t *testing.T) {
	remote := rejectingRemote()
	m := newTestManager(remote, nil, nil)

	if _, err := m.Login(context.Background(), "ADMIN1", "admin123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if remote.calls.Load() != 1 {
		t.Fatalf("expected fallthrough to remote provider, got %d calls", remote.calls.Load())
	}
	assertLoggedOut(t, m.Snapshot())
}

func TestSessionManager_Login_DemoWrongPasswordFallsThrough(t *testing.T) {
	remote := &stubProvider{authFn: func(_ context.Context, identifier, password string) (*domain.Credential, error) {
		if identifier != "admin1" || password != "wrong" {
			t.Fatalf("unexpected args: %s %s", identifier, password)
		}
		return nil, domain.ErrInvalidCredentials
	}}
	m := newTestManager(remote, nil, nil)

	identity, err := m.Login(context.Background(), "admin1", "wrong")
	if identity != nil {
		t.Fatalf("expected nil identity, got %+v", identity)
	}
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if remote.calls.Load() != 1 {
		t.Fatalf("expected remote to be consulted once, got %d", remote.calls.Load())
	}
}

func TestSessionManager_Login_RejectedLeavesStateUnchanged(t *testing.T) {
	m := newTestManager(rejectingRemote(), nil, nil)

	if _, err := m.Login(context.Background(), "super", "super123"); err != nil {
		t.Fatalf("seed login failed: %v", err)
	}
	before := m.Snapshot()

	identity, err := m.Login(context.Background(), "nope", "nope")
	if identity != nil || !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected (nil, ErrInvalidCredentials), got (%+v, %v)", identity, err)
	}

	after := m.Snapshot()
	if after.AccessToken != before.AccessToken || *after.Identity != *before.Identity {
		t.Fatalf("state changed: before=%+v after=%+v", before, after)
	}
}

func TestSessionManager_Login_TransportErrorLeavesStateUnchanged(t *testing.T) {
	remote := &stubProvider{authFn: func(context.Context, string, string) (*domain.Credential, error) {
		return nil, fmt.Errorf("post /auth/login: %w", domain.ErrTransport)
	}}
	m := newTestManager(remote, nil, nil)

	identity, err := m.Login(context.Background(), "alice", "secret")
	if identity != nil {
		t.Fatalf("expected nil identity, got %+v", identity)
	}
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	assertLoggedOut(t, m.Snapshot())
}

func TestSessionManager_Login_RemoteSuccess(t *testing.T) {
	remote := &stubProvider{authFn: func(_ context.Context, identifier, password string) (*domain.Credential, error) {
		return &domain.Credential{
			AccessToken: "jwt-alice",
			Identity:    &domain.Identity{ID: 7, Username: "alice", Email: identifier, Role: domain.RoleAdmin},
		}, nil
	}}
	m := newTestManager(remote, nil, nil)

	identity, err := m.Login(context.Background(), "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if identity.ID != 7 || identity.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	snap := m.Snapshot()
	if snap.AccessToken != "jwt-alice" {
		t.Fatalf("expected jwt-alice, got %q", snap.AccessToken)
	}
	if snap.Identity == nil || snap.Identity.Username != "alice" {
		t.Fatalf("identity not stored: %+v", snap.Identity)
	}
}

func TestSessionManager_Login_TokenWithoutUser(t *testing.T) {
	remote := &stubProvider{authFn: func(context.Context, string, string) (*domain.Credential, error) {
		return &domain.Credential{AccessToken: "jwt-orphan"}, nil
	}}
	m := newTestManager(remote, nil, nil)
	m.Restore(context.Background())

	identity, err := m.Login(context.Background(), "alice", "secret")
	if identity != nil {
		t.Fatalf("expected nil identity, got %+v", identity)
	}
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}

	snap := m.Snapshot()
	if snap.AccessToken != "jwt-orphan" {
		t.Fatalf("present token should still be applied, got %q", snap.AccessToken)
	}
	if snap.Identity != nil {
		t.Fatalf("identity should be untouched, got %+v", snap.Identity)
	}
	if snap.Guard(false) != domain.GuardRedirectLogin {
		t.Fatalf("a token without an identity must not open protected screens")
	}
}

func TestSessionManager_Login_UserWithoutToken(t *testing.T) {
	remote := &stubProvider{authFn: func(context.Context, string, string) (*domain.Credential, error) {
		return &domain.Credential{Identity: &domain.Identity{Username: "alice"}}, nil
	}}
	m := newTestManager(remote, nil, nil)

	identity, err := m.Login(context.Background(), "alice", "secret")
	if identity != nil || !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected (nil, ErrMalformedResponse), got (%+v, %v)", identity, err)
	}
	if m.Snapshot().Authenticated() {
		t.Fatalf("session without token must not be authenticated")
	}
}

func TestSessionManager_Login_ReturnedIdentityIsACopy(t *testing.T) {
	m := newTestManager(nil, nil, nil)

	identity, err := m.Login(context.Background(), "admin1", "admin123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	identity.Role = domain.RoleSuper

	if m.Snapshot().Identity.Role != domain.RoleAdmin {
		t.Fatalf("caller mutation leaked into session state")
	}
}

func TestSessionManager_Login_NoProviders(t *testing.T) {
	m := NewSessionManager(nil, nil, nil, zerolog.Nop())

	if _, err := m.Login(context.Background(), "admin1", "admin123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------------

func TestSessionManager_Logout_ClearsState(t *testing.T) {
	revoker := &stubRevoker{}
	m := newTestManager(nil, nil, revoker)

	if _, err := m.Login(context.Background(), "admin1", "admin123"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout(context.Background())

	assertLoggedOut(t, m.Snapshot())
	if revoker.calls.Load() != 1 {
		t.Fatalf("expected backend to be notified once, got %d", revoker.calls.Load())
	}
}

func TestSessionManager_Logout_NotificationFailureStillClears(t *testing.T) {
	revoker := &stubRevoker{err: fmt.Errorf("post /auth/logout: %w", domain.ErrTransport)}
	m := newTestManager(nil, nil, revoker)

	if _, err := m.Login(context.Background(), "super", "super123"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout(context.Background())
	assertLoggedOut(t, m.Snapshot())
}

func TestSessionManager_Logout_Idempotent(t *testing.T) {
	revoker := &stubRevoker{err: errors.New("connection refused")}
	m := newTestManager(nil, nil, revoker)

	m.Logout(context.Background())
	m.Logout(context.Background())

	assertLoggedOut(t, m.Snapshot())
	if revoker.calls.Load() != 2 {
		t.Fatalf("each logout should still notify the backend, got %d calls", revoker.calls.Load())
	}
}

// ---------------------------------------------------------------------------
// Restore
// ---------------------------------------------------------------------------

func TestSessionManager_Restore_Success(t *testing.T) {
	restorer := &stubRestorer{refreshFn: func(context.Context) (*domain.Credential, error) {
		return &domain.Credential{
			AccessToken: "jwt-restored",
			Identity:    &domain.Identity{ID: 2, Username: "super", Role: domain.RoleSuper},
		}, nil
	}}
	m := newTestManager(nil, restorer, nil)

	if !m.Snapshot().Loading {
		t.Fatalf("expected loading before restore")
	}
	if m.Snapshot().Guard(true) != domain.GuardWait {
		t.Fatalf("protected screens should wait while loading")
	}

	m.Restore(context.Background())

	snap := m.Snapshot()
	if snap.Loading {
		t.Fatalf("expected loading to be false after restore")
	}
	if snap.AccessToken != "jwt-restored" || !snap.Identity.IsSuper() {
		t.Fatalf("unexpected restored session: %+v", snap)
	}
	if snap.Guard(true) != domain.GuardAllow {
		t.Fatalf("restored super session should pass the super guard")
	}
	select {
	case <-m.Ready():
	default:
		t.Fatalf("Ready should be closed after restore")
	}
}

func TestSessionManager_Restore_FailureIsSilent(t *testing.T) {
	restorer := &stubRestorer{refreshFn: func(context.Context) (*domain.Credential, error) {
		return nil, domain.ErrInvalidCredentials
	}}
	m := newTestManager(nil, restorer, nil)

	m.Restore(context.Background())

	snap := m.Snapshot()
	if snap.Loading {
		t.Fatalf("expected loading to be false after failed restore")
	}
	assertLoggedOut(t, snap)
	if snap.Guard(false) != domain.GuardRedirectLogin {
		t.Fatalf("expected redirect to login")
	}
}

func TestSessionManager_Restore_TokenOnly(t *testing.T) {
	restorer := &stubRestorer{refreshFn: func(context.Context) (*domain.Credential, error) {
		return &domain.Credential{AccessToken: "jwt-only"}, nil
	}}
	m := newTestManager(nil, restorer, nil)

	m.Restore(context.Background())

	snap := m.Snapshot()
	if snap.AccessToken != "jwt-only" || snap.Identity != nil {
		t.Fatalf("expected token without identity, got %+v", snap)
	}
}

func TestSessionManager_Restore_RunsOnce(t *testing.T) {
	restorer := &stubRestorer{refreshFn: func(context.Context) (*domain.Credential, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, errors.New("no cookie")
	}}
	m := newTestManager(nil, restorer, nil)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			m.Restore(context.Background())
			if m.Snapshot().Loading {
				return errors.New("restore returned while still loading")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	m.Restore(context.Background())

	if restorer.calls.Load() != 1 {
		t.Fatalf("expected exactly one refresh attempt, got %d", restorer.calls.Load())
	}
}

func TestSessionManager_Restore_LoadingStaysFalse(t *testing.T) {
	m := newTestManager(nil, nil, nil)
	m.Restore(context.Background())

	if _, err := m.Login(context.Background(), "admin1", "admin123"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	m.Logout(context.Background())
	m.Restore(context.Background())

	if m.Snapshot().Loading {
		t.Fatalf("loading must stay false once cleared")
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestSessionManager_ConcurrentLogins_TokenAndIdentityStayPaired(t *testing.T) {
	remote := &stubProvider{authFn: func(_ context.Context, identifier, _ string) (*domain.Credential, error) {
		return &domain.Credential{
			AccessToken: "jwt-" + identifier,
			Identity:    &domain.Identity{Username: identifier},
		}, nil
	}}
	m := newTestManager(remote, nil, nil)

	stop := make(chan struct{})
	var readerErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := m.Snapshot()
			if snap.Identity == nil {
				continue
			}
			if snap.AccessToken != "jwt-"+snap.Identity.Username {
				readerErr = fmt.Errorf("observed token %q with identity %q", snap.AccessToken, snap.Identity.Username)
				return
			}
		}
	}()

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		user := fmt.Sprintf("user%d", i%5)
		g.Go(func() error {
			_, err := m.Login(context.Background(), user, "pw")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	close(stop)
	wg.Wait()

	if readerErr != nil {
		t.Fatal(readerErr)
	}
	snap := m.Snapshot()
	if snap.Identity == nil || snap.AccessToken != "jwt-"+snap.Identity.Username {
		t.Fatalf("final state is not a pair from one login: %+v", snap)
	}
}

func TestSessionManager_ConcurrentIdenticalLogins_ShareOneCall(t *testing.T) {
	release := make(chan struct{})
	remote := &stubProvider{authFn: func(context.Context, string, string) (*domain.Credential, error) {
		<-release
		return &domain.Credential{AccessToken: "jwt-bob", Identity: &domain.Identity{Username: "bob"}}, nil
	}}
	m := newTestManager(remote, nil, nil)

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			identity, err := m.Login(context.Background(), "bob", "pw")
			if err != nil {
				return err
			}
			if identity.Username != "bob" {
				return fmt.Errorf("unexpected identity %+v", identity)
			}
			return nil
		})
	}

	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if remote.calls.Load() != 1 {
		t.Fatalf("expected one shared backend call, got %d", remote.calls.Load())
	}
}

func TestSessionManager_Login_UserWithoutTokenKeepsPreviousPair(t *testing.T) {
	remote := &stubProvider{authFn: func(context.Context, string, string) (*domain.Credential, error) {
		return &domain.Credential{Identity: &domain.Identity{Username: "alice", Role: domain.RoleSuper}}, nil
	}}
	m := newTestManager(remote, nil, nil)
	m.Restore(context.Background())

	if _, err := m.Login(context.Background(), "admin1", "admin123"); err != nil {
		t.Fatalf("demo login failed: %v", err)
	}

	identity, err := m.Login(context.Background(), "alice", "secret")
	if identity != nil || !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected (nil, ErrMalformedResponse), got (%+v, %v)", identity, err)
	}

	snap := m.Snapshot()
	if snap.AccessToken != DemoAccessToken {
		t.Fatalf("token changed: %q", snap.AccessToken)
	}
	if snap.Identity == nil || snap.Identity.Username != "admin1" || snap.Identity.IsSuper() {
		t.Fatalf("identity must stay paired with its token, got %+v", snap.Identity)
	}
}

func TestSessionManager_Login_SharedAttemptOutlivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	remote := &stubProvider{authFn: func(ctx context.Context, _, _ string) (*domain.Credential, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
		return &domain.Credential{
			AccessToken: "jwt-shared",
			Identity:    &domain.Identity{Username: "alice", Role: domain.RoleAdmin},
		}, nil
	}}
	m := newTestManager(remote, nil, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Login(firstCtx, "alice", "secret")
		firstErr <- err
	}()
	<-started

	type result struct {
		identity *domain.Identity
		err      error
	}
	second := make(chan result, 1)
	go func() {
		identity, err := m.Login(context.Background(), "alice", "secret")
		second <- result{identity, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, domain.ErrTransport) || !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: expected ErrTransport wrapping context.Canceled, got %v", err)
	}
	close(release)

	res := <-second
	if res.err != nil {
		t.Fatalf("second caller inherited the first caller's cancellation: %v", res.err)
	}
	if res.identity == nil || res.identity.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", res.identity)
	}
	if got := remote.calls.Load(); got != 1 {
		t.Fatalf("expected one shared backend attempt, got %d", got)
	}
	if m.AccessToken() != "jwt-shared" {
		t.Fatalf("shared attempt was not applied, token %q", m.AccessToken())
	}
}
