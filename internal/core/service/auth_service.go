package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
	"github.com/zmooth/console/internal/metrics"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	tokenIssuer       = "zmooth-authstub"
)

// accessClaims carries the public identity inside the access token so
// /auth/me can answer without a lookup.
type accessClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// AuthService implements the auth stub's login, refresh and logout.
type AuthService struct {
	accounts   ports.AccountRepository
	sessions   ports.RefreshStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(
	accounts ports.AccountRepository,
	sessions ports.RefreshStore,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
) *AuthService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &AuthService{
		accounts:   accounts,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login checks the password of the account named by identifier (username or
// email) and opens a refresh session for it.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*ports.Grant, error) {
	if identifier == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	acct, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	if err := s.sessions.Save(ctx, sessionID, acct.ID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("open refresh session: %w", err)
	}

	return s.grant(acct, sessionID, "login")
}

// Refresh mints a new access token for an open refresh session. The session
// id itself is kept.
func (s *AuthService) Refresh(ctx context.Context, sessionID string) (*ports.Grant, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}

	accountID, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	return s.grant(acct, sessionID, "refresh")
}

// Logout closes the refresh session. Unknown or empty ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("close refresh session: %w", err)
	}
	return nil
}

// Verify parses an access token and returns the identity it carries.
func (s *AuthService) Verify(token string) (*domain.Identity, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Identity{
		ID:       id,
		Username: claims.Username,
		Email:    claims.Email,
		Name:     claims.Name,
		Role:     claims.Role,
		Phone:    claims.Phone,
	}, nil
}

func (s *AuthService) grant(acct *domain.Account, sessionID, kind string) (*ports.Grant, error) {
	token, err := s.generateToken(&acct.Identity)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues(kind).Inc()

	identity := acct.Identity
	return &ports.Grant{AccessToken: token, SessionID: sessionID, Identity: &identity}, nil
}

func (s *AuthService) generateToken(identity *domain.Identity) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Username: identity.Username,
		Email:    identity.Email,
		Name:     identity.Name,
		Role:     identity.Role,
		Phone:    identity.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.jwtSecret)
}
