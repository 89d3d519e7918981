package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

// loginRequest always names the identifier "email", even for usernames.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string           `json:"access_token"`
	User        *domain.Identity `json:"user"`
}

func (r *authResponse) credential() *domain.Credential {
	return &domain.Credential{AccessToken: r.AccessToken, Identity: r.User}
}

// AuthAPI adapts the backend's /auth endpoints to the session ports.
type AuthAPI struct {
	client *Client
}

var (
	_ ports.IdentityProvider = (*AuthAPI)(nil)
	_ ports.SessionRestorer  = (*AuthAPI)(nil)
	_ ports.SessionRevoker   = (*AuthAPI)(nil)
)

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Name() string { return "remote" }

// Authenticate handles POST /auth/login.
func (a *AuthAPI) Authenticate(ctx context.Context, identifier, password string) (*domain.Credential, error) {
	var resp authResponse
	err := a.client.Do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: identifier, Password: password}, &resp)
	if err != nil {
		return nil, classify(err)
	}
	return resp.credential(), nil
}

// Refresh handles POST /auth/refresh. The refresh credential travels in the
// cookie jar.
func (a *AuthAPI) Refresh(ctx context.Context) (*domain.Credential, error) {
	var resp authResponse
	if err := a.client.Do(ctx, http.MethodPost, "/auth/refresh", nil, &resp); err != nil {
		return nil, classify(err)
	}
	return resp.credential(), nil
}

// Logout handles POST /auth/logout. The response body is ignored.
func (a *AuthAPI) Logout(ctx context.Context) error {
	if err := a.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return classify(err)
	}
	return nil
}

// classify folds rejections into domain.ErrInvalidCredentials and every
// other status into domain.ErrTransport.
func classify(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, se)
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransport, se)
	}
}
