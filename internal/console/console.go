// Package console mounts the dashboard's session layer: one shared API
// client, the ranked identity providers and the SessionManager that owns the
// bearer token.
package console

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zmooth/console/internal/core/ports"
	"github.com/zmooth/console/internal/core/service"
	"github.com/zmooth/console/internal/infrastructure/apiclient"
	"github.com/zmooth/console/internal/pkg/config"
)

type Options struct {
	APIBase   string
	Timeout   time.Duration
	DemoLogin bool
	// Transport is passed through to the API client.
	Transport http.RoundTripper
}

// OptionsFromConfig picks the console settings out of the shared config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIBase:   cfg.APIBase,
		Timeout:   cfg.APITimeout,
		DemoLogin: cfg.DemoLoginEnabled,
	}
}

// Console is a mounted session layer.
type Console struct {
	Client  *apiclient.Client
	Session *service.SessionManager
}

// New wires the client and session manager without touching the network.
// Call Mount to run the silent restore.
func New(opts Options, log zerolog.Logger) (*Console, error) {
	client, err := apiclient.New(apiclient.Config{
		BaseURL:   opts.APIBase,
		Timeout:   opts.Timeout,
		Transport: opts.Transport,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	remote := apiclient.NewAuthAPI(client)

	var providers []ports.IdentityProvider
	if opts.DemoLogin {
		providers = append(providers, service.NewLocalProvider())
	}
	providers = append(providers, remote)

	session := service.NewSessionManager(providers, remote, remote, log)
	client.UseTokenSource(session)

	return &Console{Client: client, Session: session}, nil
}

// Mount runs the one-time silent restore and returns once the session has
// left the loading state.
func (c *Console) Mount(ctx context.Context) {
	c.Session.Restore(ctx)
}
