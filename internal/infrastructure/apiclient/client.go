// Package apiclient is the HTTP client the dashboard shares for every backend
// call. Cookies persist across requests, and the bearer token is read from a
// TokenSource when each request is built.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/zmooth/console/internal/core/domain"
	"github.com/zmooth/console/internal/core/ports"
)

const defaultTimeout = 30 * time.Second

// Config captures the settings for reaching the backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport overrides http.DefaultTransport. Tests use it.
	Transport http.RoundTripper
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// errorBody accepts both the {"error": ...} envelope and FastAPI's {"detail": ...}.
type errorBody struct {
	Error  string `json:"error"`
	Detail any    `json:"detail"`
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	bearer  *bearerTransport
	log     zerolog.Logger
}

// New builds a client rooted at cfg.BaseURL. A default timeout is applied
// when none is provided.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	bearer := &bearerTransport{base: rt}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout, Jar: jar, Transport: bearer},
		bearer:  bearer,
		log:     log,
	}, nil
}

// UseTokenSource binds the source the Authorization header is read from.
func (c *Client) UseTokenSource(source ports.TokenSource) {
	c.bearer.setSource(source)
}

// AuthorizationHeader is the header value the next request will carry. ok is
// false when the header will be absent.
func (c *Client) AuthorizationHeader() (value string, ok bool) {
	return c.bearer.header()
}

// BaseURL returns the root every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookies returns the cookies the jar holds for the auth endpoints.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.authURL())
}

// SetCookies seeds the jar, scoped to the auth endpoints.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.authURL(), cookies)
}

// authURL is rooted so the jar path-matches cookies set with Path=/auth.
func (c *Client) authURL() *url.URL {
	return c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + "/auth/"})
}

// Do sends body (when non-nil) as JSON and decodes a 2xx response into out
// (when non-nil). Network failures wrap domain.ErrTransport, undecodable
// bodies wrap domain.ErrMalformedResponse, and other statuses are a
// *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(method, path, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w: %w", method, path, domain.ErrMalformedResponse, err)
	}
	return nil
}

// Me fetches the identity the backend associates with the current token.
func (c *Client) Me(ctx context.Context) (*domain.Identity, error) {
	var identity domain.Identity
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func newStatusError(method, path string, resp *http.Response) *StatusError {
	se := &StatusError{Method: method, Path: path, Status: resp.StatusCode}

	var eb errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil {
		switch {
		case eb.Error != "":
			se.Message = eb.Error
		case eb.Detail != nil:
			se.Message = fmt.Sprint(eb.Detail)
		}
	}
	return se
}

// IsStatus reports whether err is a *StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
