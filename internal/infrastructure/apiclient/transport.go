package apiclient

import (
	"net/http"
	"sync"

	"github.com/zmooth/console/internal/core/ports"
)

const headerAuthorization = "Authorization"

// bearerTransport stamps the current access token on every request as it is
// sent. With no token the header is removed outright.
type bearerTransport struct {
	base http.RoundTripper

	mu     sync.RWMutex
	source ports.TokenSource
}

func (t *bearerTransport) setSource(source ports.TokenSource) {
	t.mu.Lock()
	t.source = source
	t.mu.Unlock()
}

func (t *bearerTransport) header() (string, bool) {
	t.mu.RLock()
	source := t.source
	t.mu.RUnlock()

	if source == nil {
		return "", false
	}
	token := source.AccessToken()
	if token == "" {
		return "", false
	}
	return "Bearer " + token, true
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if value, ok := t.header(); ok {
		req.Header.Set(headerAuthorization, value)
	} else {
		req.Header.Del(headerAuthorization)
	}
	return t.base.RoundTrip(req)
}
