package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header names set on outgoing requests.
const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
)

// TokenSource supplies the current bearer token, empty when signed out.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token calls f.
func (f TokenFunc) Token() string { return f() }

// loginPath is the only endpoint that is never sent a bearer token.
const loginPath = "/auth/login"

// bearerTransport attaches the session token to every request except login.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil || strings.HasSuffix(req.URL.Path, loginPath) {
		return t.base.RoundTrip(req)
	}
	token := t.tokens.Token()
	if token == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set(HeaderAuthorization, "Bearer "+token)
	return t.base.RoundTrip(clone)
}

// requestIDTransport tags each request with a unique id and the client's user agent.
type requestIDTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if clone.Header.Get(HeaderRequestID) == "" {
		clone.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(clone)
}
