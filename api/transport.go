package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTenantHeader = "X-Tenant-ID"
	RequestIDHeader     = "X-Request-ID"
	authorizationHeader = "Authorization"
)

// TokenSource supplies the bearer token for outgoing calls. An empty token means the
// call goes out unauthenticated.
type TokenSource interface {
	AccessToken() string
}

var _ http.RoundTripper = (*Transport)(nil)

// Transport decorates every request with the tenant header and, outside the public
// endpoints, the bearer token. The caller's request is never modified.
type Transport struct {
	base         http.RoundTripper
	router       *Router
	tokens       TokenSource
	tenantHeader string
	publicPaths  []string
}

type TransportOption func(*Transport)

func WithBaseTransport(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = base
	}
}

func WithTenantHeader(header string) TransportOption {
	return func(t *Transport) {
		if header != "" {
			t.tenantHeader = header
		}
	}
}

// WithPublicPaths replaces the default unauthenticated allow-list
func WithPublicPaths(paths ...string) TransportOption {
	return func(t *Transport) {
		t.publicPaths = paths
	}
}

// NewTransport returns the decorating transport. tokens may be nil for a client that
// only talks to public endpoints.
func NewTransport(router *Router, tokens TokenSource, options ...TransportOption) *Transport {
	t := &Transport{
		base:         http.DefaultTransport,
		router:       router,
		tokens:       tokens,
		tenantHeader: DefaultTenantHeader,
		publicPaths:  PublicPaths,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tenantID, err := t.router.Tenant(req.Context())
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Set(t.tenantHeader, tenantID)
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.New().String())
	}

	if t.isPublic(out.URL.Path, tenantID) {
		out.Header.Del(authorizationHeader)
	} else if t.tokens != nil {
		if accessToken := t.tokens.AccessToken(); accessToken != "" {
			out.Header.Set(authorizationHeader, "Bearer "+accessToken)
		}
	}

	log.Debug().
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Str("tenant", tenantID).
		Str("request_id", out.Header.Get(RequestIDHeader)).
		Msg("api request")
	return t.base.RoundTrip(out)
}

// isPublic matches requestPath against the allow-list once the tenant base path is
// stripped. Paths outside the base URL are never public.
func (t *Transport) isPublic(requestPath, tenantID string) bool {
	basePath := t.router.basePath(tenantID)
	if !strings.HasPrefix(requestPath, basePath) {
		return false
	}
	return IsPublicPath(strings.TrimPrefix(requestPath, basePath), t.publicPaths)
}
