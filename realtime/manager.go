package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/jrsteele09/go-bingo-admin/tenants"
	"github.com/rs/zerolog/log"
)

// Visibility selects the namespace family for a tenant
type Visibility int

const (
	Public Visibility = iota
	Private
)

const (
	PublicPrefix  = "public-"
	PrivatePrefix = "tenant-"

	DefaultHandshakeTimeout = 10 * time.Second
	defaultTenantHeader     = "X-Tenant-ID"
)

// TenantSource resolves the tenant for the call described by ctx
type TenantSource interface {
	Tenant(ctx context.Context) (string, error)
}

// TokenSource supplies the bearer token sent when joining a private namespace
type TokenSource interface {
	AccessToken() string
}

// Manager keeps at most one live connection per namespace
type Manager struct {
	urlTemplate  string
	tenants      TenantSource
	tokens       TokenSource
	dialer       *websocket.Dialer
	tenantHeader string

	mu    sync.Mutex
	conns map[string]*Conn
}

type ManagerOption func(*Manager)

func WithDialer(dialer *websocket.Dialer) ManagerOption {
	return func(m *Manager) {
		m.dialer = dialer
	}
}

func WithHandshakeTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			dialer := *m.dialer
			dialer.HandshakeTimeout = timeout
			m.dialer = &dialer
		}
	}
}

func WithTenantHeader(header string) ManagerOption {
	return func(m *Manager) {
		if header != "" {
			m.tenantHeader = header
		}
	}
}

func NewManager(urlTemplate string, tenantSource TenantSource, tokens TokenSource, options ...ManagerOption) (*Manager, error) {
	if err := tenants.ValidateTemplate(urlTemplate); err != nil {
		return nil, err
	}
	if tenantSource == nil {
		return nil, errors.Wrapf(errors.ErrTenantNotResolved, "[realtime NewManager] tenant source is required")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = DefaultHandshakeTimeout
	m := &Manager{
		urlTemplate:  strings.TrimSuffix(urlTemplate, "/"),
		tenants:      tenantSource,
		tokens:       tokens,
		dialer:       &dialer,
		tenantHeader: defaultTenantHeader,
		conns:        make(map[string]*Conn),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Namespace returns the public or private namespace of the current tenant
func (m *Manager) Namespace(ctx context.Context, visibility Visibility) (string, error) {
	tenantID, err := m.tenants.Tenant(ctx)
	if err != nil {
		return "", err
	}
	if visibility == Private {
		return PrivatePrefix + tenantID, nil
	}
	return PublicPrefix + tenantID, nil
}

// Subscription is a handler attached by Get before any frame is read
type Subscription struct {
	Event   string
	Handler Handler
}

func Subscribe(event string, h Handler) Subscription {
	return Subscription{Event: event, Handler: h}
}

// Get returns the live connection for namespace, dialing a new one when there is
// none or the previous one dropped. On a new connection the subscriptions are in
// place before the read loop starts.
func (m *Manager) Get(ctx context.Context, namespace string, subscriptions ...Subscription) (*Conn, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, errors.Wrapf(errors.ErrEmptyNamespace, "[Manager Get]")
	}

	m.mu.Lock()
	if conn, ok := m.conns[namespace]; ok && conn.IsConnected() {
		m.mu.Unlock()
		for _, sub := range subscriptions {
			conn.On(sub.Event, sub.Handler)
		}
		return conn, nil
	}

	conn, err := m.dial(ctx, namespace)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	for _, sub := range subscriptions {
		conn.register(sub.Event, sub.Handler)
	}
	m.conns[namespace] = conn
	m.mu.Unlock()

	conn.start()
	return conn, nil
}

// Release closes and forgets the connection for namespace
func (m *Manager) Release(namespace string) error {
	m.mu.Lock()
	conn, ok := m.conns[namespace]
	delete(m.conns, namespace)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return conn.Close()
}

// Close closes every connection
func (m *Manager) Close() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*Conn)
	m.mu.Unlock()

	for namespace, conn := range conns {
		if err := conn.Close(); err != nil {
			log.Err(err).Str("namespace", namespace).Msg("failed to close socket")
		}
	}
}

func (m *Manager) dial(ctx context.Context, namespace string) (*Conn, error) {
	tenantID, err := m.tenants.Tenant(ctx)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set(m.tenantHeader, tenantID)
	if strings.HasPrefix(namespace, PrivatePrefix) {
		accessToken := ""
		if m.tokens != nil {
			accessToken = m.tokens.AccessToken()
		}
		if accessToken == "" {
			return nil, errors.Wrapf(errors.ErrNotAuthenticated, "[Manager Get] %s requires a session", namespace)
		}
		header.Set("Authorization", "Bearer "+accessToken)
	}

	endpoint := tenants.ExpandTemplate(m.urlTemplate, tenantID) + "/" + namespace
	ws, resp, err := m.dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.Wrapf(errors.ErrUnauthenticated, "[Manager Get] %s handshake rejected", namespace)
		}
		return nil, errors.Wrapf(errors.ErrNotConnected, "[Manager Get] failed to dial %s: %s", namespace, err.Error())
	}

	log.Debug().Str("namespace", namespace).Str("tenant", tenantID).Msg("socket connected")
	return newConn(namespace, ws), nil
}
