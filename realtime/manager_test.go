package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/jrsteele09/go-bingo-admin/realtime"
	"github.com/stretchr/testify/require"
)

type staticTenant string

func (s staticTenant) Tenant(context.Context) (string, error) { return string(s), nil }

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

// socketServer upgrades every request, records the handshake and answers each
// client frame with a new-call-announced frame carrying the same payload
type socketServer struct {
	upgrader websocket.Upgrader

	mu         sync.Mutex
	handshakes map[string]http.Header
	conns      []*websocket.Conn
	greeting   *realtime.Envelope
}

func newSocketServer(t *testing.T) (*socketServer, string) {
	t.Helper()
	s := &socketServer{handshakes: map[string]http.Header{}}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http") + "/{tenant}/socket"
}

func (s *socketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.handshakes[r.URL.Path] = r.Header.Clone()
	s.mu.Unlock()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, ws)
	greeting := s.greeting
	s.mu.Unlock()

	defer ws.Close()
	if greeting != nil {
		if err := ws.WriteJSON(greeting); err != nil {
			return
		}
	}
	for {
		var in realtime.Envelope
		if err := ws.ReadJSON(&in); err != nil {
			return
		}
		out := realtime.Envelope{Event: realtime.EventNewCallAnnounced, Status: "ok", Payload: in.Payload}
		if err := ws.WriteJSON(out); err != nil {
			return
		}
	}
}

func (s *socketServer) handshake(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshakes[path]
}

// greet makes the server send e as the first frame of every new connection
func (s *socketServer) greet(e realtime.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.greeting = &e
}

func (s *socketServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ws := range s.conns {
		_ = ws.Close()
	}
}

func newManager(t *testing.T, url string, tokens realtime.TokenSource) *realtime.Manager {
	t.Helper()
	m, err := realtime.NewManager(url, staticTenant("acme"), tokens, realtime.WithHandshakeTimeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for socket event")
	}
	var zero T
	return zero
}

func TestManager_Namespace(t *testing.T) {
	_, url := newSocketServer(t)
	m := newManager(t, url, nil)

	public, err := m.Namespace(context.Background(), realtime.Public)
	require.NoError(t, err)
	require.Equal(t, "public-acme", public)

	private, err := m.Namespace(context.Background(), realtime.Private)
	require.NoError(t, err)
	require.Equal(t, "tenant-acme", private)
}

func TestManager_GetReusesLiveConnection(t *testing.T) {
	srv, url := newSocketServer(t)
	m := newManager(t, url, staticToken("token-1"))

	first, err := m.Get(context.Background(), "tenant-acme")
	require.NoError(t, err)
	second, err := m.Get(context.Background(), "tenant-acme")
	require.NoError(t, err)
	require.Same(t, first, second)

	disconnected := make(chan realtime.Envelope, 1)
	first.On(realtime.EventDisconnect, func(e realtime.Envelope) { disconnected <- e })
	srv.dropAll()
	waitFor(t, disconnected)
	require.False(t, first.IsConnected())

	third, err := m.Get(context.Background(), "tenant-acme")
	require.NoError(t, err)
	require.NotSame(t, first, third)
	require.True(t, third.IsConnected())
}

func TestManager_Handshake(t *testing.T) {
	srv, url := newSocketServer(t)

	t.Run("private namespace sends bearer", func(t *testing.T) {
		m := newManager(t, url, staticToken("token-1"))
		_, err := m.Get(context.Background(), "tenant-acme")
		require.NoError(t, err)

		header := srv.handshake("/acme/socket/tenant-acme")
		require.NotNil(t, header)
		require.Equal(t, "Bearer token-1", header.Get("Authorization"))
		require.Equal(t, "acme", header.Get("X-Tenant-ID"))
	})

	t.Run("public namespace is anonymous", func(t *testing.T) {
		m := newManager(t, url, staticToken("token-1"))
		_, err := m.Get(context.Background(), "public-acme")
		require.NoError(t, err)

		header := srv.handshake("/acme/socket/public-acme")
		require.NotNil(t, header)
		require.Empty(t, header.Get("Authorization"))
	})

	t.Run("private namespace without session", func(t *testing.T) {
		m := newManager(t, url, staticToken(""))
		_, err := m.Get(context.Background(), "tenant-acme")
		require.ErrorIs(t, err, errors.ErrNotAuthenticated)
	})

	t.Run("empty namespace", func(t *testing.T) {
		m := newManager(t, url, nil)
		_, err := m.Get(context.Background(), " ")
		require.ErrorIs(t, err, errors.ErrEmptyNamespace)
	})
}

func TestConn_Events(t *testing.T) {
	_, url := newSocketServer(t)
	m := newManager(t, url, nil)

	conn, err := m.Get(context.Background(), "public-acme")
	require.NoError(t, err)

	connected := make(chan realtime.Envelope, 1)
	conn.On(realtime.EventConnect, func(e realtime.Envelope) { connected <- e })
	require.Equal(t, realtime.EventConnect, waitFor(t, connected).Event)

	calls := make(chan realtime.Envelope, 4)
	off := conn.On(realtime.EventNewCallAnnounced, func(e realtime.Envelope) { calls <- e })

	require.NoError(t, conn.Emit("call-number", map[string]int{"number": 42}))
	envelope := waitFor(t, calls)
	require.Equal(t, "ok", envelope.Status)

	var payload map[string]int
	require.NoError(t, envelope.Decode(&payload))
	require.Equal(t, 42, payload["number"])

	off()
	seen := make(chan realtime.Envelope, 4)
	conn.On(realtime.EventNewCallAnnounced, func(e realtime.Envelope) { seen <- e })
	require.NoError(t, conn.Emit("call-number", map[string]int{"number": 7}))
	waitFor(t, seen)
	require.Len(t, calls, 0)

	conn.Off(realtime.EventNewCallAnnounced)

	disconnected := make(chan realtime.Envelope, 1)
	conn.On(realtime.EventDisconnect, func(e realtime.Envelope) { disconnected <- e })
	require.NoError(t, conn.Close())
	waitFor(t, disconnected)
	<-conn.Done()

	require.ErrorIs(t, conn.Emit("call-number", nil), errors.ErrNotConnected)
}

func TestManager_GetSubscriptionsSeeFirstFrame(t *testing.T) {
	srv, url := newSocketServer(t)
	srv.greet(realtime.Envelope{Event: realtime.EventGameStatusChanged, Status: "running"})
	m := newManager(t, url, nil)

	connected := make(chan realtime.Envelope, 1)
	statuses := make(chan realtime.Envelope, 1)
	conn, err := m.Get(context.Background(), "public-acme",
		realtime.Subscribe(realtime.EventConnect, func(e realtime.Envelope) { connected <- e }),
		realtime.Subscribe(realtime.EventGameStatusChanged, func(e realtime.Envelope) { statuses <- e }),
	)
	require.NoError(t, err)
	require.True(t, conn.IsConnected())

	require.Equal(t, "connected", waitFor(t, connected).Status)
	require.Equal(t, "running", waitFor(t, statuses).Status)

	again := make(chan realtime.Envelope, 1)
	reused, err := m.Get(context.Background(), "public-acme",
		realtime.Subscribe(realtime.EventConnect, func(e realtime.Envelope) { again <- e }),
	)
	require.NoError(t, err)
	require.Same(t, conn, reused)
	require.Equal(t, realtime.EventConnect, waitFor(t, again).Event)
}

func TestEnvelope_JSON(t *testing.T) {
	var e realtime.Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"event":"winner-announced","payload":{"player":"p1"},"message":"house"}`), &e))
	require.Equal(t, realtime.EventWinnerAnnounced, e.Event)
	require.Equal(t, "house", e.Message)

	var winner struct {
		Player string `json:"player"`
	}
	require.NoError(t, e.Decode(&winner))
	require.Equal(t, "p1", winner.Player)
}
