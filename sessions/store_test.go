package sessions_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/jrsteele09/go-bingo-admin/sessions"
	fakesessionrepo "github.com/jrsteele09/go-bingo-admin/sessions/repofakes"
	"github.com/jrsteele09/go-bingo-admin/token"
	"github.com/jrsteele09/go-bingo-admin/token/refresh"
	"github.com/jrsteele09/go-bingo-admin/token/tokentest"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	c chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               {}

// stubRefresher records calls and answers with the queued results
type stubRefresher struct {
	mu      sync.Mutex
	calls   []string
	results []refreshResult
}

type refreshResult struct {
	pair token.Pair
	err  error
}

func (r *stubRefresher) Queue(pair token.Pair, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, refreshResult{pair: pair, err: err})
}

func (r *stubRefresher) Refresh(_ context.Context, refreshToken string) (token.Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, refreshToken)
	if len(r.results) == 0 {
		return token.Pair{}, fmt.Errorf("no refresh result queued")
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res.pair, res.err
}

func (r *stubRefresher) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newStore(t *testing.T, refresher sessions.Refresher, options ...sessions.StoreOption) (*sessions.Store, *fakesessionrepo.FakeSessionRepo) {
	t.Helper()
	repo := fakesessionrepo.NewFakeSessionRepo()
	store, err := sessions.New(repo, refresher, options...)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store, repo
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := sessions.New(nil, &stubRefresher{})
	require.Error(t, err)

	_, err = sessions.New(fakesessionrepo.NewFakeSessionRepo(), nil)
	require.Error(t, err)
}

func TestStore_Login(t *testing.T) {
	t.Run("permissions reflect the login", func(t *testing.T) {
		store, repo := newStore(t, &stubRefresher{})
		require.False(t, store.IsAuthenticated())

		access := tokentest.WithPermissions(t, "acme", "users.read")
		require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: access, RefreshToken: "refresh-1"}))

		require.True(t, store.IsAuthenticated())
		require.True(t, store.CheckPermission("users.read"))
		require.False(t, store.CheckPermission("users.write"))
		require.Equal(t, access, store.AccessToken())
		require.Equal(t, "acme", store.Claims().Tenant)
		require.Equal(t, refresh.Running, store.SchedulerState())
		require.Equal(t, 1, repo.Saves())

		record, err := repo.Load(sessions.DefaultStorageKey)
		require.NoError(t, err)
		require.Equal(t, "refresh-1", record.RefreshToken)
	})

	t.Run("role map grants permissions", func(t *testing.T) {
		store, _ := newStore(t, &stubRefresher{}, sessions.WithRoleMap(token.RoleMap{
			"operator": {"games.read", "games.write"},
		}))

		access := tokentest.Sign(t, map[string]any{"sub": "user-2", "role": "operator", "permissions": "users.read"})
		require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: access}))
		require.Equal(t, []string{"games.read", "games.write", "users.read"}, store.Permissions())
		require.Equal(t, refresh.Idle, store.SchedulerState())
	})

	t.Run("undecodable token stores nothing", func(t *testing.T) {
		store, repo := newStore(t, &stubRefresher{})
		err := store.Login(context.Background(), token.Pair{AccessToken: "not-a-jwt", RefreshToken: "refresh-1"})
		require.ErrorIs(t, err, errors.ErrInvalidToken)
		require.False(t, store.IsAuthenticated())
		require.Equal(t, 0, repo.Saves())
		require.Equal(t, refresh.Idle, store.SchedulerState())
	})

	t.Run("empty pair rejected", func(t *testing.T) {
		store, _ := newStore(t, &stubRefresher{})
		require.ErrorIs(t, store.Login(context.Background(), token.Pair{}), errors.ErrEmptyTokenPair)
	})

	t.Run("persistence failure applies nothing", func(t *testing.T) {
		store, repo := newStore(t, &stubRefresher{})
		repo.FailSaves(fmt.Errorf("disk full"))

		err := store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read")})
		require.Error(t, err)
		require.False(t, store.IsAuthenticated())
		require.False(t, store.CheckPermission("users.read"))
	})
}

func TestStore_Logout(t *testing.T) {
	store, repo := newStore(t, &stubRefresher{})

	var events []sessions.Event
	store.Subscribe(func(e sessions.Event) { events = append(events, e) })

	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read"), RefreshToken: "refresh-1"}))
	require.NoError(t, store.Logout())
	require.NoError(t, store.Logout())

	require.False(t, store.IsAuthenticated())
	require.False(t, store.CheckPermission("users.read"))
	require.Nil(t, store.Claims())
	require.Empty(t, store.AccessToken())
	require.Equal(t, refresh.Idle, store.SchedulerState())

	record, err := repo.Load(sessions.DefaultStorageKey)
	require.NoError(t, err)
	require.Nil(t, record)

	require.Len(t, events, 2)
	require.Equal(t, sessions.EventLogin, events[0].Type)
	require.Equal(t, sessions.EventLogout, events[1].Type)
	require.NoError(t, events[1].Err)
}

func TestStore_Refresh(t *testing.T) {
	t.Run("success replaces tokens and permissions", func(t *testing.T) {
		refresher := &stubRefresher{}
		store, repo := newStore(t, refresher)
		require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read"), RefreshToken: "refresh-1"}))

		var events []sessions.Event
		store.Subscribe(func(e sessions.Event) { events = append(events, e) })

		refreshed := tokentest.WithPermissions(t, "acme", "users.read", "users.write")
		refresher.Queue(token.Pair{AccessToken: refreshed, RefreshToken: "refresh-2"}, nil)
		require.NoError(t, store.Refresh(context.Background()))

		require.Equal(t, []string{"refresh-1"}, refresher.Calls())
		require.Equal(t, refreshed, store.AccessToken())
		require.True(t, store.CheckPermission("users.write"))
		require.Len(t, events, 1)
		require.Equal(t, sessions.EventRefresh, events[0].Type)

		record, err := repo.Load(sessions.DefaultStorageKey)
		require.NoError(t, err)
		require.Equal(t, "refresh-2", record.RefreshToken)
	})

	t.Run("omitted refresh token is kept", func(t *testing.T) {
		refresher := &stubRefresher{}
		store, repo := newStore(t, refresher)
		require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme"), RefreshToken: "refresh-1"}))

		refresher.Queue(token.Pair{AccessToken: tokentest.WithPermissions(t, "acme")}, nil)
		require.NoError(t, store.Refresh(context.Background()))

		record, err := repo.Load(sessions.DefaultStorageKey)
		require.NoError(t, err)
		require.Equal(t, "refresh-1", record.RefreshToken)
	})

	t.Run("failure forces logout", func(t *testing.T) {
		refresher := &stubRefresher{}
		store, _ := newStore(t, refresher)
		require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read"), RefreshToken: "refresh-1"}))

		var logout sessions.Event
		store.Subscribe(func(e sessions.Event) { logout = e })

		rejected := fmt.Errorf("invalid_grant")
		refresher.Queue(token.Pair{}, rejected)
		err := store.Refresh(context.Background())
		require.ErrorIs(t, err, errors.ErrRefreshFailed)
		require.ErrorIs(t, err, rejected)

		require.False(t, store.IsAuthenticated())
		require.Equal(t, refresh.Idle, store.SchedulerState())
		require.Equal(t, sessions.EventLogout, logout.Type)
		require.ErrorIs(t, logout.Err, rejected)
	})

	t.Run("cancelled caller keeps the session", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		store, _ := newStore(t, sessions.RefresherFunc(func(ctx context.Context, _ string) (token.Pair, error) {
			cancel()
			return token.Pair{}, ctx.Err()
		}))
		require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme"), RefreshToken: "refresh-1"}))

		require.ErrorIs(t, store.Refresh(ctx), context.Canceled)
		require.True(t, store.IsAuthenticated())
	})

	t.Run("no refresh token", func(t *testing.T) {
		store, _ := newStore(t, &stubRefresher{})
		require.ErrorIs(t, store.Refresh(context.Background()), errors.ErrNoRefreshToken)
	})
}

func TestStore_LateRefreshAfterLogout(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	late := tokentest.WithPermissions(t, "acme", "users.write")

	store, repo := newStore(t, sessions.RefresherFunc(func(ctx context.Context, _ string) (token.Pair, error) {
		close(entered)
		<-release
		return token.Pair{AccessToken: late, RefreshToken: "refresh-late"}, nil
	}))
	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read"), RefreshToken: "refresh-1"}))

	result := make(chan error, 1)
	go func() { result <- store.Refresh(context.Background()) }()

	<-entered
	require.NoError(t, store.Logout())
	close(release)

	require.ErrorIs(t, <-result, errors.ErrSessionCleared)
	require.False(t, store.IsAuthenticated())
	require.False(t, store.CheckPermission("users.write"))

	record, err := repo.Load(sessions.DefaultStorageKey)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestStore_LateRefreshFailureKeepsNewerSession(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	store, _ := newStore(t, sessions.RefresherFunc(func(ctx context.Context, _ string) (token.Pair, error) {
		close(entered)
		<-release
		return token.Pair{}, fmt.Errorf("invalid_grant")
	}))
	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme"), RefreshToken: "refresh-1"}))

	result := make(chan error, 1)
	go func() { result <- store.Refresh(context.Background()) }()

	<-entered
	newer := tokentest.WithPermissions(t, "acme", "users.read")
	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: newer, RefreshToken: "refresh-2"}))
	close(release)

	require.ErrorIs(t, <-result, errors.ErrSessionCleared)
	require.True(t, store.IsAuthenticated())
	require.Equal(t, newer, store.AccessToken())
}

func TestStore_RefreshAfterNewLoginDoesNotJoinOldFlight(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	fresh := tokentest.WithPermissions(t, "acme", "users.write")

	var mu sync.Mutex
	var presented []string
	store, _ := newStore(t, sessions.RefresherFunc(func(ctx context.Context, refreshToken string) (token.Pair, error) {
		mu.Lock()
		presented = append(presented, refreshToken)
		mu.Unlock()
		if refreshToken == "refresh-1" {
			entered <- struct{}{}
			<-release
			return token.Pair{}, fmt.Errorf("invalid_grant")
		}
		return token.Pair{AccessToken: fresh, RefreshToken: "refresh-3"}, nil
	}))
	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme"), RefreshToken: "refresh-1"}))

	stale := make(chan error, 1)
	go func() { stale <- store.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read"), RefreshToken: "refresh-2"}))
	require.NoError(t, store.Refresh(context.Background()))
	require.Equal(t, fresh, store.AccessToken())

	close(release)
	require.ErrorIs(t, <-stale, errors.ErrSessionCleared)
	require.Equal(t, fresh, store.AccessToken())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"refresh-1", "refresh-2"}, presented)
}

func TestStore_ScheduledRefresh(t *testing.T) {
	ticker := &manualTicker{c: make(chan time.Time)}
	refresher := &stubRefresher{}
	store, _ := newStore(t, refresher, sessions.WithSchedulerOptions(refresh.WithTicker(func(time.Duration) refresh.Ticker {
		return ticker
	})))

	refreshed := make(chan sessions.Event, 1)
	store.Subscribe(func(e sessions.Event) {
		if e.Type == sessions.EventRefresh {
			refreshed <- e
		}
	})

	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme"), RefreshToken: "refresh-1"}))
	refresher.Queue(token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read"), RefreshToken: "refresh-2"}, nil)

	ticker.c <- time.Now()
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled refresh did not run")
	}
	require.True(t, store.CheckPermission("users.read"))
	require.Equal(t, []string{"refresh-1"}, refresher.Calls())
}

func TestStore_Restore(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		store, _ := newStore(t, &stubRefresher{})
		restored, err := store.Restore(context.Background())
		require.NoError(t, err)
		require.False(t, restored)
		require.False(t, store.IsAuthenticated())
	})

	t.Run("persisted session survives a new context", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		first, err := sessions.New(repo, &stubRefresher{})
		require.NoError(t, err)
		require.NoError(t, first.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme", "users.read"), RefreshToken: "refresh-1"}))
		first.Close()

		second, err := sessions.New(repo, &stubRefresher{})
		require.NoError(t, err)
		defer second.Close()

		var restoredEvent sessions.Event
		second.Subscribe(func(e sessions.Event) { restoredEvent = e })

		restored, err := second.Restore(context.Background())
		require.NoError(t, err)
		require.True(t, restored)
		require.True(t, second.CheckPermission("users.read"))
		require.Equal(t, refresh.Running, second.SchedulerState())
		require.Equal(t, sessions.EventRestore, restoredEvent.Type)
	})

	t.Run("expired access token is refreshed", func(t *testing.T) {
		refresher := &stubRefresher{}
		store, repo := newStore(t, refresher)
		expired := tokentest.Sign(t, map[string]any{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
		require.NoError(t, repo.Save(sessions.DefaultStorageKey, &sessions.Record{AccessToken: expired, RefreshToken: "refresh-1"}))

		fresh := tokentest.WithPermissions(t, "acme", "users.read")
		refresher.Queue(token.Pair{AccessToken: fresh}, nil)

		restored, err := store.Restore(context.Background())
		require.NoError(t, err)
		require.True(t, restored)
		require.Equal(t, fresh, store.AccessToken())
	})

	t.Run("unavailable signing keys keep the record", func(t *testing.T) {
		jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer jwks.Close()

		kp := tokentest.NewKeyPair(t)
		decoder := token.NewOIDCDecoderFromJWKS(context.Background(), jwks.URL, jwks.URL+"/jwks")
		store, repo := newStore(t, &stubRefresher{}, sessions.WithDecoder(decoder))

		raw := kp.Sign(t, map[string]any{"iss": jwks.URL, "sub": "user-1"})
		require.NoError(t, repo.Save(sessions.DefaultStorageKey, &sessions.Record{AccessToken: raw, RefreshToken: "refresh-1"}))

		restored, err := store.Restore(context.Background())
		require.ErrorIs(t, err, errors.ErrKeysUnavailable)
		require.False(t, restored)
		require.False(t, store.IsAuthenticated())

		record, err := repo.Load(sessions.DefaultStorageKey)
		require.NoError(t, err)
		require.NotNil(t, record)
		require.Equal(t, raw, record.AccessToken)
		require.Equal(t, 0, repo.Deletes())
	})

	t.Run("unreadable record is discarded", func(t *testing.T) {
		store, repo := newStore(t, &stubRefresher{})
		require.NoError(t, repo.Save(sessions.DefaultStorageKey, &sessions.Record{AccessToken: "garbage"}))

		restored, err := store.Restore(context.Background())
		require.ErrorIs(t, err, errors.ErrInvalidToken)
		require.False(t, restored)

		record, err := repo.Load(sessions.DefaultStorageKey)
		require.NoError(t, err)
		require.Nil(t, record)
	})
}

func TestStore_Subscribe(t *testing.T) {
	store, _ := newStore(t, &stubRefresher{})

	var order []string
	store.Subscribe(func(sessions.Event) { order = append(order, "first") })
	unsubscribe := store.Subscribe(func(sessions.Event) { order = append(order, "second") })
	store.Subscribe(func(sessions.Event) { order = append(order, "third") })

	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme")}))
	require.Equal(t, []string{"first", "second", "third"}, order)

	unsubscribe()
	unsubscribe()
	order = nil
	require.NoError(t, store.Logout())
	require.Equal(t, []string{"first", "third"}, order)
}

func TestStore_Close(t *testing.T) {
	store, repo := newStore(t, &stubRefresher{})
	require.NoError(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme"), RefreshToken: "refresh-1"}))

	called := false
	store.Subscribe(func(sessions.Event) { called = true })
	store.Close()

	require.Equal(t, refresh.Idle, store.SchedulerState())
	require.ErrorIs(t, store.Login(context.Background(), token.Pair{AccessToken: tokentest.WithPermissions(t, "acme")}), errors.ErrSessionClosed)
	require.ErrorIs(t, store.Refresh(context.Background()), errors.ErrSessionClosed)
	require.False(t, called)

	record, err := repo.Load(sessions.DefaultStorageKey)
	require.NoError(t, err)
	require.NotNil(t, record)
}
