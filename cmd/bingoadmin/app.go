package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-bingo-admin/access"
	"github.com/jrsteele09/go-bingo-admin/api"
	"github.com/jrsteele09/go-bingo-admin/auth"
	"github.com/jrsteele09/go-bingo-admin/internal/config"
	"github.com/jrsteele09/go-bingo-admin/realtime"
	"github.com/jrsteele09/go-bingo-admin/sessions"
	"github.com/jrsteele09/go-bingo-admin/sessions/filerepo"
	"github.com/jrsteele09/go-bingo-admin/tenants"
	"github.com/jrsteele09/go-bingo-admin/token"
	"github.com/rs/zerolog/log"
)

// app holds the wired components one CLI invocation works with
type app struct {
	auth    *auth.Service
	store   *sessions.Store
	client  *api.Client
	sockets *realtime.Manager
	guard   *access.Guard
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	resolver := tenants.NewResolver(
		tenants.WithCustomTLDs(c.GetCustomTLDs()...),
		tenants.WithLabelPosition(c.GetTenantLabelPosition()),
	)
	router, err := api.NewRouter(c.GetAPIBaseURLTemplate(), resolver,
		api.WithHostFunc(tenants.StaticHost(c.GetAppHost())),
		api.WithDefaultTenant(c.GetDefaultTenant()),
	)
	if err != nil {
		return nil, fmt.Errorf("[newApp] invalid API_BASE_URL: %w", err)
	}

	transportOptions := api.WithTransportOptions(api.WithTenantHeader(c.GetTenantHeader()))
	timeout := api.WithTimeout(c.GetRequestTimeout())

	// the token endpoints are public, so this client carries no token source
	publicClient, err := api.NewClient(router, nil, timeout, transportOptions)
	if err != nil {
		return nil, err
	}
	authService, err := auth.NewService(publicClient, c.GetClientID())
	if err != nil {
		return nil, err
	}

	repo, err := filerepo.New(c.GetSessionDir(), filerepo.WithPassphrase(c.GetSessionPassphrase()))
	if err != nil {
		return nil, err
	}
	roles, err := config.LoadRolePermissions(c.GetRolePermissionsFile())
	if err != nil {
		return nil, err
	}

	storeOptions := []sessions.StoreOption{
		sessions.WithRoleMap(token.RoleMap(roles)),
		sessions.WithStorageKey(c.GetSessionKey()),
		sessions.WithRefreshInterval(c.GetRefreshInterval()),
	}
	if c.GetVerifyTokens() {
		decoder, err := token.NewOIDCDecoder(ctx, c.GetTokenIssuer())
		if err != nil {
			return nil, fmt.Errorf("[newApp] failed to set up token verification: %w", err)
		}
		storeOptions = append(storeOptions, sessions.WithDecoder(decoder))
	}

	store, err := sessions.New(repo, authService, storeOptions...)
	if err != nil {
		return nil, err
	}
	if _, err := store.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore the previous session")
	}

	client, err := api.NewClient(router, store, timeout, transportOptions)
	if err != nil {
		store.Close()
		return nil, err
	}
	sockets, err := realtime.NewManager(c.GetSocketURLTemplate(), router, store,
		realtime.WithHandshakeTimeout(c.GetSocketHandshakeTimeout()),
		realtime.WithTenantHeader(c.GetTenantHeader()),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("[newApp] invalid SOCKET_URL: %w", err)
	}

	return &app{
		auth:    authService,
		store:   store,
		client:  client,
		sockets: sockets,
		guard:   access.NewGuard(store),
	}, nil
}

func (a *app) Close() {
	a.sockets.Close()
	a.store.Close()
}
