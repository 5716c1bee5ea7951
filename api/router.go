package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/jrsteele09/go-bingo-admin/tenants"
)

// Router maps the current host onto a tenant and the tenant onto its base URL
type Router struct {
	template      string
	resolver      *tenants.Resolver
	host          tenants.HostFunc
	defaultTenant string
}

type RouterOption func(*Router)

// WithHostFunc sets the fallback host a call resolves its tenant from when the
// context carries none
func WithHostFunc(host tenants.HostFunc) RouterOption {
	return func(r *Router) {
		r.host = host
	}
}

// WithDefaultTenant is used when the host carries no tenant
func WithDefaultTenant(tenantID string) RouterOption {
	return func(r *Router) {
		r.defaultTenant = strings.TrimSpace(tenantID)
	}
}

func NewRouter(template string, resolver *tenants.Resolver, options ...RouterOption) (*Router, error) {
	if err := tenants.ValidateTemplate(template); err != nil {
		return nil, err
	}
	if resolver == nil {
		resolver = tenants.NewResolver()
	}
	r := &Router{
		template: strings.TrimSuffix(template, "/"),
		resolver: resolver,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Tenant resolves the tenant for the call described by ctx
func (r *Router) Tenant(ctx context.Context) (string, error) {
	if tenantID, ok := r.resolver.Resolve(tenants.HostFromContext(ctx, r.host)); ok {
		return tenantID, nil
	}
	if r.defaultTenant != "" {
		return r.defaultTenant, nil
	}
	return "", errors.Wrapf(errors.ErrTenantNotResolved, "[Router Tenant] no tenant in host and no default tenant")
}

// BaseURL returns the tenant scoped API base URL, without a trailing slash
func (r *Router) BaseURL(ctx context.Context) (string, error) {
	tenantID, err := r.Tenant(ctx)
	if err != nil {
		return "", err
	}
	return tenants.ExpandTemplate(r.template, tenantID), nil
}

// URL joins path onto the tenant base URL
func (r *Router) URL(ctx context.Context, path string) (string, error) {
	base, err := r.BaseURL(ctx)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path, nil
}

// basePath is the path component of the tenant's base URL, without a trailing slash
func (r *Router) basePath(tenantID string) string {
	u, err := url.Parse(tenants.ExpandTemplate(r.template, tenantID))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}
