package tenants

import "context"

type hostKey struct{}

// HostFunc supplies the current host name, the equivalent of the browser's location
type HostFunc func() string

// StaticHost always reports the same host
func StaticHost(host string) HostFunc {
	return func() string { return host }
}

// WithHost overrides the host a single call resolves its tenant from
func WithHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, hostKey{}, host)
}

// HostFromContext returns the host set by WithHost, falling back to fallback
func HostFromContext(ctx context.Context, fallback HostFunc) string {
	if host, ok := ctx.Value(hostKey{}).(string); ok && host != "" {
		return host
	}
	if fallback == nil {
		return ""
	}
	return fallback()
}
