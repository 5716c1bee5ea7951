package tenants

import (
	"net"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Resolver derives a tenant ID from a host name. The tenant is the subdomain label
// in front of the registrable domain, e.g. "acme" for "acme.bingo.com".
type Resolver struct {
	customTLDs    []string // sorted longest first
	labelPosition int
}

type ResolverOption func(*Resolver)

// WithCustomTLDs registers extra suffixes, typically dev hosts such as "localhost" or
// "localhost.test". Everything in front of a custom suffix is the subdomain portion.
func WithCustomTLDs(tlds ...string) ResolverOption {
	return func(r *Resolver) {
		for _, tld := range tlds {
			tld = strings.Trim(strings.ToLower(strings.TrimSpace(tld)), ".")
			if tld != "" {
				r.customTLDs = append(r.customTLDs, tld)
			}
		}
	}
}

// WithLabelPosition selects which subdomain label names the tenant when the host has
// several (a.b.example.com). Position 0 is the left-most label.
func WithLabelPosition(position int) ResolverOption {
	return func(r *Resolver) {
		r.labelPosition = position
	}
}

func NewResolver(options ...ResolverOption) *Resolver {
	r := &Resolver{}
	for _, opt := range options {
		opt(r)
	}
	sort.SliceStable(r.customTLDs, func(i, j int) bool {
		return len(r.customTLDs[i]) > len(r.customTLDs[j])
	})
	return r
}

// Resolve returns the tenant label for hostname, or false when the host has no subdomain
func (r *Resolver) Resolve(hostname string) (string, bool) {
	host := normaliseHost(hostname)
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	subdomain, ok := r.subdomain(host)
	if !ok || subdomain == "" {
		return "", false
	}

	labels := strings.Split(subdomain, ".")
	if r.labelPosition < 0 || r.labelPosition >= len(labels) {
		return "", false
	}
	label := labels[r.labelPosition]
	if label == "" {
		return "", false
	}
	return label, true
}

func (r *Resolver) subdomain(host string) (string, bool) {
	for _, tld := range r.customTLDs {
		if strings.HasSuffix(host, "."+tld) {
			return strings.TrimSuffix(host, "."+tld), true
		}
		if host == tld {
			return "", false
		}
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	if domain == host {
		return "", false
	}
	return strings.TrimSuffix(host, "."+domain), true
}

func normaliseHost(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return strings.TrimSuffix(host, ".")
}
