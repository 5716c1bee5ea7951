package tenants

// Tenant is the tenant settings record served by the tenant settings endpoint.
// The ID matches the subdomain label the tenant is resolved from.
type Tenant struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Domain   string         `json:"domain,omitempty"`
	Plan     string         `json:"plan,omitempty"`
	Currency string         `json:"currency,omitempty"`
	Timezone string         `json:"timezone,omitempty"`
	Features []string       `json:"features,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// HasFeature reports whether the tenant's plan enables the named feature
func (t *Tenant) HasFeature(feature string) bool {
	if t == nil {
		return false
	}
	for _, f := range t.Features {
		if f == feature {
			return true
		}
	}
	return false
}
