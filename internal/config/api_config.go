package config

import (
	"time"

	"github.com/jrsteele09/go-bingo-admin/tenants"
)

// TenantPlaceholder is substituted with the resolved tenant ID in URL templates
const TenantPlaceholder = tenants.Placeholder

type APIConfig interface {
	GetAPIBaseURLTemplate() string
	GetAppHost() string
	GetDefaultTenant() string
	GetTenantHeader() string
	GetCustomTLDs() []string
	GetTenantLabelPosition() int
	GetRequestTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

func (API) GetAPIBaseURLTemplate() string {
	return GetEnv("API_BASE_URL", "https://"+TenantPlaceholder+".bingo.localhost/api/v1")
}

// GetAppHost is the host name the tenant is resolved from, the equivalent of the
// browser's location.hostname
func (API) GetAppHost() string {
	return GetEnv("APP_HOST", "")
}

func (API) GetDefaultTenant() string {
	return GetEnv("DEFAULT_TENANT", "")
}

func (API) GetTenantHeader() string {
	return GetEnv("TENANT_HEADER", "X-Tenant-ID")
}

func (API) GetCustomTLDs() []string {
	return GetEnvList("CUSTOM_TLDS", []string{"localhost"})
}

func (API) GetTenantLabelPosition() int {
	return GetEnvInt("TENANT_LABEL_POSITION", 0)
}

func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
}
