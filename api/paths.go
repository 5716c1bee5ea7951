package api

import "strings"

// REST paths, relative to the tenant base URL
const (
	PathTokenIssue           = "/auth/token"
	PathTokenRefresh         = "/auth/token/refresh"
	PathPasswordResetRequest = "/auth/password-reset"
	PathPasswordResetConfirm = "/auth/password-reset/confirm"

	PathUsers       = "/users"
	PathRoles       = "/roles"
	PathPermissions = "/permissions"
	PathBranches    = "/branches"

	PathTenantSettings = "/tenant/settings"
	PathTenantUpgrade  = "/tenant/upgrade"
)

// PublicPaths never carry a bearer token
var PublicPaths = []string{
	PathTokenIssue,
	PathTokenRefresh,
	PathPasswordResetRequest,
	PathPasswordResetConfirm,
	PathTenantSettings,
}

// IsPublicPath reports whether path, relative to the tenant base URL, is exactly one
// of the public endpoints
func IsPublicPath(path string, public []string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, p := range public {
		if path == p {
			return true
		}
	}
	return false
}

func resourcePath(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(escapeSegment(s))
	}
	return b.String()
}
