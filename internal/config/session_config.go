package config

import (
	"os"
	"path/filepath"
	"time"
)

type SessionConfig interface {
	GetSessionDir() string
	GetSessionKey() string
	GetSessionPassphrase() string
	GetRefreshInterval() time.Duration
	GetClientID() string
	GetRolePermissionsFile() string
	GetTokenIssuer() string
	GetVerifyTokens() bool
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionDir() string {
	if dir := GetEnv("SESSION_DIR", ""); dir != "" {
		return dir
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(configDir, "bingo-admin")
}

// GetSessionKey is the fixed storage key the token pair is persisted under
func (Session) GetSessionKey() string {
	return GetEnv("SESSION_KEY", "bingo-admin-session")
}

func (Session) GetSessionPassphrase() string {
	return GetEnv("SESSION_PASSPHRASE", "")
}

// GetRefreshInterval must stay shorter than the access token lifetime
func (Session) GetRefreshInterval() time.Duration {
	return GetEnvDuration("REFRESH_INTERVAL", 4*time.Minute)
}

func (Session) GetClientID() string {
	return GetEnv("CLIENT_ID", "bingo-admin")
}

func (Session) GetRolePermissionsFile() string {
	return GetEnv("ROLE_PERMISSIONS_FILE", "")
}

func (Session) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "")
}

func (Session) GetVerifyTokens() bool {
	return GetEnvBool("VERIFY_TOKENS", false)
}
