package token

import (
	"time"

	"github.com/jrsteele09/go-bingo-admin/internal/errors"
)

// Pair is the access/refresh credential pair handed out by the token endpoint
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (p Pair) Validate() error {
	if p.AccessToken == "" {
		return errors.Wrapf(errors.ErrEmptyTokenPair, "[token Pair] access token is required")
	}
	return nil
}

// Claims holds the decoded access token fields the client cares about.
// It is always derived from the raw access token, never stored on its own.
type Claims struct {
	Subject     string         `json:"sub,omitempty"`
	Tenant      string         `json:"tenant,omitempty"`
	Email       string         `json:"email,omitempty"`
	Name        string         `json:"name,omitempty"`
	Roles       []string       `json:"roles,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	Scope       []string       `json:"scope,omitempty"`
	Issuer      string         `json:"iss,omitempty"`
	IssuedAt    time.Time      `json:"iat,omitempty"`
	ExpiresAt   time.Time      `json:"exp,omitempty"`
	Raw         map[string]any `json:"-"`
}

// Expired reports whether the token is past its exp claim. Tokens without exp never expire.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt)
}

func (c *Claims) HasRole(role string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
