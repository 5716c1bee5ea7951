package token

import (
	"context"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/jrsteele09/go-bingo-admin/internal/utils"
)

// Decoder turns a raw access token into Claims
type Decoder interface {
	Decode(ctx context.Context, rawToken string) (*Claims, error)
}

// UnverifiedDecoder reads claims without checking the signature. The client never holds
// the signing key; the API verifies every token it receives.
type UnverifiedDecoder struct{}

var _ Decoder = UnverifiedDecoder{}

func (UnverifiedDecoder) Decode(_ context.Context, rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "[UnverifiedDecoder Decode] empty token")
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "[UnverifiedDecoder Decode] %s", err.Error())
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrapf(errors.ErrMissingClaims, "[UnverifiedDecoder Decode] error extracting claims")
	}
	return ClaimsFromMap(mapClaims), nil
}

// ClaimsFromMap maps the generic claim set onto Claims. Roles may arrive as "roles"
// (array) or "role" (string); permissions as an array or a space separated string.
func ClaimsFromMap(m map[string]any) *Claims {
	sub, _ := m["sub"].(string)
	tenant, _ := m["tenant"].(string)
	email, _ := m["email"].(string)
	name, _ := m["name"].(string)
	iss, _ := m["iss"].(string)

	roles := utils.ClaimStrings(m["roles"])
	if role, ok := m["role"].(string); ok && role != "" {
		roles = append(roles, role)
	}

	return &Claims{
		Subject:     sub,
		Tenant:      tenant,
		Email:       email,
		Name:        name,
		Roles:       roles,
		Permissions: utils.ClaimStrings(m["permissions"]),
		Scope:       utils.ClaimStrings(m["scope"]),
		Issuer:      iss,
		IssuedAt:    numericTime(m["iat"]),
		ExpiresAt:   numericTime(m["exp"]),
		Raw:         m,
	}
}

func numericTime(v any) time.Time {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0)
	case int64:
		return time.Unix(n, 0)
	case int:
		return time.Unix(int64(n), 0)
	default:
		return time.Time{}
	}
}
