// Package tokentest builds signed access tokens for tests.
package tokentest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "tokentest-secret"

// Sign returns an HS256 token for claims. Missing iat/exp/jti are filled in,
// exp one hour from now.
func Sign(t testing.TB, claims map[string]any) string {
	t.Helper()
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, withDefaults(claims)).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("tokentest.Sign: %v", err)
	}
	return signed
}

// WithPermissions is shorthand for a user token carrying explicit permissions
func WithPermissions(t testing.TB, tenant string, permissions ...string) string {
	t.Helper()
	return Sign(t, map[string]any{
		"sub":         "user-1",
		"tenant":      tenant,
		"permissions": permissions,
	})
}

func withDefaults(claims map[string]any) jwtlib.MapClaims {
	mc := jwtlib.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	now := time.Now()
	if _, ok := mc["iat"]; !ok {
		mc["iat"] = now.Unix()
	}
	if _, ok := mc["exp"]; !ok {
		mc["exp"] = now.Add(time.Hour).Unix()
	}
	if _, ok := mc["jti"]; !ok {
		mc["jti"] = uuid.New().String()
	}
	return mc
}

// KeyPair is an RS256 signing key with its JWKS document, for verified decoding tests
type KeyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

func NewKeyPair(t testing.TB) *KeyPair {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("tokentest.NewKeyPair: %v", err)
	}
	return &KeyPair{KeyID: uuid.New().String(), PrivateKey: privateKey}
}

func (kp *KeyPair) Sign(t testing.TB, claims map[string]any) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, withDefaults(claims))
	tok.Header["kid"] = kp.KeyID
	signed, err := tok.SignedString(kp.PrivateKey)
	if err != nil {
		t.Fatalf("tokentest.KeyPair.Sign: %v", err)
	}
	return signed
}

// JWKSHandler serves the public half of the key pair as a JSON Web Key Set
func (kp *KeyPair) JWKSHandler() http.HandlerFunc {
	pub := kp.PrivateKey.PublicKey
	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": kp.KeyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}
}
