package token

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-bingo-admin/internal/errors"
)

// OIDCDecoder verifies the token signature against the issuer's published key set
// before decoding.
type OIDCDecoder struct {
	verifier *oidc.IDTokenVerifier
}

var _ Decoder = (*OIDCDecoder)(nil)

// NewOIDCDecoder discovers the issuer's JWKS through /.well-known/openid-configuration
func NewOIDCDecoder(ctx context.Context, issuer string) (*OIDCDecoder, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewOIDCDecoder] failed to create OIDC provider")
	}

	var metadata struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := provider.Claims(&metadata); err != nil || metadata.JWKSURL == "" {
		return nil, errors.Wrapf(errors.ErrKeysUnavailable, "[NewOIDCDecoder] issuer does not advertise jwks_uri")
	}
	return NewOIDCDecoderFromJWKS(ctx, issuer, metadata.JWKSURL), nil
}

// NewOIDCDecoderFromJWKS skips discovery and uses a known key set URL
func NewOIDCDecoderFromJWKS(ctx context.Context, issuer, jwksURL string) *OIDCDecoder {
	keySet := &trackedKeySet{remote: oidc.NewRemoteKeySet(ctx, jwksURL)}
	return &OIDCDecoder{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{SkipClientIDCheck: true}),
	}
}

// Decode returns ErrKeysUnavailable when the key set could not be fetched, which
// says nothing about the token itself.
func (d *OIDCDecoder) Decode(ctx context.Context, rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "[OIDCDecoder Decode] empty token")
	}

	fetch := &fetchResult{}
	verified, err := d.verifier.Verify(context.WithValue(ctx, fetchResultKey{}, fetch), rawToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		switch {
		case errors.As(err, &expired):
			return nil, errors.Wrapf(errors.ErrTokenExpired, "[OIDCDecoder Decode] %s", err.Error())
		case fetch.err != nil:
			return nil, errors.Wrapf(errors.ErrKeysUnavailable, "[OIDCDecoder Decode] %s", fetch.err.Error())
		default:
			return nil, errors.Wrapf(errors.ErrInvalidToken, "[OIDCDecoder Decode] %s", err.Error())
		}
	}

	claims := make(map[string]any)
	if err := verified.Claims(&claims); err != nil {
		return nil, errors.Wrapf(errors.ErrMissingClaims, "[OIDCDecoder Decode] %s", err.Error())
	}
	return ClaimsFromMap(claims), nil
}

type fetchResultKey struct{}

// fetchResult carries a key download failure out of one Verify call. The verifier
// flattens key set errors into text.
type fetchResult struct {
	err error
}

type trackedKeySet struct {
	remote *oidc.RemoteKeySet
}

func (k *trackedKeySet) VerifySignature(ctx context.Context, jwt string) ([]byte, error) {
	payload, err := k.remote.VerifySignature(ctx, jwt)
	if err != nil && strings.HasPrefix(err.Error(), "fetching keys") {
		if fetch, ok := ctx.Value(fetchResultKey{}).(*fetchResult); ok {
			fetch.err = err
		}
	}
	return payload, err
}
