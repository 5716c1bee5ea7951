package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-bingo-admin/api"
	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/jrsteele09/go-bingo-admin/sessions"
	"github.com/jrsteele09/go-bingo-admin/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Session receives the pair issued by SignIn
type Session interface {
	Login(ctx context.Context, pair token.Pair) error
}

var _ sessions.Refresher = (*Service)(nil)

// Service talks to the tenant's token endpoints. Its client must not carry a bearer
// token source; every path it calls is public.
type Service struct {
	client       *api.Client
	clientID     string
	clientSecret string
	scopes       []string
	validator    *Validator
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

func WithClientSecret(secret string) ServiceOption {
	return func(s *Service) {
		s.clientSecret = secret
	}
}

func WithScopes(scopes ...string) ServiceOption {
	return func(s *Service) {
		s.scopes = append(s.scopes, scopes...)
	}
}

func NewService(client *api.Client, clientID string, options ...ServiceOption) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("[auth NewService] api client is required")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("[auth NewService] client id is required")
	}

	s := &Service{
		client:    client,
		clientID:  clientID,
		validator: NewValidator(),
	}
	for _, opt := range options {
		opt(s)
	}
	for _, scope := range s.scopes {
		if scope == "" || strings.ContainsAny(scope, " \n\r\t") {
			return nil, fmt.Errorf("[auth NewService] invalid scope %q", scope)
		}
	}
	if err := ValidateScope(strings.Join(s.scopes, " ")); err != nil {
		return nil, fmt.Errorf("[auth NewService] %w", err)
	}
	return s, nil
}

// SignIn runs the password grant and hands the issued pair to session
func (s *Service) SignIn(ctx context.Context, session Session, email, password string) error {
	pair, err := s.Issue(ctx, email, password)
	if err != nil {
		return err
	}
	if err := session.Login(ctx, pair); err != nil {
		return errors.Wrapf(err, "[Service SignIn] failed to start session")
	}
	return nil
}

// Issue exchanges credentials for a token pair at the token issuance endpoint
func (s *Service) Issue(ctx context.Context, email, password string) (token.Pair, error) {
	if err := s.validator.ValidateUserCredentials(email, password); err != nil {
		return token.Pair{}, err
	}

	cfg, err := s.config(ctx, api.PathTokenIssue)
	if err != nil {
		return token.Pair{}, err
	}

	tok, err := cfg.PasswordCredentialsToken(s.oauthContext(ctx), strings.TrimSpace(email), password)
	if err != nil {
		return token.Pair{}, s.normalise("Issue", err)
	}
	return s.pair(tok)
}

// Refresh runs the refresh token grant. A response without a new refresh token keeps
// the one presented.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	if err := s.validator.ValidateRefreshToken(refreshToken); err != nil {
		return token.Pair{}, err
	}

	cfg, err := s.config(ctx, api.PathTokenRefresh)
	if err != nil {
		return token.Pair{}, err
	}

	tok, err := cfg.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return token.Pair{}, s.normalise("Refresh", err)
	}
	pair, err := s.pair(tok)
	if err != nil {
		return token.Pair{}, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.validator.ValidateEmail(email); err != nil {
		return err
	}
	body := map[string]string{"email": strings.TrimSpace(email)}
	return s.client.Do(ctx, http.MethodPost, api.PathPasswordResetRequest, nil, body, nil)
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if err := s.validator.ValidateResetToken(resetToken); err != nil {
		return err
	}
	if err := s.validator.ValidateNewPassword(newPassword); err != nil {
		return err
	}
	body := map[string]string{"token": resetToken, "password": newPassword}
	return s.client.Do(ctx, http.MethodPost, api.PathPasswordResetConfirm, nil, body, nil)
}

func (s *Service) config(ctx context.Context, path string) (*oauth2.Config, error) {
	tokenURL, err := s.client.Router().URL(ctx, path)
	if err != nil {
		return nil, err
	}
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Scopes:       s.scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, nil
}

// oauthContext routes the oauth2 package through the tenant decorating client
func (s *Service) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client.HTTPClient())
}

func (s *Service) pair(tok *oauth2.Token) (token.Pair, error) {
	if err := s.validator.ValidateAccessToken(tok.AccessToken); err != nil {
		return token.Pair{}, errors.Wrapf(errors.ErrInvalidToken, "[Service] %s", err.Error())
	}
	return token.Pair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// normalise turns oauth2 failures into *api.Error so callers classify token endpoint
// failures like any other call
func (s *Service) normalise(method string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		log.Debug().
			Int("status", retrieveErr.Response.StatusCode).
			Str("error_code", retrieveErr.ErrorCode).
			Msgf("token %s rejected", strings.ToLower(method))
		return api.NewError(retrieveErr.Response.StatusCode, retrieveErr.Body).Wrap(err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return api.NetworkError(err)
	}
	return errors.Wrapf(err, "[Service %s] token endpoint failure", method)
}
