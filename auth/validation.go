package auth

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	minPasswordLength     = 8
	minRefreshTokenLength = 10
)

// Validator holds the client side checks run before anything is sent to the token
// endpoint. The server repeats them; these only save a round trip.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials. Usernames are email addresses.
func (v *Validator) ValidateUserCredentials(email, password string) error {
	if err := v.ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return MissingPasswordErr
	}
	return nil
}

func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", InvalidEmailErr)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fmt.Errorf("%w: %q", InvalidEmailErr, email)
	}
	return nil
}

// ValidateNewPassword applies the minimum strength rule for password resets
func (v *Validator) ValidateNewPassword(password string) error {
	if password == "" {
		return MissingPasswordErr
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", WeakPasswordErr, minPasswordLength)
	}
	return nil
}

func (v *Validator) ValidateRefreshToken(refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return fmt.Errorf("%w: refresh token is required", InvalidRefreshTokenErr)
	}
	if len(refreshToken) < minRefreshTokenLength {
		return fmt.Errorf("%w: invalid format", InvalidRefreshTokenErr)
	}
	return nil
}

// ValidateAccessToken checks the token endpoint handed back something shaped like a JWT
func (v *Validator) ValidateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: access token is required", InvalidAccessTokenErr)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: must be a valid JWT", InvalidAccessTokenErr)
	}
	for i, part := range parts {
		if len(part) == 0 {
			return fmt.Errorf("%w: part %d is empty", InvalidAccessTokenErr, i+1)
		}
	}
	return nil
}

func (v *Validator) ValidateResetToken(resetToken string) error {
	if strings.TrimSpace(resetToken) == "" {
		return MissingResetTokenErr
	}
	return nil
}

// ValidateScope validates a space separated scope string
func ValidateScope(scope string) error {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil
	}
	if strings.ContainsAny(scope, "\n\r\t") {
		return fmt.Errorf("scope contains invalid characters")
	}
	for _, s := range strings.Split(scope, " ") {
		if s == "" {
			return fmt.Errorf("scope tokens must be separated by single spaces")
		}
	}
	return nil
}
