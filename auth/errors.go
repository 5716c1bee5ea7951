package auth

import "errors"

var (
	InvalidEmailErr        = errors.New("invalid email")
	MissingPasswordErr     = errors.New("password is required")
	WeakPasswordErr        = errors.New("password too short")
	InvalidRefreshTokenErr = errors.New("invalid refresh token")
	InvalidAccessTokenErr  = errors.New("invalid access token")
	MissingResetTokenErr   = errors.New("reset token is required")
)
