package auth

import "errors"

var (
	ErrInvalidCredentials    = errors.New("auth: invalid credentials")
	ErrTokenExpired          = errors.New("auth: token expired")
	ErrTokenInvalidSignature = errors.New("auth: token signature invalid")
	ErrSessionNotFound       = errors.New("auth: session not found")
	ErrNotAuthenticated      = errors.New("auth: not authenticated")
	ErrInvalidInput          = errors.New("auth: invalid input")
)
