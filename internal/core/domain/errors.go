package domain

import "errors"

// Login failure kinds. Callers branch with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTransport          = errors.New("auth backend unreachable")
	ErrMalformedResponse  = errors.New("malformed auth response")
)

// Stub backend errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("refresh session not found")
	ErrInvalidToken    = errors.New("invalid token")
)
