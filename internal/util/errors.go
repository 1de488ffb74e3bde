package util

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNoAttempt          = errors.New("no quiz attempt in progress")
)
