package core

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned for ids that are unknown or already evicted.
	// It matches ErrSessionNotFound under errors.Is.
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrSessionNotFound)

	ErrValidation   = errors.New("validation error")
	ErrRejected     = errors.New("instruction rejected")
	ErrReplaceCycle = errors.New("instruction replace cycle")
	ErrIDExhausted  = errors.New("session id generation exhausted")
)
