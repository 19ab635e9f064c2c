package store

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrIdentityNotFound = errors.New("identity not found")
)
