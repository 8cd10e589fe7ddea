package domain

import "errors"

var (
	// ErrInvalidCredential signals the upstream API rejected the caller's key.
	ErrInvalidCredential = errors.New("invalid API credential")

	// ErrNotFound signals a missing upstream resource.
	ErrNotFound = errors.New("resource not found")
)
