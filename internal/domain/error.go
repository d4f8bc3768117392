package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("session not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrReservedID      = errors.New("session id is reserved")
)
