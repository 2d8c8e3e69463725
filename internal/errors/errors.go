package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the stores, the PAR flow and the sweeper
var (
	// Client errors
	ErrInvalidClient       = errors.New("invalid client")
	ErrInvalidClientSecret = errors.New("invalid client secret")
	ErrInvalidScope        = errors.New("invalid scope")
	ErrClientExpired       = errors.New("client expired")

	// Pushed authorization request errors
	ErrRequestURIExpired  = errors.New("request_uri expired")
	ErrRequestURIMismatch = errors.New("request_uri issued to a different client")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
