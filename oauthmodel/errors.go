package oauthmodel

import "errors"

var (
	ErrInvalidCodeChallenge       = errors.New("invalid code challenge")
	ErrInvalidCodeChallengeMethod = errors.New("invalid code challenge method")
	ErrInvalidRedirectUri         = errors.New("invalid or no redirect uri")
	ErrInvalidResponseMode        = errors.New("invalid response mode")
	ErrInvalidResponseType        = errors.New("unsupported response type")
	ErrMissingClientID            = errors.New("client_id is required")
	ErrClientMismatch             = errors.New("client_id does not match the authenticated client")
	ErrInvalidMaxAge              = errors.New("max_age must be a non-negative integer")
)
