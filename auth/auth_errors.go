package auth

import "errors"

var (
	InvalidClientIDErr     = errors.New("invalid client id")
	ClientSecretErr        = errors.New("client secret incorrect")
	PARRequiredErr         = errors.New("pushed authorization request required")
	AuthCodeInvalidErr     = errors.New("auth code invalid")
	AuthCodeExpiredErr     = errors.New("auth code expired")
	AuthCodeClientErr      = errors.New("auth code issued to another client")
	RedirectURIMismatchErr = errors.New("redirect_uri does not match the authorization request")
	CodeVerifierErr        = errors.New("code verifier does not match the code challenge")
)
