package auth

import (
	"time"

	"github.com/jrsteele09/go-authz-core/internal/utils"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/pkce"
	"github.com/jrsteele09/go-authz-core/token"
)

// validateCodeGrant checks a redeemed authorization code against the token request.
func validateCodeGrant(code *token.Token, req *oauthmodel.TokenRequest, now time.Time) error {
	if code.IsExpired(now) {
		return AuthCodeExpiredErr
	}
	if code.ClientID != req.ClientID {
		return AuthCodeClientErr
	}
	if code.RedirectURI != "" && code.RedirectURI != req.RedirectURI {
		return RedirectURIMismatchErr
	}
	if !validatePKCE(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier) {
		return CodeVerifierErr
	}
	return nil
}

// validatePKCE reports whether verifier satisfies the stored challenge. A code issued
// without a challenge must be redeemed without a verifier. A challenge stored without a
// method uses plain (RFC 7636 section 4.3).
func validatePKCE(challenge, method, verifier string) bool {
	if utils.IsBlank(challenge) {
		return utils.IsBlank(verifier)
	}
	if !pkce.IsCodeVerifierValid(verifier) {
		return false
	}
	codeMethod := oauthmodel.CodeMethodTypePlain
	if !utils.IsBlank(method) {
		parsed, ok := oauthmodel.ParseCodeMethod(method)
		if !ok {
			return false
		}
		codeMethod = parsed
	}
	return pkce.Matches(codeMethod, verifier, challenge)
}
