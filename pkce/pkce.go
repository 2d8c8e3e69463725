// Package pkce generates and verifies RFC 7636 code verifier and challenge pairs.
package pkce

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-authz-core/oauthmodel"
)

const (
	MinVerifierLength = 43
	MaxVerifierLength = 128

	// unreserved is the RFC 3986 unreserved character set a verifier is drawn from.
	unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
)

// CodeVerifier is a generated verifier with the challenge derived from it.
// Only Challenge and Method should be persisted.
type CodeVerifier struct {
	Verifier  string
	Method    oauthmodel.CodeMethodType
	Challenge string
}

// NewCodeVerifier generates a verifier and derives its challenge with method.
func NewCodeVerifier(method oauthmodel.CodeMethodType) (*CodeVerifier, error) {
	if _, ok := oauthmodel.ParseCodeMethod(string(method)); !ok {
		return nil, errors.Wrapf(oauthmodel.ErrInvalidCodeChallengeMethod, "[NewCodeVerifier] %q", method)
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}
	return &CodeVerifier{
		Verifier:  verifier,
		Method:    method,
		Challenge: ComputeChallenge(verifier, method),
	}, nil
}

// GenerateCodeVerifier returns a random verifier whose length is uniformly distributed
// between 43 and 128 characters.
func GenerateCodeVerifier() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxVerifierLength-MinVerifierLength+1))
	if err != nil {
		return "", errors.Wrap(err, "[GenerateCodeVerifier] length")
	}
	verifier, err := gonanoid.Generate(unreserved, MinVerifierLength+int(n.Int64()))
	if err != nil {
		return "", errors.Wrap(err, "[GenerateCodeVerifier] generate")
	}
	return verifier, nil
}

// ComputeChallenge derives the code_challenge for verifier. Unknown methods yield "".
func ComputeChallenge(verifier string, method oauthmodel.CodeMethodType) string {
	m, ok := oauthmodel.ParseCodeMethod(string(method))
	if !ok {
		return ""
	}
	switch m {
	case oauthmodel.CodeMethodTypeS256:
		return oauth2.S256ChallengeFromVerifier(verifier)
	default:
		return verifier
	}
}

// Matches reports whether verifier produces challenge under method. Empty inputs and
// unknown methods never match.
func Matches(method oauthmodel.CodeMethodType, verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	computed := ComputeChallenge(verifier, method)
	if computed == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// IsCodeVerifierValid checks the RFC 7636 length and character set rules.
func IsCodeVerifierValid(verifier string) bool {
	if len(verifier) < MinVerifierLength || len(verifier) > MaxVerifierLength {
		return false
	}
	for i := 0; i < len(verifier); i++ {
		if !isUnreserved(verifier[i]) {
			return false
		}
	}
	return true
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
