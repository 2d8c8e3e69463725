// Package requestobject verifies signed OpenID Connect Request Objects and exposes the
// authorization parameters they carry.
package requestobject

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jrsteele09/go-authz-core/internal/utils"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
)

// Request Object claim names
const (
	claimResponseType        = "response_type"
	claimClientID            = "client_id"
	claimRedirectURI         = "redirect_uri"
	claimScope               = "scope"
	claimState               = "state"
	claimNonce               = "nonce"
	claimCodeChallenge       = "code_challenge"
	claimCodeChallengeMethod = "code_challenge_method"
	claimDisplay             = "display"
	claimPrompt              = "prompt"
	claimResponseMode        = "response_mode"
	claimIssuer              = "iss"

	pathIDTokenMaxAge    = "claims.id_token.max_age"
	pathIDTokenACRValue  = "claims.id_token.acr.value"
	pathIDTokenACRValues = "claims.id_token.acr.values"
	pathIDToken          = "claims.id_token"
)

var (
	displayValues = []string{"page", "popup", "touch", "wap"}
	promptValues  = []string{"none", "login", "consent", "select_account"}
)

// IDTokenMember is the id_token member of the claims request parameter.
type IDTokenMember struct {
	MaxAge *int

	// ACR is the requested acr claim value, or its values joined with a space.
	ACR string
}

// AuthorizationRequest holds the authorization parameters of a verified Request Object.
type AuthorizationRequest struct {
	ResponseTypes oauthmodel.ResponseTypes
	ClientID      string

	// RedirectURI is nil when the claim is absent.
	RedirectURI *string

	Scopes              []string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string

	// Display is empty unless the claim names a known display value.
	Display string

	// Prompt is the raw prompt claim; Prompts holds its recognised values.
	Prompt  string
	Prompts []string

	// ResponseMode is empty unless the claim names a known response mode.
	ResponseMode oauthmodel.ResponseModeType

	IDTokenMember    *IDTokenMember
	CustomParameters map[string]string
}

func parseRequest(payload []byte, customAllowed []string) *AuthorizationRequest {
	doc := gjson.ParseBytes(payload)
	req := &AuthorizationRequest{
		ResponseTypes:       oauthmodel.ParseResponseTypes(spaced(doc.Get(claimResponseType))),
		ClientID:            doc.Get(claimClientID).String(),
		Scopes:              utils.SplitSpaced(spaced(doc.Get(claimScope))),
		State:               doc.Get(claimState).String(),
		Nonce:               doc.Get(claimNonce).String(),
		CodeChallenge:       doc.Get(claimCodeChallenge).String(),
		CodeChallengeMethod: doc.Get(claimCodeChallengeMethod).String(),
		Prompt:              doc.Get(claimPrompt).String(),
	}

	if r := doc.Get(claimRedirectURI); r.Exists() && r.Type != gjson.Null {
		req.RedirectURI = utils.Ptr(r.String())
	}
	if d := doc.Get(claimDisplay).String(); utils.Contains(displayValues, d) {
		req.Display = d
	}
	for _, p := range utils.SplitSpaced(req.Prompt) {
		if utils.Contains(promptValues, p) {
			req.Prompts = append(req.Prompts, p)
		}
	}
	if mode, ok := oauthmodel.ParseResponseMode(doc.Get(claimResponseMode).String()); ok {
		req.ResponseMode = mode
	}
	if doc.Get(pathIDToken).IsObject() {
		req.IDTokenMember = parseIDTokenMember(doc)
	}

	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !utils.Contains(customAllowed, name) || utils.IsBlank(value.String()) {
			return true
		}
		if req.CustomParameters == nil {
			req.CustomParameters = make(map[string]string)
		}
		req.CustomParameters[name] = value.String()
		return true
	})
	return req
}

func parseIDTokenMember(doc gjson.Result) *IDTokenMember {
	member := &IDTokenMember{}
	if maxAge := doc.Get(pathIDTokenMaxAge); maxAge.Type == gjson.Number {
		member.MaxAge = utils.Ptr(int(maxAge.Int()))
	}
	if v := doc.Get(pathIDTokenACRValue); v.Exists() {
		member.ACR = v.String()
	} else if values := doc.Get(pathIDTokenACRValues); values.IsArray() {
		member.ACR = spaced(values)
	}
	return member
}

// spaced renders a claim that may be either a space separated string or an array of strings.
func spaced(r gjson.Result) string {
	if values, ok := r.Value().([]any); ok {
		return strings.Join(utils.ToStringSlice(values), " ")
	}
	return r.String()
}
