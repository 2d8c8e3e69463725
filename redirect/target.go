// Package redirect serializes authorization responses back to the client's redirect_uri and
// turns protocol errors into terminal redirect outcomes.
package redirect

import (
	"bytes"
	"embed"
	"html/template"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-authz-core/oauthmodel"
)

//go:embed templates/form_post.html
var templateFiles embed.FS

var formPostTemplate = template.Must(template.ParseFS(templateFiles, "templates/form_post.html"))

// Target is the redirect a single in-flight request answers with. It is not safe for
// concurrent use and must not be shared between requests.
type Target struct {
	baseURI       string
	responseTypes oauthmodel.ResponseTypes
	responseMode  oauthmodel.ResponseModeType
	params        Parameters
}

// NewTarget creates a target for baseURI. An empty responseMode is inferred from
// responseTypes when serializing.
func NewTarget(baseURI string, responseTypes oauthmodel.ResponseTypes, responseMode oauthmodel.ResponseModeType) *Target {
	return &Target{
		baseURI:       baseURI,
		responseTypes: responseTypes,
		responseMode:  responseMode,
	}
}

func (t *Target) BaseURI() string {
	return t.baseURI
}

func (t *Target) SetBaseURI(baseURI string) {
	t.baseURI = baseURI
}

func (t *Target) SetResponseTypes(responseTypes oauthmodel.ResponseTypes) {
	t.responseTypes = responseTypes
}

// SetResponseMode overrides the mode. Only an authenticated Request Object should do this
// once a request is in flight.
func (t *Target) SetResponseMode(mode oauthmodel.ResponseModeType) {
	t.responseMode = mode
}

// ResponseMode returns the explicit mode, or fragment when the response types include token
// or id_token and query otherwise.
func (t *Target) ResponseMode() oauthmodel.ResponseModeType {
	if mode, ok := oauthmodel.ParseResponseMode(string(t.responseMode)); ok {
		return mode
	}
	if t.responseTypes.IsImplicit() {
		return oauthmodel.FragmentResponseMode
	}
	return oauthmodel.QueryResponseMode
}

func (t *Target) Parameters() *Parameters {
	return &t.params
}

func (t *Target) AddParameter(name, value string) {
	t.params.Add(name, value)
}

// ParseQueryString merges the parameters of raw into the target.
func (t *Target) ParseQueryString(raw string) {
	t.params.parse(raw)
}

// ResetParameters clears the parameters so the target can carry a different outcome.
func (t *Target) ResetParameters() {
	t.params.Reset()
}

// QueryString is the encoded parameter string without the base URI.
func (t *Target) QueryString() string {
	return t.params.Encode()
}

// String renders query and fragment targets as a URI and form_post targets as the HTML
// document. It returns "" if the document cannot be rendered.
func (t *Target) String() string {
	s, err := t.Serialize()
	if err != nil {
		return ""
	}
	return s
}

// Serialize renders the target for its response mode.
func (t *Target) Serialize() (string, error) {
	switch t.ResponseMode() {
	case oauthmodel.FormPostResponseMode:
		return t.formPost()
	case oauthmodel.FragmentResponseMode:
		return t.uri('#'), nil
	default:
		return t.uri('?'), nil
	}
}

// Build serializes the target into the outcome the transport writes.
func (t *Target) Build() (*Outcome, error) {
	mode := t.ResponseMode()
	s, err := t.Serialize()
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Mode: mode}
	if mode == oauthmodel.FormPostResponseMode {
		outcome.Body = s
	} else {
		outcome.Location = s
	}
	return outcome, nil
}

func (t *Target) uri(symbol byte) string {
	qs := t.params.Encode()
	if qs == "" {
		return t.baseURI
	}

	var sb strings.Builder
	sb.WriteString(t.baseURI)
	switch {
	case strings.IndexByte(t.baseURI, symbol) < 0:
		sb.WriteByte(symbol)
	case !strings.HasSuffix(t.baseURI, string(symbol)) && !strings.HasSuffix(t.baseURI, "&"):
		sb.WriteByte('&')
	}
	sb.WriteString(qs)
	return sb.String()
}

type formInput struct {
	Name  string
	Value string
}

func (t *Target) formPost() (string, error) {
	params := t.params.serializable()
	data := struct {
		Action string
		Inputs []formInput
	}{
		Action: t.baseURI,
		Inputs: make([]formInput, 0, len(params)),
	}
	for _, p := range params {
		data.Inputs = append(data.Inputs, formInput{Name: p.Name, Value: *p.Value})
	}

	var buf bytes.Buffer
	if err := formPostTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "[formPost] render form_post document")
	}
	return buf.String(), nil
}
