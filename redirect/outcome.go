package redirect

import (
	"net/http"

	"github.com/jrsteele09/go-authz-core/oauthmodel"
)

const contentTypeHTML = "text/html; charset=utf-8"

// Outcome is a serialized authorization response. Query and fragment outcomes carry a
// Location; form_post outcomes carry an HTML Body that replaces the redirect entirely.
type Outcome struct {
	Mode     oauthmodel.ResponseModeType
	Location string
	Body     string
	Header   http.Header
}

// StatusCode is 200 for form_post and 302 otherwise.
func (o *Outcome) StatusCode() int {
	if o.Mode == oauthmodel.FormPostResponseMode {
		return http.StatusOK
	}
	return http.StatusFound
}

// Write frames the outcome onto w.
func (o *Outcome) Write(w http.ResponseWriter) {
	for k, values := range o.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Cache-Control", "no-store")

	if o.Mode == oauthmodel.FormPostResponseMode {
		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(o.Body))
		return
	}
	w.Header().Set("Location", o.Location)
	w.WriteHeader(http.StatusFound)
}
