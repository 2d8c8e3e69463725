package redirect_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-authz-core/internal/utils"
	"github.com/jrsteele09/go-authz-core/oauthmodel"
	"github.com/jrsteele09/go-authz-core/redirect"
)

const testRedirectURI = "https://client.example.com/cb"

func codeTypes() oauthmodel.ResponseTypes {
	return oauthmodel.ResponseTypes{oauthmodel.CodeResponseType}
}

func TestTarget_ResponseModeInference(t *testing.T) {
	tests := []struct {
		name          string
		responseTypes string
		explicit      oauthmodel.ResponseModeType
		want          oauthmodel.ResponseModeType
	}{
		{"code defaults to query", "code", "", oauthmodel.QueryResponseMode},
		{"token defaults to fragment", "token", "", oauthmodel.FragmentResponseMode},
		{"hybrid defaults to fragment", "code id_token", "", oauthmodel.FragmentResponseMode},
		{"explicit mode wins", "code id_token", oauthmodel.QueryResponseMode, oauthmodel.QueryResponseMode},
		{"explicit form_post", "code", oauthmodel.FormPostResponseMode, oauthmodel.FormPostResponseMode},
		{"unknown explicit mode is inferred", "token", "web_message", oauthmodel.FragmentResponseMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := redirect.NewTarget(testRedirectURI, oauthmodel.ParseResponseTypes(tt.responseTypes), tt.explicit)
			require.Equal(t, tt.want, target.ResponseMode())
		})
	}
}

func TestTarget_Serialize(t *testing.T) {
	tests := []struct {
		name    string
		baseURI string
		types   string
		mode    oauthmodel.ResponseModeType
		params  [][2]string
		want    string
	}{
		{
			name:    "query",
			baseURI: testRedirectURI,
			types:   "code",
			params:  [][2]string{{"code", "abc"}, {"state", "x y"}},
			want:    testRedirectURI + "?code=abc&state=x+y",
		},
		{
			name:    "query appends to an existing query",
			baseURI: testRedirectURI + "?foo=1",
			types:   "code",
			params:  [][2]string{{"code", "abc"}},
			want:    testRedirectURI + "?foo=1&code=abc",
		},
		{
			name:    "query with trailing question mark",
			baseURI: testRedirectURI + "?",
			types:   "code",
			params:  [][2]string{{"code", "abc"}},
			want:    testRedirectURI + "?code=abc",
		},
		{
			name:    "fragment",
			baseURI: testRedirectURI,
			types:   "code id_token",
			params:  [][2]string{{"code", "abc"}, {"id_token", "t"}},
			want:    testRedirectURI + "#code=abc&id_token=t",
		},
		{
			name:    "fragment appends to an existing fragment",
			baseURI: testRedirectURI + "#a=1",
			types:   "token",
			params:  [][2]string{{"access_token", "t"}},
			want:    testRedirectURI + "#a=1&access_token=t",
		},
		{
			name:    "fragment mode ignores a query in the base",
			baseURI: testRedirectURI + "?foo=1",
			types:   "token",
			params:  [][2]string{{"access_token", "t"}},
			want:    testRedirectURI + "?foo=1#access_token=t",
		},
		{
			name:    "names and values are percent-encoded",
			baseURI: testRedirectURI,
			types:   "code",
			params:  [][2]string{{"a b", "ü&="}},
			want:    testRedirectURI + "?a+b=%C3%BC%26%3D",
		},
		{
			name:    "blank names and values are omitted",
			baseURI: testRedirectURI,
			types:   "code",
			params:  [][2]string{{"code", "abc"}, {"empty", ""}, {"spaces", "  "}, {" ", "v"}},
			want:    testRedirectURI + "?code=abc",
		},
		{
			name:    "no parameters leaves the base untouched",
			baseURI: testRedirectURI,
			types:   "code",
			want:    testRedirectURI,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := redirect.NewTarget(tt.baseURI, oauthmodel.ParseResponseTypes(tt.types), tt.mode)
			for _, p := range tt.params {
				target.AddParameter(p[0], p[1])
			}
			got, err := target.Serialize()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.want, target.String())
		})
	}
}

func TestTarget_SameBaseTwice(t *testing.T) {
	plain := redirect.NewTarget(testRedirectURI, codeTypes(), "")
	plain.AddParameter("code", "abc")
	withQuery := redirect.NewTarget(testRedirectURI+"?foo=1", codeTypes(), "")
	withQuery.AddParameter("code", "abc")

	require.Equal(t, testRedirectURI+"?code=abc", plain.String())
	require.Equal(t, testRedirectURI+"?foo=1&code=abc", withQuery.String())
}

func TestTarget_SetReplacesInPlace(t *testing.T) {
	target := redirect.NewTarget(testRedirectURI, codeTypes(), "")
	target.AddParameter("code", "abc")
	target.AddParameter("state", "s1")
	target.AddParameter("code", "def")

	require.Equal(t, "code=def&state=s1", target.QueryString())

	target.ResetParameters()
	require.Equal(t, 0, target.Parameters().Len())
	require.Equal(t, testRedirectURI, target.String())
}

func TestTarget_FormPost(t *testing.T) {
	target := redirect.NewTarget(testRedirectURI, codeTypes(), oauthmodel.FormPostResponseMode)
	target.AddParameter("code", "abc")
	target.AddParameter("state", `a"b<c`)
	target.AddParameter("blank", "")

	body, err := target.Serialize()
	require.NoError(t, err)

	require.Contains(t, body, `<body onload="javascript:document.forms[0].submit()">`)
	require.Contains(t, body, `<form method="post" action="https://client.example.com/cb">`)
	require.Contains(t, body, `<input type="hidden" name="code" value="abc"/>`)
	require.Contains(t, body, `<input type="hidden" name="state" value="a&#34;b&lt;c"/>`)
	require.NotContains(t, body, `name="blank"`)
	require.NotContains(t, body, "?code=")

	t.Run("unsafe action is neutralised", func(t *testing.T) {
		target := redirect.NewTarget("javascript:alert(1)", codeTypes(), oauthmodel.FormPostResponseMode)
		target.AddParameter("code", "abc")
		body, err := target.Serialize()
		require.NoError(t, err)
		require.NotContains(t, body, "alert(1)")
	})
}

func TestParseQueryString(t *testing.T) {
	params := redirect.ParseQueryString("a=1&flag&b=x%20y&c=%zz&d=&&e=p+q")

	names := make([]string, 0)
	for _, p := range params.All() {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"a", "flag", "b", "c", "d", "e"}, names)

	a, ok := params.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", utils.Value(a.Value))

	flag, ok := params.Get("flag")
	require.True(t, ok)
	require.Nil(t, flag.Value)
	require.NoError(t, flag.DecodeErr)

	require.Equal(t, "x y", params.Value("b"))
	require.Equal(t, "p q", params.Value("e"))

	c, ok := params.Get("c")
	require.True(t, ok)
	require.Nil(t, c.Value)
	require.Error(t, c.DecodeErr)

	d, ok := params.Get("d")
	require.True(t, ok)
	require.NotNil(t, d.Value)
	require.Empty(t, *d.Value)

	_, ok = params.Get("missing")
	require.False(t, ok)

	// Blank and undecodable parameters are retained but not serialized.
	require.Equal(t, "a=1&b=x+y&e=p+q", params.Encode())
}

func TestParseQueryString_RoundTrip(t *testing.T) {
	values := [][2]string{
		{"code", "SplxlOBeZQQYbYS6WxSbIA"},
		{"state", "af0ifjsldkj&x=1"},
		{"redirect", "https://client.example.com/cb?x=1#frag"},
		{"unicode", "héllo wörld ✓"},
		{"symbols", "+%/=?~*'()"},
		{"blank", ""},
	}
	target := redirect.NewTarget(testRedirectURI, codeTypes(), "")
	for _, v := range values {
		target.AddParameter(v[0], v[1])
	}

	parsed := redirect.ParseQueryString(target.QueryString())
	for _, v := range values {
		if v[1] == "" {
			_, ok := parsed.Get(v[0])
			require.False(t, ok)
			continue
		}
		require.Equal(t, v[1], parsed.Value(v[0]), v[0])
	}
}

func TestOutcome_Write(t *testing.T) {
	t.Run("redirect", func(t *testing.T) {
		target := redirect.NewTarget(testRedirectURI, codeTypes(), "")
		target.AddParameter("code", "abc")
		outcome, err := target.Build()
		require.NoError(t, err)
		require.Equal(t, http.StatusFound, outcome.StatusCode())

		rec := httptest.NewRecorder()
		outcome.Write(rec)
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, testRedirectURI+"?code=abc", rec.Header().Get("Location"))
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Empty(t, rec.Body.String())
	})

	t.Run("form post", func(t *testing.T) {
		target := redirect.NewTarget(testRedirectURI, codeTypes(), oauthmodel.FormPostResponseMode)
		target.AddParameter("code", "abc")
		outcome, err := target.Build()
		require.NoError(t, err)
		require.Empty(t, outcome.Location)

		rec := httptest.NewRecorder()
		outcome.Write(rec)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Location"))
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		require.Contains(t, rec.Body.String(), `name="code" value="abc"`)
	})
}
