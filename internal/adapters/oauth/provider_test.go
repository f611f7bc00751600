package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/monanga/monanga-business/internal/ports"
)

// fakeIdP is an httptest identity provider serving a token endpoint and a
// userinfo endpoint.
type fakeIdP struct {
	srv *httptest.Server

	// tokenForm holds the last form submitted to the token endpoint.
	tokenForm url.Values
	// profile is the userinfo response body.
	profile map[string]any
	// userInfoStatus overrides the userinfo status code when non-zero.
	userInfoStatus int
}

func newFakeIdP(t *testing.T, profile map[string]any) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{profile: profile}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		idp.tokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-token-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token-1", r.Header.Get("Authorization"))
		if idp.userInfoStatus != 0 {
			w.WriteHeader(idp.userInfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(idp.profile)
	})

	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

// provider builds a Provider pointed at the fake IdP.
func (idp *fakeIdP) provider(id string, usesPKCE bool) *Provider {
	return &Provider{
		id:       id,
		usesPKCE: usesPKCE,
		config: &oauth2.Config{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			RedirectURL:  "https://monangabusiness.com/api/oauth/callback/" + id,
			Endpoint: oauth2.Endpoint{
				AuthURL:  idp.srv.URL + "/authorize",
				TokenURL: idp.srv.URL + "/token",
			},
		},
		userInfoURL: idp.srv.URL + "/userinfo",
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

func TestAuthCodeURL_PKCE(t *testing.T) {
	idp := newFakeIdP(t, nil)
	p := idp.provider("google", true)

	raw := p.AuthCodeURL(ports.BeginInput{State: "state-1", CodeVerifier: oauth2.GenerateVerifier()})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "client-1", q.Get("client_id"))
}

func TestAuthCodeURL_NoPKCE(t *testing.T) {
	idp := newFakeIdP(t, nil)
	p := idp.provider("facebook", false)

	raw := p.AuthCodeURL(ports.BeginInput{State: "state-1", CodeVerifier: "ignored"})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Empty(t, q.Get("code_challenge"))
	assert.Empty(t, q.Get("code_challenge_method"))
}

func TestExchange_GoogleProfile(t *testing.T) {
	idp := newFakeIdP(t, map[string]any{
		"sub":            "google-sub-1",
		"email":          "Alice@gmail.com",
		"email_verified": true,
		"given_name":     "Alice",
		"family_name":    "Martin",
		"picture":        "https://lh3.example.com/photo.jpg",
	})
	p := idp.provider("google", true)

	verifier := oauth2.GenerateVerifier()
	identity, err := p.Exchange(context.Background(), ports.ExchangeInput{
		Code:         "auth-code-1",
		CodeVerifier: verifier,
	})
	require.NoError(t, err)

	assert.Equal(t, "google-sub-1", identity.Subject)
	assert.Equal(t, "Alice@gmail.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "Alice", identity.FirstName)
	assert.Equal(t, "Martin", identity.LastName)
	assert.Equal(t, "https://lh3.example.com/photo.jpg", identity.Picture)

	assert.Equal(t, "auth-code-1", idp.tokenForm.Get("code"))
	assert.Equal(t, verifier, idp.tokenForm.Get("code_verifier"),
		"PKCE verifier is forwarded to the token endpoint")
}

func TestExchange_FacebookProfile(t *testing.T) {
	idp := newFakeIdP(t, map[string]any{
		"id":         "fb-1",
		"email":      "alice@example.com",
		"first_name": "Alice",
		"last_name":  "Martin",
		"picture": map[string]any{
			"data": map[string]any{
				"url": "https://graph.example.com/photo.jpg",
			},
		},
	})
	p := idp.provider("facebook", false)

	identity, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "auth-code-1"})
	require.NoError(t, err)

	assert.Equal(t, "fb-1", identity.Subject)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.False(t, identity.EmailVerified)
	assert.Equal(t, "Alice", identity.FirstName)
	assert.Equal(t, "Martin", identity.LastName)
	assert.Equal(t, "https://graph.example.com/photo.jpg", identity.Picture)

	assert.Empty(t, idp.tokenForm.Get("code_verifier"),
		"no verifier sent for providers that opt out of PKCE")
}

func TestExchange_EmailMissing(t *testing.T) {
	idp := newFakeIdP(t, map[string]any{
		"id":         "fb-1",
		"first_name": "Alice",
	})
	p := idp.provider("facebook", false)

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "auth-code-1"})
	assert.ErrorIs(t, err, ErrEmailMissing)
}

func TestExchange_EmptyCode(t *testing.T) {
	idp := newFakeIdP(t, nil)
	p := idp.provider("google", true)

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{CodeVerifier: "v"})
	assert.Error(t, err)
	assert.Nil(t, idp.tokenForm, "no exchange attempted")
}

func TestExchange_UserInfoFailure(t *testing.T) {
	idp := newFakeIdP(t, nil)
	idp.userInfoStatus = http.StatusInternalServerError
	p := idp.provider("google", true)

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{
		Code:         "auth-code-1",
		CodeVerifier: "verifier-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch user info")
}

func TestNewFacebook(t *testing.T) {
	p, err := NewFacebook(ProviderConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "https://monangabusiness.com/api/oauth/callback/facebook",
	})
	require.NoError(t, err)

	assert.Equal(t, "facebook", p.ID())
	assert.False(t, p.UsesPKCE())
	assert.Contains(t, p.userInfoURL, "fields=id,email,first_name,last_name,picture")
}

func TestNewFacebook_ConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProviderConfig
	}{
		{"missing client id", ProviderConfig{ClientSecret: "s", RedirectURL: "https://x/cb"}},
		{"missing secret", ProviderConfig{ClientID: "c", RedirectURL: "https://x/cb"}},
		{"missing redirect", ProviderConfig{ClientID: "c", ClientSecret: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFacebook(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNormalizePicture(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"bare string", `"https://img.example.com/a.jpg"`, "https://img.example.com/a.jpg"},
		{"url object", `{"url":"https://img.example.com/b.jpg"}`, "https://img.example.com/b.jpg"},
		{"graph nesting", `{"data":{"url":"https://img.example.com/c.jpg"}}`, "https://img.example.com/c.jpg"},
		{"unusable shape", `[1,2]`, ""},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePicture(json.RawMessage(tt.raw)))
		})
	}
}
