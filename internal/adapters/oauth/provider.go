package oauth

// Package oauth provides OAuth2/PKCE login adapters for the supported
// identity providers.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/ports"
)

const userInfoBodyLimit = 1 << 20 // 1 MiB

// ErrEmailMissing is returned when a provider profile carries no email.
// Email is mandatory: the local account is keyed by it.
var ErrEmailMissing = errors.New("provider profile has no email")

// Provider implements ports.OAuthProvider for one identity provider.
type Provider struct {
	id          string
	usesPKCE    bool
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// ProviderConfig holds configuration for one provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client // Optional, defaults to a 10s-timeout client
}

func (c ProviderConfig) validate() error {
	if c.ClientID == "" {
		return errors.New("client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect URL is required")
	}
	return nil
}

func (c ProviderConfig) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	// Provider endpoints can hang; keep a firm deadline.
	return &http.Client{Timeout: 10 * time.Second}
}

// NewGoogle creates the Google provider. Endpoints come from OIDC
// discovery and the exchange is PKCE-bound.
func NewGoogle(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	httpClient := cfg.client()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	var claims struct {
		UserInfoEndpoint string `json:"userinfo_endpoint"`
	}
	if claimsErr := op.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("decode discovery document: %w", claimsErr)
	}

	return &Provider{
		id:       "google",
		usesPKCE: true,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     op.Endpoint(),
		},
		userInfoURL: claims.UserInfoEndpoint,
		httpClient:  httpClient,
	}, nil
}

// NewFacebook creates the Facebook provider. Endpoints are static and the
// exchange is NOT PKCE-bound: Facebook's token endpoint rejects the
// verifier parameter, so the verifier slot stays empty for this provider.
func NewFacebook(cfg ProviderConfig) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Provider{
		id:       "facebook",
		usesPKCE: false,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
				TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
			},
		},
		userInfoURL: "https://graph.facebook.com/me?fields=id,email,first_name,last_name,picture",
		httpClient:  cfg.client(),
	}, nil
}

// ID returns the provider identifier used in routes and cookie names.
func (p *Provider) ID() string { return p.id }

// UsesPKCE reports whether the provider participates in PKCE.
func (p *Provider) UsesPKCE() bool { return p.usesPKCE }

// AuthCodeURL builds the provider authorization URL, attaching the S256
// code challenge when the provider participates in PKCE.
func (p *Provider) AuthCodeURL(in ports.BeginInput) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if p.usesPKCE && in.CodeVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(in.CodeVerifier))
	}
	return p.config.AuthCodeURL(in.State, opts...)
}

// Exchange redeems the authorization code, fetches the profile from the
// userinfo endpoint with the access token as bearer credential, and maps it
// to a domain identity.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	var opts []oauth2.AuthCodeOption
	if p.usesPKCE {
		opts = append(opts, oauth2.VerifierOption(in.CodeVerifier))
	}
	token, err := p.config.Exchange(ctx, in.Code, opts...)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	profile, err := p.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("fetch user info: %w", err)
	}
	return mapProfile(profile)
}

// userProfile is the superset of the profile shapes the supported providers
// return. Picture is raw because its shape is provider-specific.
type userProfile struct {
	Sub           string          `json:"sub"`
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	EmailVerified bool            `json:"email_verified"`
	GivenName     string          `json:"given_name"`
	FamilyName    string          `json:"family_name"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Picture       json.RawMessage `json:"picture"`
}

func (p *Provider) fetchUserInfo(ctx context.Context, accessToken string) (*userProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("userinfo endpoint returned %d: %s", resp.StatusCode, body)
	}

	var profile userProfile
	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, userInfoBodyLimit)).Decode(&profile); decodeErr != nil {
		return nil, fmt.Errorf("decode userinfo: %w", decodeErr)
	}
	return &profile, nil
}

func mapProfile(profile *userProfile) (domainauth.Identity, error) {
	if profile.Email == "" {
		// Providers omit the email without an email scope grant; the
		// flow fails rather than creating an account we cannot key.
		return domainauth.Identity{}, ErrEmailMissing
	}

	return domainauth.Identity{
		Subject:       firstNonEmpty(profile.Sub, profile.ID),
		Email:         profile.Email,
		EmailVerified: profile.EmailVerified,
		FirstName:     firstNonEmpty(profile.GivenName, profile.FirstName),
		LastName:      firstNonEmpty(profile.FamilyName, profile.LastName),
		Picture:       normalizePicture(profile.Picture),
	}, nil
}

// normalizePicture resolves the provider-specific picture shapes to a single
// URL: a bare string (Google), {"url": ...}, or the Facebook Graph nesting
// {"data": {"url": ...}}. Anything else resolves to empty.
func normalizePicture(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var nested struct {
		URL  string `json:"url"`
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return ""
	}
	return firstNonEmpty(nested.Data.URL, nested.URL)
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
