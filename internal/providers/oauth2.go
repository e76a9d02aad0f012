package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
	"github.com/dropDatabas3/oauthlink/internal/transport"
	"github.com/dropDatabas3/oauthlink/internal/validation"
)

// OAuth2Spec is what a concrete OAuth2 provider supplies to the shared algorithm.
type OAuth2Spec struct {
	Name        string
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	// ScopeSeparator joins scopes in the authorize URL (" " when empty).
	ScopeSeparator string
	DefaultScopes  []string

	// ParseToken parses the token endpoint response. ParseAutoToken when nil.
	ParseToken TokenParser

	// TokenHeaders are sent on token and refresh requests (ej: Accept: application/json).
	TokenHeaders http.Header

	// UserInfoURLFor lets a provider decorate the profile URL (fields, api version).
	UserInfoURLFor func(base string, token types.TokenBlob) string

	// MapUser maps the raw profile into UserDetails. UserID is required.
	MapUser func(raw map[string]any) types.UserDetails

	// MergeProfile completes the raw profile with what the token carries
	// (ej: claims del id_token) before MapUser. A failure is ApplicationRejected.
	MergeProfile func(raw map[string]any, token types.TokenBlob) error

	// CheckToken validates the token response before the profile is fetched
	// (ej: claims del id_token). A failure is ApplicationRejected.
	CheckToken func(token types.TokenBlob, cfg Config, now time.Time) error

	SupportsRefresh bool

	// AuthURLParams are extra parameters for the authorize URL.
	AuthURLParams map[string]string
}

// OAuth2 implements Provider for the authorization-code flow.
type OAuth2 struct {
	spec   OAuth2Spec
	cfg    Config
	oauth  oauth2.Config
	scopes []string
	client transport.Client
	now    func() time.Time
}

// NewOAuth2 validates cfg (client_id, client_secret, redirect_uri) and
// applies its endpoint overrides on top of spec.
func NewOAuth2(spec OAuth2Spec, cfg Config, client transport.Client) (*OAuth2, error) {
	if cfg.Driver == "" {
		cfg.Driver = spec.Name
	}
	if err := cfg.Require("client_id", "client_secret", "redirect_uri"); err != nil {
		return nil, err
	}
	if client == nil {
		client = transport.New(transport.Options{})
	}

	spec.Endpoint.AuthURL = Or(cfg.AuthorizeURL, spec.Endpoint.AuthURL)
	spec.Endpoint.TokenURL = Or(cfg.TokenURL, spec.Endpoint.TokenURL)
	spec.UserInfoURL = Or(cfg.UserInfoURL, spec.UserInfoURL)
	if spec.ScopeSeparator == "" {
		spec.ScopeSeparator = " "
	}
	if spec.ParseToken == nil {
		spec.ParseToken = ParseAutoToken
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = spec.DefaultScopes
	}
	for _, s := range scopes {
		if !validation.ValidScopeFor(s, spec.ScopeSeparator) {
			return nil, fmt.Errorf("%w: %s: invalid scope %q", types.ErrInvalidConfiguration, spec.Name, s)
		}
	}

	return &OAuth2{
		spec: spec,
		cfg:  cfg,
		// Scopes se pasan como parámetro propio: x/oauth2 siempre une con espacio.
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     spec.Endpoint,
		},
		scopes: scopes,
		client: client,
		now:    time.Now,
	}, nil
}

func (p *OAuth2) Name() string { return p.spec.Name }

// Scope returns the compiled scope string.
func (p *OAuth2) Scope() string {
	return strings.Join(p.scopes, p.spec.ScopeSeparator)
}

// SetClock overrides the clock used for expires_at (tests).
func (p *OAuth2) SetClock(now func() time.Time) { p.now = now }

// AuthorizeURL builds {authorize}?client_id&redirect_uri&response_type=code&scope&state.
// scope is always present, empty when no scopes are configured.
func (p *OAuth2) AuthorizeURL(state string) (string, error) {
	opts := make([]oauth2.AuthCodeOption, 0, len(p.spec.AuthURLParams)+1)
	opts = append(opts, oauth2.SetAuthURLParam("scope", p.Scope()))
	for k, v := range p.spec.AuthURLParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return p.oauth.AuthCodeURL(state, opts...), nil
}

// UserDetails exchanges the code carried by in and fetches the profile.
// Nothing is returned (ni el token) if any step fails.
func (p *OAuth2) UserDetails(ctx context.Context, in Input) (*types.UserDetails, error) {
	log := logger.From(ctx).With(logger.Layer("provider"), logger.Provider(p.spec.Name))

	if e := in.Get("error"); e != "" {
		return nil, &types.ProviderError{
			Kind:     types.ErrInvalidAuthorizationCode,
			Provider: p.spec.Name,
			Op:       "callback",
			Body:     strings.TrimSpace(e + " " + in.Get("error_description")),
		}
	}
	code := in.Get("code")
	if code == "" {
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: p.spec.Name, Op: "callback", Body: "missing code"}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", p.cfg.RedirectURI)
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)

	token, err := p.requestToken(ctx, "token", p.spec.TokenHeaders, form)
	if err != nil {
		log.Debug("token exchange failed", logger.Err(err))
		return nil, err
	}
	if p.spec.CheckToken != nil {
		if err := p.spec.CheckToken(token, p.cfg, p.now()); err != nil {
			return nil, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: p.spec.Name, Op: "token", Err: err}
		}
	}

	raw, err := p.fetchUser(ctx, token)
	if err != nil {
		log.Debug("userinfo failed", logger.Err(err))
		return nil, err
	}
	if p.spec.MergeProfile != nil {
		if err := p.spec.MergeProfile(raw, token); err != nil {
			return nil, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: p.spec.Name, Op: "userinfo", Err: err}
		}
	}

	details := p.spec.MapUser(raw)
	if details.UserID == "" {
		return nil, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: p.spec.Name, Op: "userinfo", Body: "profile without id"}
	}
	details.AccessToken = token
	details.Raw = raw
	return &details, nil
}

// RefreshToken posts the stored refresh_token with HTTP Basic client auth.
func (p *OAuth2) RefreshToken(ctx context.Context, identity repository.Identity) (types.TokenBlob, error) {
	if !p.spec.SupportsRefresh {
		return types.TokenBlob{}, types.ErrNotImplemented
	}
	rt := identity.AccessToken.String("refresh_token")
	if rt == "" {
		return types.TokenBlob{}, types.ErrMissingRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", rt)

	headers := p.spec.TokenHeaders.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	basic := base64.StdEncoding.EncodeToString([]byte(p.cfg.ClientID + ":" + p.cfg.ClientSecret))
	headers.Set("Authorization", "Basic "+basic)

	return p.requestToken(ctx, "refresh", headers, form)
}

func (p *OAuth2) requestToken(ctx context.Context, op string, headers http.Header, form url.Values) (types.TokenBlob, error) {
	res, err := p.client.Post(ctx, p.spec.Endpoint.TokenURL, headers, form)
	if err != nil {
		return types.TokenBlob{}, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: p.spec.Name, Op: op, Err: err}
	}
	if !res.OK() {
		return types.TokenBlob{}, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: p.spec.Name, Op: op, Status: res.Status, Body: string(res.Body)}
	}

	token, err := p.spec.ParseToken(res)
	if err != nil {
		return types.TokenBlob{}, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: p.spec.Name, Op: op, Status: res.Status, Body: string(res.Body), Err: err}
	}
	// Algunos providers (GitHub) responden 200 con {"error": ...}.
	if e := token.String("error"); e != "" {
		return types.TokenBlob{}, &types.ProviderError{
			Kind:     types.ErrInvalidAuthorizationCode,
			Provider: p.spec.Name,
			Op:       op,
			Status:   res.Status,
			Body:     strings.TrimSpace(e + " " + token.String("error_description")),
		}
	}
	if !token.Has("access_token") {
		return types.TokenBlob{}, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: p.spec.Name, Op: op, Status: res.Status, Body: "missing access_token"}
	}
	return withExpiry(token, p.now()), nil
}

func (p *OAuth2) fetchUser(ctx context.Context, token types.TokenBlob) (map[string]any, error) {
	u := p.spec.UserInfoURL
	if p.spec.UserInfoURLFor != nil {
		u = p.spec.UserInfoURLFor(u, token)
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token.String("access_token"))
	headers.Set("Accept", "application/json")

	res, err := p.client.Get(ctx, u, headers)
	if err != nil {
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: p.spec.Name, Op: "userinfo", Err: err}
	}
	if !res.OK() {
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: p.spec.Name, Op: "userinfo", Status: res.Status, Body: string(res.Body)}
	}
	return DecodeObject(res.Body, p.spec.Name, "userinfo")
}

// DecodeObject decodes a JSON object keeping numbers as json.Number.
func DecodeObject(body []byte, provider, op string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: provider, Op: op, Body: string(body), Err: err}
	}
	return raw, nil
}
