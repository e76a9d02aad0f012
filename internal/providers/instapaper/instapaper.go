// Package instapaper implements Instapaper's xAuth login: the user's
// credentials are exchanged for an OAuth1 token directly, there is no
// browser redirect.
package instapaper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/oauth1"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

const (
	Name = "instapaper"

	tokenEndpoint = "https://www.instapaper.com/api/1/oauth/access_token"
	userEndpoint  = "https://www.instapaper.com/api/1/account/verify_credentials"
)

// Provider is the Instapaper xAuth provider.
type Provider struct {
	cfg      providers.Config
	tokenURL string
	userURL  string
	signer   *oauth1.Signer
	client   transport.Client
}

// New is the providers.Factory for Instapaper.
func New(cfg providers.Config, client transport.Client) (providers.Provider, error) {
	if cfg.Driver == "" {
		cfg.Driver = Name
	}
	if err := cfg.Require("consumer_key", "consumer_secret"); err != nil {
		return nil, err
	}
	if client == nil {
		client = transport.New(transport.Options{})
	}
	return &Provider{
		cfg:      cfg,
		tokenURL: providers.Or(cfg.TokenURL, tokenEndpoint),
		userURL:  providers.Or(cfg.UserInfoURL, userEndpoint),
		signer:   oauth1.NewSigner(cfg.ConsumerKey, cfg.ConsumerSecret),
		client:   client,
	}, nil
}

func (p *Provider) Name() string { return Name }

// AuthorizeURL no tiene paso de redirect en xAuth: devuelve el redirect_uri
// configurado (con el state) para que el cliente muestre el form de credenciales,
// o "" si no hay uno.
func (p *Provider) AuthorizeURL(state string) (string, error) {
	if p.cfg.RedirectURI == "" {
		return "", nil
	}
	u, err := url.Parse(p.cfg.RedirectURI)
	if err != nil {
		return "", &types.ProviderError{Kind: types.ErrInvalidConfiguration, Provider: Name, Op: "authorize", Err: err}
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// UserDetails exchanges username/password for a token and verifies it.
func (p *Provider) UserDetails(ctx context.Context, in providers.Input) (*types.UserDetails, error) {
	log := logger.From(ctx).With(logger.Layer("provider"), logger.Provider(Name))

	username := in.Get("username")
	if username == "" {
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: Name, Op: "callback", Body: "missing credentials"}
	}

	body := url.Values{}
	body.Set("x_auth_username", username)
	body.Set("x_auth_password", in.Get("password"))
	body.Set("x_auth_mode", "client_auth")

	res, err := p.signedPost(ctx, p.signer, p.tokenURL, body)
	if err != nil {
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: Name, Op: "token", Err: err}
	}
	if !res.OK() {
		log.Debug("xauth rejected", logger.Status(res.Status))
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: Name, Op: "token", Status: res.Status, Body: string(res.Body)}
	}

	token, err := providers.ParseFormToken(res)
	if err != nil || !token.Has("oauth_token") || !token.Has("oauth_token_secret") {
		return nil, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: Name, Op: "token", Status: res.Status, Body: string(res.Body), Err: err}
	}

	signer := p.signer.WithToken(token.String("oauth_token"), token.String("oauth_token_secret"))
	res, err = p.signedPost(ctx, signer, p.userURL, nil)
	if err != nil {
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: Name, Op: "userinfo", Err: err}
	}
	if !res.OK() {
		return nil, &types.ProviderError{Kind: types.ErrInvalidAuthorizationCode, Provider: Name, Op: "userinfo", Status: res.Status, Body: string(res.Body)}
	}

	raw, err := firstObject(res.Body)
	if err != nil {
		return nil, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: Name, Op: "userinfo", Body: string(res.Body), Err: err}
	}
	// Los campos del token pisan a los del perfil.
	for _, k := range token.Keys() {
		v, _ := token.Get(k)
		raw[k] = v
	}

	user := providers.Str(raw, "user_id")
	if user == "" {
		return nil, &types.ProviderError{Kind: types.ErrApplicationRejected, Provider: Name, Op: "userinfo", Body: "profile without user_id"}
	}
	return &types.UserDetails{
		UserID:      user,
		Email:       providers.Str(raw, "username"),
		Nickname:    providers.Str(raw, "username"),
		AccessToken: token,
		Raw:         raw,
	}, nil
}

// RefreshToken: los tokens de Instapaper no expiran.
func (p *Provider) RefreshToken(context.Context, repository.Identity) (types.TokenBlob, error) {
	return types.TokenBlob{}, types.ErrNotImplemented
}

func (p *Provider) signedPost(ctx context.Context, s *oauth1.Signer, rawURL string, body url.Values) (*transport.Response, error) {
	headers := http.Header{}
	headers.Set("Authorization", s.AuthorizationHeader(http.MethodPost, rawURL, body))
	return p.client.Post(ctx, rawURL, headers, body)
}

// verify_credentials responde un array: [{"type":"user","user_id":..,"username":..}]
func firstObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var arr []map[string]any
	if err := dec.Decode(&arr); err != nil {
		return nil, err
	}
	if len(arr) == 0 || arr[0] == nil {
		return nil, errEmptyProfile
	}
	return arr[0], nil
}

var errEmptyProfile = errors.New("instapaper: empty verify_credentials response")
