// Package providers defines the social login provider system.
//
// Architecture:
//   - Provider interface: what the manager needs from any provider
//   - OAuth2: the shared authorization-code algorithm; concrete OAuth2
//     providers only supply an OAuth2Spec (URLs, scope separator, token
//     parser, field mapping)
//   - Registry: driver factories plus alias -> instance lookup
//   - One sub-package per provider
//
// Design Patterns:
//   - Strategy: each provider is a strategy for authentication
//   - Factory: Registry builds provider instances from config
//   - Adapter: divergent token/profile responses normalize to types.UserDetails
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
)

// Provider is one third-party identity service.
type Provider interface {
	// Name is the driver name ("spotify", "instapaper", ...).
	Name() string

	// AuthorizeURL builds the URL the user agent is redirected to.
	// Providers without a redirect leg return a bootstrap URL (or "").
	AuthorizeURL(state string) (string, error)

	// UserDetails completes the handshake with what the callback carried
	// (code, or credentials) and returns the normalized profile.
	UserDetails(ctx context.Context, in Input) (*types.UserDetails, error)

	// RefreshToken returns the token fields to merge into identity.AccessToken.
	// Returns types.ErrNotImplemented when the provider has no refresh flow.
	RefreshToken(ctx context.Context, identity repository.Identity) (types.TokenBlob, error)
}

// Input gives read access to the inbound request parameters
// (query or form: code, state, username, password, ...).
// url.Values satisfies it.
type Input interface {
	Get(key string) string
}

// Config is the per-alias provider configuration.
type Config struct {
	Driver       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// OAuth1 / xAuth
	ConsumerKey    string
	ConsumerSecret string

	// Endpoint overrides (self-hosted deployments, tests). Empty = provider default.
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
}

// Require fails with ErrInvalidConfiguration listing every missing key.
func (c Config) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(c.value(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: missing %s", types.ErrInvalidConfiguration, c.Driver, strings.Join(missing, ", "))
	}
	return nil
}

func (c Config) value(key string) string {
	switch key {
	case "client_id":
		return c.ClientID
	case "client_secret":
		return c.ClientSecret
	case "redirect_uri":
		return c.RedirectURI
	case "consumer_key":
		return c.ConsumerKey
	case "consumer_secret":
		return c.ConsumerSecret
	}
	return ""
}

// Or returns v, or def when v is empty.
func Or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
