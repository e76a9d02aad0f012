// Package github implements OAuth 2.0 authentication with GitHub.
// GitHub has no ID token and no refresh flow for OAuth Apps; the profile
// comes from a separate API call.
package github

import (
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

const (
	Name = "github"

	authEndpoint  = "https://github.com/login/oauth/authorize"
	tokenEndpoint = "https://github.com/login/oauth/access_token"
	userEndpoint  = "https://api.github.com/user"
)

func Spec() providers.OAuth2Spec {
	return providers.OAuth2Spec{
		Name: Name,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authEndpoint,
			TokenURL: tokenEndpoint,
		},
		UserInfoURL:    userEndpoint,
		ScopeSeparator: " ",
		DefaultScopes:  []string{"user:email", "read:user"},

		// Sin Accept GitHub responde form-encoded.
		TokenHeaders:  http.Header{"Accept": {"application/json"}},
		ParseToken:    providers.ParseJSONToken,
		MapUser:       mapUser,
		AuthURLParams: map[string]string{"allow_signup": "true"},
	}
}

func New(cfg providers.Config, client transport.Client) (providers.Provider, error) {
	return providers.NewOAuth2(Spec(), cfg, client)
}

func mapUser(raw map[string]any) types.UserDetails {
	d := types.UserDetails{
		UserID:   providers.Str(raw, "id"),
		Email:    providers.Str(raw, "email"),
		Nickname: providers.Str(raw, "login"),
		ImageURL: providers.Str(raw, "avatar_url"),
	}
	if name := strings.TrimSpace(providers.Str(raw, "name")); name != "" {
		first, last, _ := strings.Cut(name, " ")
		d.FirstName = first
		d.LastName = strings.TrimSpace(last)
	}
	return d
}
