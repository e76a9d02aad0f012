// Package spotify implements the Spotify Accounts OAuth2 provider.
package spotify

import (
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

const (
	Name = "spotify"

	authEndpoint  = "https://accounts.spotify.com/authorize"
	tokenEndpoint = "https://accounts.spotify.com/api/token"
	userEndpoint  = "https://api.spotify.com/v1/me"
)

// Spec describes Spotify for the shared OAuth2 algorithm.
// The token endpoint may answer url-encoded or JSON; both are accepted.
func Spec() providers.OAuth2Spec {
	return providers.OAuth2Spec{
		Name: Name,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authEndpoint,
			TokenURL: tokenEndpoint,
		},
		UserInfoURL:     userEndpoint,
		ScopeSeparator:  " ",
		ParseToken:      providers.ParseAutoToken,
		MapUser:         mapUser,
		SupportsRefresh: true,
	}
}

// New is the providers.Factory for Spotify.
func New(cfg providers.Config, client transport.Client) (providers.Provider, error) {
	return providers.NewOAuth2(Spec(), cfg, client)
}

func mapUser(raw map[string]any) types.UserDetails {
	return types.UserDetails{
		UserID:    providers.Str(raw, "id"),
		Email:     providers.Str(raw, "email"),
		Nickname:  providers.Str(raw, "display_name"),
		FirstName: providers.Str(raw, "display_name"),
		LastName:  providers.Str(raw, "last_name"),
		ImageURL:  providers.FirstOf(raw, "images", "url"),
	}
}
