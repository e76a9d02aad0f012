// Package facebook implements Facebook Login over the Graph API.
package facebook

import (
	"net/url"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

const (
	Name = "facebook"

	graphVersion  = "v18.0"
	authEndpoint  = "https://www.facebook.com/" + graphVersion + "/dialog/oauth"
	tokenEndpoint = "https://graph.facebook.com/" + graphVersion + "/oauth/access_token"
	userEndpoint  = "https://graph.facebook.com/" + graphVersion + "/me"

	profileFields = "id,name,email,first_name,last_name,picture"
)

// Spec: Facebook separa scopes con coma y /me solo devuelve los campos pedidos.
func Spec() providers.OAuth2Spec {
	return providers.OAuth2Spec{
		Name: Name,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authEndpoint,
			TokenURL: tokenEndpoint,
		},
		UserInfoURL:    userEndpoint,
		ScopeSeparator: ",",
		DefaultScopes:  []string{"email", "public_profile"},
		ParseToken:     providers.ParseJSONToken,
		UserInfoURLFor: withFields,
		MapUser:        mapUser,
	}
}

func New(cfg providers.Config, client transport.Client) (providers.Provider, error) {
	return providers.NewOAuth2(Spec(), cfg, client)
}

func withFields(base string, _ types.TokenBlob) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("fields", profileFields)
	u.RawQuery = q.Encode()
	return u.String()
}

func mapUser(raw map[string]any) types.UserDetails {
	return types.UserDetails{
		UserID:    providers.Str(raw, "id"),
		Email:     providers.Str(raw, "email"),
		Nickname:  providers.Str(raw, "name"),
		FirstName: providers.Str(raw, "first_name"),
		LastName:  providers.Str(raw, "last_name"),
		ImageURL:  providers.Path(raw, "picture", "data", "url"),
	}
}
