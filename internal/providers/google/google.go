// Package google implements Google sign-in (OpenID Connect) on the shared
// OAuth2 flow. The profile comes from the userinfo endpoint; the id_token
// returned next to the access token is checked for issuer, audience and expiry,
// must name the same subject, and fills the profile fields userinfo omits.
package google

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

const (
	Name = "google"

	authEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	userEndpoint  = "https://openidconnect.googleapis.com/v1/userinfo"
)

var issuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

func Spec() providers.OAuth2Spec {
	return providers.OAuth2Spec{
		Name: Name,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authEndpoint,
			TokenURL: tokenEndpoint,
		},
		UserInfoURL:     userEndpoint,
		ScopeSeparator:  " ",
		DefaultScopes:   []string{"openid", "email", "profile"},
		ParseToken:      providers.ParseJSONToken,
		CheckToken:      checkIDToken,
		MergeProfile:    mergeIDToken,
		MapUser:         mapUser,
		SupportsRefresh: true,

		// access_type=offline para recibir refresh_token.
		AuthURLParams: map[string]string{"access_type": "offline", "prompt": "consent"},
	}
}

func New(cfg providers.Config, client transport.Client) (providers.Provider, error) {
	return providers.NewOAuth2(Spec(), cfg, client)
}

// checkIDToken valida iss, aud y exp del id_token. La firma no se verifica:
// el token llega directo del token endpoint por TLS, sin pasar por el navegador.
// Sin id_token (scope sin openid) no hay nada que validar.
func checkIDToken(token types.TokenBlob, cfg providers.Config, now time.Time) error {
	raw := token.String("id_token")
	if raw == "" {
		return nil
	}
	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(raw, claims); err != nil {
		return fmt.Errorf("google: parse id_token: %w", err)
	}

	iss, err := claims.GetIssuer()
	if err != nil || !issuers[iss] {
		return fmt.Errorf("google: bad issuer %q", iss)
	}
	aud, err := claims.GetAudience()
	if err != nil || !contains(aud, cfg.ClientID) {
		return errors.New("google: id_token audience mismatch")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || now.After(exp.Time) {
		return errors.New("google: id_token expired")
	}
	return nil
}

// claims de perfil que el id_token puede aportar
var profileClaims = []string{"sub", "email", "name", "given_name", "family_name", "picture"}

// mergeIDToken completa raw con las claims del id_token que userinfo no trajo.
// Si ambos traen sub y difieren, el perfil es de otra cuenta.
func mergeIDToken(raw map[string]any, token types.TokenBlob) error {
	idt := token.String("id_token")
	if idt == "" {
		return nil
	}
	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(idt, claims); err != nil {
		return fmt.Errorf("google: parse id_token: %w", err)
	}

	sub, idSub := providers.Str(raw, "sub"), providers.Str(claims, "sub")
	if sub != "" && idSub != "" && sub != idSub {
		return errors.New("google: userinfo subject does not match id_token")
	}
	for _, k := range profileClaims {
		if providers.Str(raw, k) != "" {
			continue
		}
		if v := providers.Str(claims, k); v != "" {
			raw[k] = v
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func mapUser(raw map[string]any) types.UserDetails {
	return types.UserDetails{
		UserID:    providers.Str(raw, "sub"),
		Email:     providers.Str(raw, "email"),
		Nickname:  providers.Str(raw, "name"),
		FirstName: providers.Str(raw, "given_name"),
		LastName:  providers.Str(raw, "family_name"),
		ImageURL:  providers.Str(raw, "picture"),
	}
}
