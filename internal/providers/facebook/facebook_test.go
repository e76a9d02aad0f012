package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

func TestFacebookFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"EAAB","token_type":"bearer","expires_in":5183944}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, profileFields, r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"id":"10158","name":"Ada Lovelace","first_name":"Ada","last_name":"Lovelace","picture":{"data":{"url":"https://fb/p.jpg"}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := New(providers.Config{
		ClientID:     "app",
		ClientSecret: "shh",
		RedirectURI:  "https://app.example/cb",
		TokenURL:     srv.URL + "/oauth/access_token",
		UserInfoURL:  srv.URL + "/me",
	}, transport.New(transport.Options{}))
	require.NoError(t, err)

	raw, err := p.AuthorizeURL("st")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "email,public_profile", u.Query().Get("scope"))

	d, err := p.UserDetails(context.Background(), url.Values{"code": {"c"}})
	require.NoError(t, err)
	assert.Equal(t, "10158", d.UserID)
	assert.Equal(t, "Ada", d.FirstName)
	assert.Equal(t, "Lovelace", d.LastName)
	assert.Equal(t, "https://fb/p.jpg", d.ImageURL)
	assert.True(t, d.AccessToken.Has("expires_at"))
}
