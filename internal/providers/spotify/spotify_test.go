package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

func fakeSpotify(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("grant_type") == "refresh_token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"fresh","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte("access_token=XYZ"))
	})
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer XYZ" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"42","display_name":"Ada","email":"ada@example.com","images":[{"url":"https://i.scdn.co/a.jpg"}]}`))
	})
	return httptest.NewServer(mux)
}

func newTestProvider(t *testing.T, srv *httptest.Server) providers.Provider {
	t.Helper()
	p, err := New(providers.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example/auth/spotify/callback",
		Scopes:       []string{"user-read-email", "user-read-private"},
		TokenURL:     srv.URL + "/api/token",
		UserInfoURL:  srv.URL + "/v1/me",
	}, transport.New(transport.Options{}))
	require.NoError(t, err)
	return p
}

func TestNew_MissingConfig(t *testing.T) {
	_, err := New(providers.Config{ClientID: "cid"}, nil)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestAuthorizeURL(t *testing.T) {
	srv := fakeSpotify(t)
	defer srv.Close()
	p := newTestProvider(t, srv)

	raw, err := p.AuthorizeURL("abc123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.spotify.com", u.Host)
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "cid", u.Query().Get("client_id"))
	assert.Equal(t, "https://app.example/auth/spotify/callback", u.Query().Get("redirect_uri"))
	assert.Equal(t, "user-read-email user-read-private", u.Query().Get("scope"))
	assert.Equal(t, "abc123", u.Query().Get("state"))
}

func TestUserDetails(t *testing.T) {
	srv := fakeSpotify(t)
	defer srv.Close()
	p := newTestProvider(t, srv)

	d, err := p.UserDetails(context.Background(), url.Values{"code": {"the-code"}})
	require.NoError(t, err)

	assert.Equal(t, "42", d.UserID)
	assert.Equal(t, "Ada", d.Nickname)
	assert.Equal(t, "Ada", d.FirstName)
	assert.Equal(t, "ada@example.com", d.Email)
	assert.Equal(t, "https://i.scdn.co/a.jpg", d.ImageURL)
	assert.Equal(t, "XYZ", d.AccessToken.String("access_token"))
}

func TestRefreshToken(t *testing.T) {
	srv := fakeSpotify(t)
	defer srv.Close()
	p := newTestProvider(t, srv)

	blob, err := p.RefreshToken(context.Background(), repository.Identity{
		AccessToken: types.TokenBlobFrom("access_token", "XYZ", "refresh_token", "r"),
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", blob.String("access_token"))
	assert.True(t, blob.Has("expires_at"))
	assert.False(t, blob.Has("refresh_token"))
}
