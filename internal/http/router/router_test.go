package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthlink/internal/auth"
	"github.com/dropDatabas3/oauthlink/internal/cache"
	"github.com/dropDatabas3/oauthlink/internal/http/handlers"
	"github.com/dropDatabas3/oauthlink/internal/http/helpers"
	mw "github.com/dropDatabas3/oauthlink/internal/http/middlewares"
	"github.com/dropDatabas3/oauthlink/internal/oauth"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/providers/instapaper"
	"github.com/dropDatabas3/oauthlink/internal/providers/spotify"
	"github.com/dropDatabas3/oauthlink/internal/rate"
	"github.com/dropDatabas3/oauthlink/internal/state"
	"github.com/dropDatabas3/oauthlink/internal/store"
	"github.com/dropDatabas3/oauthlink/internal/store/memory"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

type testEnv struct {
	api    *httptest.Server
	client *http.Client
	hits   *int32
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWith(t, rate.NewMemoryLimiter(100, time.Minute))
}

func newEnvWith(t *testing.T, limiter rate.Limiter) *testEnv {
	t.Helper()

	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"XYZ","refresh_token":"R","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"id":"42","display_name":"Ada","email":"ada@example.com"}`))
	})
	mux.HandleFunc("/api/1/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.PostFormValue("x_auth_password") != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("oauth_token=tok&oauth_token_secret=toksecret"))
	})
	mux.HandleFunc("/api/1/account/verify_credentials", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`[{"type":"user","user_id":54321,"username":"ada@example.com"}]`))
	})
	fake := httptest.NewServer(mux)
	t.Cleanup(fake.Close)

	p, err := spotify.New(providers.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example/auth/spotify/callback",
		TokenURL:     fake.URL + "/api/token",
		UserInfoURL:  fake.URL + "/v1/me",
	}, transport.New(transport.Options{}))
	require.NoError(t, err)

	ip, err := instapaper.New(providers.Config{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		TokenURL:       fake.URL + "/api/1/oauth/access_token",
		UserInfoURL:    fake.URL + "/api/1/account/verify_credentials",
	}, transport.New(transport.Options{}))
	require.NoError(t, err)

	identities := store.NewIdentityStore(memory.NewIdentityRepo())
	mgr := oauth.NewManager(oauth.Deps{
		State:         state.New(),
		Authenticator: auth.New(memory.NewUserRepo(), identities),
		Identities:    identities,
	})
	mgr.RegisterProvider("spotify", p)
	mgr.RegisterProvider("instapaper", ip)

	trusted, err := mw.ParseTrustedProxies([]string{"127.0.0.1", "::1"})
	require.NoError(t, err)

	sessions := cache.NewMemory("test:")
	api := httptest.NewServer(New(Deps{
		Manager:  mgr,
		Sessions: sessions,
		Cookie:   helpers.CookieOptions{Name: "sid", TTL: time.Hour},

		TrustedProxies: trusted,

		RateLimiter: limiter,
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		Health:      map[string]handlers.Pinger{"cache": sessions},
	}))
	t.Cleanup(api.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{api: api, client: client, hits: &hits}
}

// newClient es otro navegador contra el mismo servidor.
func (e *testEnv) newClient(t *testing.T) *testEnv {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := *e
	c.client = &http.Client{Jar: jar, CheckRedirect: e.client.CheckRedirect}
	return &c
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	res, err := e.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(res.Body).Decode(&body)
	return res, body
}

func (e *testEnv) do(t *testing.T, method, path string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, e.api.URL+path, nil)
	require.NoError(t, err)
	return e.send(t, req)
}

func (e *testEnv) login(t *testing.T) map[string]any {
	t.Helper()
	res, _ := e.do(t, http.MethodGet, "/auth/spotify/authorize")
	require.Equal(t, http.StatusFound, res.StatusCode)

	loc, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	st := loc.Query().Get("state")
	require.Len(t, st, 43)

	res, body := e.do(t, http.MethodGet, "/auth/spotify/callback?code=abc&state="+url.QueryEscape(st))
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	return body
}

func TestProviders(t *testing.T) {
	e := newEnv(t)
	res, body := e.do(t, http.MethodGet, "/auth/providers")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []any{"instapaper", "spotify"}, body["providers"])
}

func TestLoginFlow(t *testing.T) {
	e := newEnv(t)
	body := e.login(t)

	assert.Equal(t, true, body["new_user"])
	identity := body["identity"].(map[string]any)
	assert.Equal(t, "42", identity["provider_user_id"])
	assert.Equal(t, "spotify", identity["provider"])
	assert.NotContains(t, identity, "access_token")

	res, got := e.do(t, http.MethodGet, "/auth/spotify/association")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, body["user_id"], got["user_id"])
	assert.NotZero(t, got["expires_at"])

	res, got = e.do(t, http.MethodGet, "/auth/spotify/linked")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, got["linked"])

	res, got = e.do(t, http.MethodGet, "/auth/associations?alias=spotify")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, got["associations"], "spotify")

	res, got = e.do(t, http.MethodPost, "/auth/spotify/refresh")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "42", got["provider_user_id"])

	res, got = e.do(t, http.MethodDelete, "/auth/spotify")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, float64(1), got["revoked"])

	res, got = e.do(t, http.MethodGet, "/auth/spotify/association")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "NOT_FOUND", got["code"])
}

func TestCallback_BadStateNeverReachesProvider(t *testing.T) {
	e := newEnv(t)
	res, _ := e.do(t, http.MethodGet, "/auth/spotify/authorize")
	require.Equal(t, http.StatusFound, res.StatusCode)

	res, body := e.do(t, http.MethodGet, "/auth/spotify/callback?code=abc&state=forged")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "INVALID_AUTHORIZATION_CODE", body["code"])
	assert.Equal(t, int32(0), atomic.LoadInt32(e.hits))
}

func TestCallback_ProviderError(t *testing.T) {
	e := newEnv(t)
	res, _ := e.do(t, http.MethodGet, "/auth/spotify/authorize")
	require.Equal(t, http.StatusFound, res.StatusCode)
	loc, _ := url.Parse(res.Header.Get("Location"))

	q := url.Values{
		"state":             {loc.Query().Get("state")},
		"error":             {"access_denied"},
		"error_description": {"user said no"},
	}
	res, body := e.do(t, http.MethodGet, "/auth/spotify/callback?"+q.Encode())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, body["detail"], "access_denied user said no")
}

func TestUnknownAlias(t *testing.T) {
	e := newEnv(t)
	res, body := e.do(t, http.MethodGet, "/auth/myspace/authorize")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "PROVIDER_NOT_REGISTERED", body["code"])
}

func TestNotAuthenticated(t *testing.T) {
	e := newEnv(t)

	res, body := e.do(t, http.MethodPost, "/auth/spotify/refresh")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "NOT_AUTHENTICATED", body["code"])

	res, body = e.do(t, http.MethodGet, "/auth/spotify/linked")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, false, body["linked"])
}

func TestSessionCookie(t *testing.T) {
	e := newEnv(t)
	res, _ := e.do(t, http.MethodGet, "/auth/providers")

	var sid *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "sid" {
			sid = c
		}
	}
	require.NotNil(t, sid)
	assert.True(t, sid.HttpOnly)
	assert.Len(t, sid.Value, 36)

	// la misma sesión se conserva entre requests
	res, _ = e.do(t, http.MethodGet, "/auth/providers")
	for _, c := range res.Cookies() {
		if c.Name == "sid" {
			assert.Equal(t, sid.Value, c.Value)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	res, body := e.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))

	res, _ = e.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCallback_RateLimited(t *testing.T) {
	e := newEnvWith(t, rate.NewMemoryLimiter(1, time.Minute))

	res, _ := e.do(t, http.MethodGet, "/auth/spotify/callback?code=abc&state=x")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body := e.do(t, http.MethodGet, "/auth/spotify/callback?code=abc&state=x")
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])

	// authorize no está limitado
	res, _ = e.do(t, http.MethodGet, "/auth/spotify/authorize")
	assert.Equal(t, http.StatusFound, res.StatusCode)
}

func TestXAuthLogin(t *testing.T) {
	e := newEnv(t)

	res, body := e.do(t, http.MethodGet, "/auth/instapaper/authorize")
	require.Equal(t, http.StatusOK, res.StatusCode)
	st, _ := body["state"].(string)
	require.Len(t, st, 43)

	post := func(password string) (*http.Response, map[string]any) {
		form := url.Values{"username": {"ada"}, "password": {password}, "state": {st}}
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.api.URL+"/auth/instapaper/callback", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return e.send(t, req)
	}

	res, body = post("hunter2")
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	identity := body["identity"].(map[string]any)
	assert.Equal(t, "instapaper", identity["provider"])
	assert.Equal(t, "54321", identity["provider_user_id"])

	// el state es de un solo uso
	res, body = post("hunter2")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "INVALID_AUTHORIZATION_CODE", body["code"])
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	res, got := e.do(t, http.MethodGet, "/auth/spotify/linked")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, true, got["linked"])

	res, _ = e.do(t, http.MethodPost, "/auth/logout")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, got = e.do(t, http.MethodGet, "/auth/spotify/linked")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, false, got["linked"])

	res, got = e.do(t, http.MethodPost, "/auth/spotify/refresh")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "NOT_AUTHENTICATED", got["code"])
}

func TestLogin_FixedSessionIDIsNotAuthenticated(t *testing.T) {
	e := newEnv(t)
	other := e.newClient(t)

	fixed := "7b0c7c4e-1a7e-4d5e-9a59-0d1f6c2b9e11"
	u, err := url.Parse(e.api.URL)
	require.NoError(t, err)
	e.client.Jar.SetCookies(u, []*http.Cookie{{Name: "sid", Value: fixed, Path: "/"}})
	other.client.Jar.SetCookies(u, []*http.Cookie{{Name: "sid", Value: fixed, Path: "/"}})

	e.login(t)

	var sid string
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == "sid" {
			sid = c.Value
		}
	}
	assert.Len(t, sid, 36)
	assert.NotEqual(t, fixed, sid)

	_, got := e.do(t, http.MethodGet, "/auth/spotify/linked")
	assert.Equal(t, true, got["linked"])

	_, got = other.do(t, http.MethodGet, "/auth/spotify/linked")
	assert.Equal(t, false, got["linked"])
}

func TestCallback_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	e := newEnvWith(t, rate.NewMemoryLimiter(1, time.Minute))

	call := func(xff string) *http.Response {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, e.api.URL+"/auth/spotify/callback?code=abc&state=x", nil)
		require.NoError(t, err)
		req.Header.Set("X-Forwarded-For", xff)
		res, _ := e.send(t, req)
		return res
	}

	// el peer (loopback) es un proxy confiable, así que cuenta el salto más a
	// la derecha; lo que el cliente escribe a la izquierda no cambia la clave
	assert.Equal(t, http.StatusBadRequest, call("1.1.1.1, 198.51.100.7").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, call("2.2.2.2, 198.51.100.7").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, call("3.3.3.3, 198.51.100.7").StatusCode)

	// otro cliente real detrás del proxy tiene su propio cupo
	assert.Equal(t, http.StatusBadRequest, call("198.51.100.8").StatusCode)
}
