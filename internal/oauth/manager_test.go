package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthlink/internal/auth"
	"github.com/dropDatabas3/oauthlink/internal/cache"
	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/providers/instapaper"
	"github.com/dropDatabas3/oauthlink/internal/providers/spotify"
	"github.com/dropDatabas3/oauthlink/internal/state"
	"github.com/dropDatabas3/oauthlink/internal/store"
	"github.com/dropDatabas3/oauthlink/internal/store/memory"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

type fixture struct {
	mgr        *Manager
	identities *store.IdentityStore
	sess       *cache.Session
	guard      *auth.SessionGuard
	hits       *int32
	srv        *httptest.Server
}

// fakeSpotify: token endpoint answers url-encoded access_token=XYZ,
// profile {"id":"42","display_name":"Ada"}.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") == "refresh_token" {
			time.Sleep(20 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"b"}`))
			return
		}
		_, _ = w.Write([]byte("access_token=XYZ"))
	})
	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"id":"42","display_name":"Ada"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := spotify.New(providers.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example/auth/spotify/callback",
		TokenURL:     srv.URL + "/api/token",
		UserInfoURL:  srv.URL + "/v1/me",
	}, transport.New(transport.Options{}))
	require.NoError(t, err)

	identities := store.NewIdentityStore(memory.NewIdentityRepo())
	mgr := NewManager(Deps{
		State:         state.New(),
		Authenticator: auth.New(memory.NewUserRepo(), identities),
		Identities:    identities,
	})
	mgr.RegisterProvider("spotify", p)

	sess := cache.Scoped(cache.NewMemory(""), "sess", time.Hour)
	return &fixture{
		mgr:        mgr,
		identities: identities,
		sess:       sess,
		guard:      auth.NewSessionGuard(sess),
		hits:       &hits,
		srv:        srv,
	}
}

func (f *fixture) request(in url.Values) Request {
	return Request{Input: in, Session: f.sess, Guard: f.guard}
}

func TestAuthorize_ContainsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	raw, err := f.mgr.Authorize(ctx, "spotify", f.sess)
	require.NoError(t, err)

	stored, ok, err := f.sess.Get(ctx, state.SessionKey)
	require.NoError(t, err)
	require.True(t, ok)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "cid", u.Query().Get("client_id"))
	assert.Equal(t, "https://app.example/auth/spotify/callback", u.Query().Get("redirect_uri"))
	assert.Equal(t, stored, u.Query().Get("state"))

	_, err = f.mgr.Authorize(ctx, "myspace", f.sess)
	assert.ErrorIs(t, err, types.ErrProviderNotRegistered)
}

func TestStart_WithoutRedirectReturnsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ip, err := instapaper.New(providers.Config{ConsumerKey: "ck", ConsumerSecret: "cs"}, nil)
	require.NoError(t, err)
	f.mgr.RegisterProvider("instapaper", ip)

	a, err := f.mgr.Start(ctx, "instapaper", f.sess)
	require.NoError(t, err)
	assert.Empty(t, a.URL)
	require.NotEmpty(t, a.State)

	stored, ok, err := f.sess.Get(ctx, state.SessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, a.State)

	a, err = f.mgr.Start(ctx, "spotify", f.sess)
	require.NoError(t, err)
	u, err := url.Parse(a.URL)
	require.NoError(t, err)
	assert.Equal(t, a.State, u.Query().Get("state"))
}

func TestLogin_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var handled []string
	f.mgr.OnLogin(func(_ context.Context, res *auth.Result) error {
		handled = append(handled, res.Identity.ProviderUserID)
		return nil
	})

	raw, err := f.mgr.Authorize(ctx, "spotify", f.sess)
	require.NoError(t, err)
	u, _ := url.Parse(raw)

	res, err := f.mgr.Login(ctx, "spotify", f.request(url.Values{"code": {"c"}, "state": {u.Query().Get("state")}}))
	require.NoError(t, err)
	assert.Equal(t, "42", res.Identity.ProviderUserID)
	assert.Equal(t, "Ada", res.Details.Nickname)
	assert.Equal(t, []string{"42"}, handled)

	stored, err := f.identities.ForUser(ctx, res.User.ID, "spotify")
	require.NoError(t, err)
	assert.Equal(t, "42", stored.ProviderUserID)
	assert.Equal(t, "XYZ", stored.AccessToken.String("access_token"))

	ok, err := f.mgr.CheckAssociation(ctx, "spotify", f.guard)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.mgr.GetAssociation(ctx, "spotify", f.guard, "")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	all, err := f.mgr.GetAllAssociations(ctx, nil, f.guard, "")
	require.NoError(t, err)
	assert.Contains(t, all, "spotify")

	n, err := f.mgr.Revoke(ctx, "spotify", f.guard)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.mgr.GetAssociation(ctx, "spotify", nil, res.User.ID)
	assert.True(t, repository.IsNotFound(err))
}

func TestLogin_StateGateBeforeNetwork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.mgr.Authorize(ctx, "spotify", f.sess)
	require.NoError(t, err)

	_, err = f.mgr.Login(ctx, "spotify", f.request(url.Values{"code": {"c"}, "state": {"forged"}}))
	assert.ErrorIs(t, err, types.ErrInvalidAuthorizationCode)

	_, err = f.mgr.Login(ctx, "spotify", f.request(url.Values{"code": {"c"}}))
	assert.ErrorIs(t, err, types.ErrInvalidAuthorizationCode)

	_, err = f.mgr.Associate(ctx, "spotify", f.request(url.Values{"code": {"c"}}))
	assert.ErrorIs(t, err, types.ErrInvalidAuthorizationCode)

	assert.Zero(t, atomic.LoadInt32(f.hits))
}

func TestLogin_SkipStateCheck(t *testing.T) {
	f := newFixture(t)
	req := f.request(url.Values{"code": {"c"}})
	req.SkipStateCheck = true

	res, err := f.mgr.Login(context.Background(), "spotify", req)
	require.NoError(t, err)
	assert.Equal(t, "42", res.Identity.ProviderUserID)
}

func TestLogin_UnknownAlias(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Login(context.Background(), "nope", f.request(url.Values{}))
	assert.ErrorIs(t, err, types.ErrProviderNotRegistered)
}

func TestAssociate_RequiresUser(t *testing.T) {
	f := newFixture(t)
	req := f.request(url.Values{"code": {"c"}})
	req.SkipStateCheck = true

	_, err := f.mgr.Associate(context.Background(), "spotify", req)
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestRefresh_MergesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id := &repository.Identity{
		UserID:         "u1",
		Provider:       "spotify",
		ProviderUserID: "42",
		AccessToken:    types.TokenBlobFrom("access_token", "a", "refresh_token", "r", "scope", "x"),
	}
	require.NoError(t, f.identities.Store(ctx, id))

	got, err := f.mgr.Refresh(ctx, "spotify", nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.AccessToken.String("access_token"))
	assert.Equal(t, "r", got.AccessToken.String("refresh_token"))
	assert.Equal(t, "x", got.AccessToken.String("scope"))

	stored, err := f.identities.ForUser(ctx, "u1", "spotify")
	require.NoError(t, err)
	assert.Equal(t, []string{"access_token", "refresh_token", "scope"}, stored.AccessToken.Keys())
	assert.Equal(t, "b", stored.AccessToken.String("access_token"))
}

func TestRefresh_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.mgr.Refresh(ctx, "spotify", f.guard, "")
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)

	_, err = f.mgr.Refresh(ctx, "spotify", nil, "ghost")
	assert.True(t, repository.IsNotFound(err))

	require.NoError(t, f.identities.Store(ctx, &repository.Identity{
		UserID: "u2", Provider: "spotify", ProviderUserID: "7",
		AccessToken: types.TokenBlobFrom("access_token", "a"),
	}))
	_, err = f.mgr.Refresh(ctx, "spotify", nil, "u2")
	assert.ErrorIs(t, err, types.ErrMissingRefreshToken)
}

func TestRefresh_ConcurrentCallsShareProviderCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.identities.Store(ctx, &repository.Identity{
		UserID: "u1", Provider: "spotify", ProviderUserID: "42",
		AccessToken: types.TokenBlobFrom("access_token", "a", "refresh_token", "r"),
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.mgr.Refresh(ctx, "spotify", nil, "u1")
			assert.NoError(t, err)
			if got != nil {
				assert.Equal(t, "b", got.AccessToken.String("access_token"))
			}
		}()
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(f.hits), int32(8))
}

func TestRefresh_CanceledCallerDoesNotFailOthers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.identities.Store(context.Background(), &repository.Identity{
		UserID: "u1", Provider: "spotify", ProviderUserID: "42",
		AccessToken: types.TokenBlobFrom("access_token", "a", "refresh_token", "r"),
	}))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.mgr.Refresh(first, "spotify", nil, "u1")
		firstErr <- err
	}()
	time.Sleep(5 * time.Millisecond)

	secondDone := make(chan *repository.Identity, 1)
	go func() {
		got, err := f.mgr.Refresh(context.Background(), "spotify", nil, "u1")
		assert.NoError(t, err)
		secondDone <- got
	}()
	time.Sleep(2 * time.Millisecond)
	cancel()

	if err := <-firstErr; err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	got := <-secondDone
	require.NotNil(t, got)
	assert.Equal(t, "b", got.AccessToken.String("access_token"))
}

func TestNilGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := url.Values{"code": {"c"}}

	cases := map[string]func() error{
		"login": func() error {
			_, err := f.mgr.Login(ctx, "spotify", Request{Input: in, SkipStateCheck: true})
			return err
		},
		"associate": func() error {
			_, err := f.mgr.Associate(ctx, "spotify", Request{Input: in, SkipStateCheck: true})
			return err
		},
		"revoke": func() error {
			_, err := f.mgr.Revoke(ctx, "spotify", nil)
			return err
		},
		"get association": func() error {
			_, err := f.mgr.GetAssociation(ctx, "spotify", nil, "")
			return err
		},
		"all associations": func() error {
			_, err := f.mgr.GetAllAssociations(ctx, nil, nil, "")
			return err
		},
		"refresh": func() error {
			_, err := f.mgr.Refresh(ctx, "spotify", nil, "")
			return err
		},
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = call() })
			assert.ErrorIs(t, err, types.ErrNotAuthenticated)
		})
	}

	ok, err := f.mgr.CheckAssociation(ctx, "spotify", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// login sin guard no llega a la red ni deja identidades
	assert.Zero(t, atomic.LoadInt32(f.hits))
	_, err = f.identities.GetByProvider(ctx, "spotify", &types.UserDetails{UserID: "42"}, "")
	assert.True(t, repository.IsNotFound(err))
}

func TestProviders(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"spotify"}, f.mgr.Providers())
}
