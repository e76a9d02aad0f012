package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/oauthlink/internal/audit"
	"github.com/dropDatabas3/oauthlink/internal/auth"
	"github.com/dropDatabas3/oauthlink/internal/cache"
	"github.com/dropDatabas3/oauthlink/internal/config"
	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/http/handlers"
	"github.com/dropDatabas3/oauthlink/internal/http/helpers"
	mw "github.com/dropDatabas3/oauthlink/internal/http/middlewares"
	"github.com/dropDatabas3/oauthlink/internal/http/router"
	"github.com/dropDatabas3/oauthlink/internal/metrics"
	"github.com/dropDatabas3/oauthlink/internal/oauth"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/providers/builtin"
	"github.com/dropDatabas3/oauthlink/internal/rate"
	"github.com/dropDatabas3/oauthlink/internal/state"
	"github.com/dropDatabas3/oauthlink/internal/store"
	"github.com/dropDatabas3/oauthlink/internal/store/memory"
	"github.com/dropDatabas3/oauthlink/internal/store/pg"
	"github.com/dropDatabas3/oauthlink/internal/transport"
)

// app es el grafo de dependencias del servicio.
type app struct {
	cfg      *config.Config
	sessions cache.Client
	pg       *pg.Store // nil con storage memory
	manager  *oauth.Manager
	handler  http.Handler
}

func (a *app) Close() {
	if a.sessions != nil {
		_ = a.sessions.Close()
	}
	a.pg.Close()
}

// openPostgres abre el pool según la configuración de storage.
func openPostgres(ctx context.Context, cfg *config.Config) (*pg.Store, error) {
	return pg.Open(ctx, cfg.Storage.DSN, pg.Options{
		IdentityTable:   cfg.Storage.IdentityTable,
		MaxConns:        int32(cfg.Storage.Postgres.MaxOpenConns),
		MinConns:        int32(cfg.Storage.Postgres.MinConns),
		ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime),
	})
}

// buildApp arma: cache -> repositorios -> providers -> manager -> router.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.L().With(logger.Component("wire"))
	a := &app{cfg: cfg}

	sessions, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	a.sessions = sessions
	health := map[string]handlers.Pinger{"cache": sessions}

	var (
		identityRepo repository.IdentityRepository
		userRepo     repository.UserRepository
	)
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := openPostgres(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pg = st
		identityRepo, userRepo = st.Identities, st.Users
		health["storage"] = st
	default:
		log.Warn("using in-memory storage; identities are lost on restart")
		identityRepo, userRepo = memory.NewIdentityRepo(), memory.NewUserRepo()
	}

	client := transport.New(transport.Options{
		Timeout:   config.Duration(cfg.HTTP.Timeout),
		UserAgent: cfg.HTTP.UserAgent,
	})
	registry := builtin.NewRegistry()
	for _, alias := range cfg.Aliases() {
		p := cfg.Providers[alias]
		if _, err := registry.Build(alias, providerConfig(p), client); err != nil {
			a.Close()
			return nil, err
		}
		log.Info("provider registered", logger.Alias(alias), logger.Provider(p.Driver))
	}

	identities := store.NewIdentityStore(identityRepo)
	a.manager = oauth.NewManager(oauth.Deps{
		Registry:      registry,
		State:         state.New(),
		Authenticator: auth.New(userRepo, identities),
		Identities:    identities,
	})
	a.manager.OnLogin(audit.New(nil).OnLogin)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		a.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	proxies, err := mw.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("server: %w", err)
	}

	a.handler = router.New(router.Deps{
		Manager:  a.manager,
		Sessions: sessions,
		Cookie: helpers.CookieOptions{
			Name:     cfg.Session.CookieName,
			Domain:   cfg.Session.Domain,
			SameSite: cfg.Session.SameSite,
			Secure:   cfg.Session.Secure,
			TTL:      config.Duration(cfg.Session.TTL),
		},
		TrustedProxies: proxies,
		RateLimiter:    callbackLimiter(cfg, sessions),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Health:         health,
	})
	return a, nil
}

// callbackLimiter comparte la conexión redis del cache si existe; si no,
// limita en memoria. nil si el límite está desactivado.
func callbackLimiter(cfg *config.Config, sessions cache.Client) rate.Limiter {
	limit := cfg.Rate.Callback.Limit
	if limit <= 0 {
		return nil
	}
	window := config.Duration(cfg.Rate.Callback.Window)
	if rdb, ok := cache.RedisOf(sessions); ok {
		return rate.NewRedisLimiter(rdb, cfg.Cache.Redis.Prefix+"rl:", limit, window)
	}
	return rate.NewMemoryLimiter(limit, window)
}

func providerConfig(p config.Provider) providers.Config {
	return providers.Config{
		Driver:         p.Driver,
		ClientID:       p.ClientID,
		ClientSecret:   p.ClientSecret,
		RedirectURI:    p.RedirectURI,
		Scopes:         p.Scopes,
		ConsumerKey:    p.ConsumerKey,
		ConsumerSecret: p.ConsumerSecret,
		AuthorizeURL:   p.AuthorizeURL,
		TokenURL:       p.TokenURL,
		UserInfoURL:    p.UserInfoURL,
	}
}
