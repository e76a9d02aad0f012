// Package router arma el http.Handler del servicio: middlewares globales,
// rutas del login social, /healthz y /metrics.
package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthlink/internal/cache"
	httperrors "github.com/dropDatabas3/oauthlink/internal/http/errors"
	"github.com/dropDatabas3/oauthlink/internal/http/handlers"
	"github.com/dropDatabas3/oauthlink/internal/http/helpers"
	mw "github.com/dropDatabas3/oauthlink/internal/http/middlewares"
	"github.com/dropDatabas3/oauthlink/internal/oauth"
	"github.com/dropDatabas3/oauthlink/internal/rate"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Manager  *oauth.Manager
	Sessions cache.Client
	Cookie   helpers.CookieOptions

	// TrustedProxies son los proxies cuyo X-Forwarded-For se acepta para
	// resolver la IP del cliente. Vacío = peer de la conexión.
	TrustedProxies []netip.Prefix

	// RateLimiter acota callback y associate. nil = sin límite.
	RateLimiter rate.Limiter

	// Metrics sirve /metrics (ej: promhttp.Handler()). nil = sin endpoint.
	Metrics http.Handler

	// Health son los chequeos de /healthz por componente.
	Health map[string]handlers.Pinger
}

// New construye el router.
// Orden: request id -> client ip -> logging -> recover -> (sesión, solo /auth) -> handler
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRequestID(), mw.WithClientIP(d.TrustedProxies), mw.WithLogging(), mw.WithRecover())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Método no permitido."))
	})

	handlers.NewHealthHandler(d.Health).Register(r)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.WithSession(d.Sessions, d.Cookie))
		handlers.NewOAuthHandler(d.Manager, d.RateLimiter).Register(r)
	})
	return r
}
