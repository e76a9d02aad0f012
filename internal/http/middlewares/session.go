package middlewares

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/oauthlink/internal/cache"
	"github.com/dropDatabas3/oauthlink/internal/http/helpers"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
)

// WithSession resuelve la sesión del request a partir de la cookie (un uuid)
// y la deja en el contexto como vista scoped del cache. Sin cookie válida se
// crea una sesión nueva y se emite la cookie.
func WithSession(store cache.Client, opts helpers.CookieOptions) Middleware {
	if opts.Name == "" {
		opts.Name = "oauthlink_session"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if ck, err := r.Cookie(opts.Name); err == nil {
				if _, err := uuid.Parse(ck.Value); err == nil {
					id = ck.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				logger.From(r.Context()).Debug("session created", logger.Op("session"))
			}
			// se re-emite siempre para extender la expiración
			http.SetCookie(w, helpers.BuildCookie(opts, id))

			sess := cache.Scoped(store, id, opts.TTL)
			sess.OnRegenerate(func(id string) {
				replaceCookie(w.Header(), helpers.BuildCookie(opts, id))
			})
			next.ServeHTTP(w, r.WithContext(setSession(r.Context(), sess)))
		})
	}
}

// replaceCookie reemplaza el Set-Cookie de c.Name ya agregado al header.
func replaceCookie(h http.Header, c *http.Cookie) {
	prefix := c.Name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	if v := c.String(); v != "" {
		h.Add("Set-Cookie", v)
	}
}
