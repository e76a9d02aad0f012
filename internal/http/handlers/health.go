package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthlink/internal/http/helpers"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
)

// Pinger es cualquier dependencia que puede chequear su conectividad
// (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/healthz", h.healthz)
}

// GET /healthz
// 200 si todas las dependencias responden, 503 si alguna falla.
func (h *HealthHandler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			logger.From(ctx).Warn("health check failed", logger.Component(name), logger.Err(err))
			components[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "up"
	}

	out := map[string]any{"status": "ok", "components": components}
	if status != http.StatusOK {
		out["status"] = "degraded"
	}
	helpers.WriteJSON(w, status, out)
}
