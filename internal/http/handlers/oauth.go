// Package handlers implementa los endpoints HTTP del login social sobre
// oauth.Manager. La sesión (state y usuario local) viene del middleware
// WithSession.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthlink/internal/auth"
	"github.com/dropDatabas3/oauthlink/internal/cache"
	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	httperrors "github.com/dropDatabas3/oauthlink/internal/http/errors"
	"github.com/dropDatabas3/oauthlink/internal/http/helpers"
	mw "github.com/dropDatabas3/oauthlink/internal/http/middlewares"
	"github.com/dropDatabas3/oauthlink/internal/oauth"
	"github.com/dropDatabas3/oauthlink/internal/rate"
)

type OAuthHandler struct {
	mgr *oauth.Manager

	// limiter acota los intentos de callback/associate por IP y alias (nil = sin límite).
	limiter rate.Limiter
}

func NewOAuthHandler(mgr *oauth.Manager, limiter rate.Limiter) *OAuthHandler {
	return &OAuthHandler{mgr: mgr, limiter: limiter}
}

func (h *OAuthHandler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/providers", h.providers)
		r.Get("/associations", h.associations)
		r.Post("/logout", h.logout)

		r.Route("/{alias}", func(r chi.Router) {
			limited := r.With(mw.WithRateLimit(h.limiter, mw.IPAliasRateKey))

			r.Delete("/", h.revoke)
			r.Get("/authorize", h.authorize)
			limited.Get("/callback", h.callback)
			limited.Post("/callback", h.callback)
			limited.Post("/associate", h.associate)
			r.Get("/association", h.association)
			r.Get("/linked", h.linked)
			r.Post("/refresh", h.refresh)
		})
	})
}

// identityView es lo que se expone de una identidad: el material de token
// no sale del servidor, solo su expiración.
type identityView struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	ExpiresAt      int64     `json:"expires_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func viewOf(i *repository.Identity) identityView {
	exp, _ := i.AccessToken.Int64("expires_at")
	return identityView{
		ID:             i.ID,
		UserID:         i.UserID,
		Provider:       i.Provider,
		ProviderUserID: i.ProviderUserID,
		ExpiresAt:      exp,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

// GET /auth/providers
func (h *OAuthHandler) providers(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"providers": h.mgr.Providers()})
}

// GET /auth/{alias}/authorize
func (h *OAuthHandler) authorize(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	a, err := h.mgr.Start(r.Context(), chi.URLParam(r, "alias"), sess)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if a.URL == "" {
		// provider sin redirect (xAuth): el cliente postea credenciales y
		// este state al callback
		helpers.WriteJSON(w, http.StatusOK, map[string]any{"state": a.State})
		return
	}
	http.Redirect(w, r, a.URL, http.StatusFound)
}

// GET|POST /auth/{alias}/callback
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	res, err := h.mgr.Login(r.Context(), chi.URLParam(r, "alias"), oauth.Request{
		Input:   helpers.ReadInput(w, r),
		Session: sess,
		Guard:   auth.NewSessionGuard(sess),
	})
	writeResult(w, res, err)
}

// POST /auth/{alias}/associate
func (h *OAuthHandler) associate(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	res, err := h.mgr.Associate(r.Context(), chi.URLParam(r, "alias"), oauth.Request{
		Input:   helpers.ReadInput(w, r),
		Session: sess,
		Guard:   auth.NewSessionGuard(sess),
	})
	writeResult(w, res, err)
}

func writeResult(w http.ResponseWriter, res *auth.Result, err error) {
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if res.NewUser {
		status = http.StatusCreated
	}
	helpers.WriteJSON(w, status, map[string]any{
		"user_id":  res.User.ID,
		"new_user": res.NewUser,
		"identity": viewOf(res.Identity),
	})
}

// DELETE /auth/{alias}
func (h *OAuthHandler) revoke(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	n, err := h.mgr.Revoke(r.Context(), chi.URLParam(r, "alias"), auth.NewSessionGuard(sess))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"revoked": n})
}

// POST /auth/logout
func (h *OAuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	if err := auth.NewSessionGuard(sess).Logout(r.Context()); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /auth/{alias}/linked
func (h *OAuthHandler) linked(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	linked, err := h.mgr.CheckAssociation(r.Context(), chi.URLParam(r, "alias"), auth.NewSessionGuard(sess))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"linked": linked})
}

// GET /auth/{alias}/association
func (h *OAuthHandler) association(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	identity, err := h.mgr.GetAssociation(r.Context(), chi.URLParam(r, "alias"), auth.NewSessionGuard(sess), "")
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, viewOf(identity))
}

// GET /auth/associations?alias=a&alias=b
func (h *OAuthHandler) associations(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	all, err := h.mgr.GetAllAssociations(r.Context(), r.URL.Query()["alias"], auth.NewSessionGuard(sess), "")
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	out := make(map[string]identityView, len(all))
	for alias, identity := range all {
		out[alias] = viewOf(&identity)
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"associations": out})
}

// POST /auth/{alias}/refresh
func (h *OAuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	identity, err := h.mgr.Refresh(r.Context(), chi.URLParam(r, "alias"), auth.NewSessionGuard(sess), "")
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, viewOf(identity))
}

func session(w http.ResponseWriter, r *http.Request) (*cache.Session, bool) {
	sess := mw.GetSession(r.Context())
	if sess == nil {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("session middleware not configured"))
		return nil, false
	}
	return sess, true
}
