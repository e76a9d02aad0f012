// Package oauth es la fachada del login social: registra providers por alias
// y orquesta authorize, login, associate, revoke, consultas de asociación y
// refresh de tokens.
//
// Flujo:
//
//	Start(alias)      -> genera state en la sesión -> URL del provider + state
//	Login(alias)      -> verifica state -> provider.UserDetails -> Authenticator.Login
//	Refresh(alias)    -> identidad guardada -> provider.RefreshToken -> merge -> persistir
package oauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/oauthlink/internal/auth"
	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/metrics"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
	"github.com/dropDatabas3/oauthlink/internal/providers"
	"github.com/dropDatabas3/oauthlink/internal/state"
	"github.com/dropDatabas3/oauthlink/internal/store"
)

// Deps contiene las dependencias del Manager.
type Deps struct {
	Registry      *providers.Registry
	State         *state.Manager
	Authenticator *auth.Authenticator
	Identities    *store.IdentityStore
}

// Manager implementa las operaciones del login social, por alias.
type Manager struct {
	registry   *providers.Registry
	state      *state.Manager
	auth       *auth.Authenticator
	identities *store.IdentityStore

	refreshes singleflight.Group
}

func NewManager(d Deps) *Manager {
	if d.Registry == nil {
		d.Registry = providers.NewRegistry()
	}
	if d.State == nil {
		d.State = state.New()
	}
	return &Manager{
		registry:   d.Registry,
		state:      d.State,
		auth:       d.Authenticator,
		identities: d.Identities,
	}
}

// Request es lo que el adapter web entrega de cada callback.
type Request struct {
	Input   providers.Input
	Session state.Session
	Guard   auth.Guard

	// SkipStateCheck desactiva la verificación del state (ej: xAuth desde
	// un cliente propio que nunca pasó por Authorize).
	SkipStateCheck bool
}

// RegisterProvider registra (o reemplaza) el provider de alias.
func (m *Manager) RegisterProvider(alias string, p providers.Provider) {
	m.registry.Register(alias, p)
}

// Providers lista los alias registrados.
func (m *Manager) Providers() []string {
	return m.registry.Aliases()
}

// OnLogin registra un handler post-login (se ejecutan en orden de registro).
func (m *Manager) OnLogin(h auth.LoginHandler) {
	m.auth.OnLogin(h)
}

// Authorization es el inicio de un flujo: la URL a la que mandar al usuario
// y el state guardado en su sesión. URL vacía = el provider no redirige
// (xAuth) y el cliente postea credenciales + State al callback.
type Authorization struct {
	URL   string
	State string
}

// Start genera un state nuevo en sess y arma la URL de autorización.
func (m *Manager) Start(ctx context.Context, alias string, sess state.Session) (*Authorization, error) {
	p, err := m.registry.Get(alias)
	if err != nil {
		return nil, m.done(ctx, "authorize", alias, err)
	}
	st, err := m.state.Generate(ctx, sess)
	if err != nil {
		return nil, m.done(ctx, "authorize", alias, err)
	}
	u, err := p.AuthorizeURL(st)
	if err != nil {
		return nil, m.done(ctx, "authorize", alias, err)
	}
	return &Authorization{URL: u, State: st}, m.done(ctx, "authorize", alias, nil)
}

// Authorize es Start devolviendo solo la URL de redirect.
func (m *Manager) Authorize(ctx context.Context, alias string, sess state.Session) (string, error) {
	a, err := m.Start(ctx, alias, sess)
	if err != nil {
		return "", err
	}
	return a.URL, nil
}

// Login completa el callback: verifica el state (antes de cualquier llamada
// de red), obtiene el perfil e inicia sesión con la cuenta local.
func (m *Manager) Login(ctx context.Context, alias string, req Request) (*auth.Result, error) {
	details, err := m.userDetails(ctx, alias, req)
	if err != nil {
		return nil, m.done(ctx, "login", alias, err)
	}
	res, err := m.auth.Login(ctx, req.Guard, alias, details)
	return res, m.done(ctx, "login", alias, err)
}

// Associate como Login, pero vincula la identidad a la cuenta ya en sesión.
func (m *Manager) Associate(ctx context.Context, alias string, req Request) (*auth.Result, error) {
	details, err := m.userDetails(ctx, alias, req)
	if err != nil {
		return nil, m.done(ctx, "associate", alias, err)
	}
	res, err := m.auth.Associate(ctx, req.Guard, alias, details)
	return res, m.done(ctx, "associate", alias, err)
}

func (m *Manager) userDetails(ctx context.Context, alias string, req Request) (*types.UserDetails, error) {
	p, err := m.registry.Get(alias)
	if err != nil {
		return nil, err
	}
	// sin guard no hay dónde iniciar sesión: se corta antes de tocar la red
	if req.Guard == nil {
		return nil, types.ErrNotAuthenticated
	}
	if !req.SkipStateCheck {
		if req.Session == nil {
			return nil, fmt.Errorf("%w: no session", types.ErrInvalidAuthorizationCode)
		}
		if err := m.state.Verify(ctx, req.Session, req.Input.Get("state")); err != nil {
			return nil, err
		}
	}
	return p.UserDetails(ctx, req.Input)
}

// Revoke elimina las identidades del usuario en sesión para alias.
func (m *Manager) Revoke(ctx context.Context, alias string, guard auth.Guard) (int64, error) {
	if _, err := m.registry.Get(alias); err != nil {
		return 0, m.done(ctx, "revoke", alias, err)
	}
	n, err := m.auth.Revoke(ctx, guard, alias)
	return n, m.done(ctx, "revoke", alias, err)
}

// CheckAssociation indica si el usuario en sesión tiene identidad para alias.
func (m *Manager) CheckAssociation(ctx context.Context, alias string, guard auth.Guard) (bool, error) {
	if _, err := m.registry.Get(alias); err != nil {
		return false, err
	}
	return m.auth.CheckAssociation(ctx, guard, alias)
}

// GetAssociation retorna la identidad de userID (o del usuario en sesión si
// userID es "") para alias. repository.ErrNotFound si no hay.
func (m *Manager) GetAssociation(ctx context.Context, alias string, guard auth.Guard, userID string) (*repository.Identity, error) {
	if _, err := m.registry.Get(alias); err != nil {
		return nil, err
	}
	userID, err := resolveUser(ctx, guard, userID)
	if err != nil {
		return nil, err
	}
	return m.identities.ForUser(ctx, userID, alias)
}

// GetAllAssociations retorna alias -> identidad para los alias pedidos
// (todos los registrados si aliases está vacío). Los alias sin identidad no aparecen.
func (m *Manager) GetAllAssociations(ctx context.Context, aliases []string, guard auth.Guard, userID string) (map[string]repository.Identity, error) {
	if len(aliases) == 0 {
		aliases = m.registry.Aliases()
	}
	for _, a := range aliases {
		if _, err := m.registry.Get(a); err != nil {
			return nil, err
		}
	}
	userID, err := resolveUser(ctx, guard, userID)
	if err != nil {
		return nil, err
	}
	list, err := m.identities.ListForUser(ctx, userID, aliases)
	if err != nil {
		return nil, err
	}
	out := make(map[string]repository.Identity, len(list))
	for _, id := range list {
		out[id.Provider] = id
	}
	return out, nil
}

// Refresh pide un token nuevo al provider y lo mergea en la identidad guardada:
// las claves nuevas pisan, las que el provider no devuelve (refresh_token, scope)
// se conservan. Refresh concurrentes del mismo (alias, usuario) comparten una
// sola llamada al provider.
func (m *Manager) Refresh(ctx context.Context, alias string, guard auth.Guard, userID string) (*repository.Identity, error) {
	p, err := m.registry.Get(alias)
	if err != nil {
		return nil, m.done(ctx, "refresh", alias, err)
	}
	userID, err = resolveUser(ctx, guard, userID)
	if err != nil {
		return nil, m.done(ctx, "refresh", alias, err)
	}

	// La llamada compartida no depende del ctx de quien la inició: si ese
	// request se cancela, los demás que esperan el mismo refresh siguen.
	flight := m.refreshes.DoChan(alias+"\x00"+userID, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		identity, err := m.identities.ForUser(ctx, userID, alias)
		if err != nil {
			return nil, err
		}
		update, err := p.RefreshToken(ctx, *identity)
		if err != nil {
			return nil, err
		}
		identity.AccessToken = identity.AccessToken.Merge(update)
		if err := m.identities.Store(ctx, identity); err != nil {
			return nil, err
		}
		return *identity, nil
	})

	var r singleflight.Result
	select {
	case r = <-flight:
	case <-ctx.Done():
		return nil, m.done(ctx, "refresh", alias, ctx.Err())
	}
	if r.Err != nil {
		return nil, m.done(ctx, "refresh", alias, r.Err)
	}

	identity := r.Val.(repository.Identity)
	identity.AccessToken = identity.AccessToken.Clone()
	return &identity, m.done(ctx, "refresh", alias, nil)
}

func resolveUser(ctx context.Context, guard auth.Guard, userID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	return auth.CurrentUser(ctx, guard)
}

// done registra el resultado de la operación y devuelve err sin tocarlo.
func (m *Manager) done(ctx context.Context, op, alias string, err error) error {
	label := alias
	if errors.Is(err, types.ErrProviderNotRegistered) {
		label = "unregistered" // no usar el alias del request como label
	}
	metrics.Operations.WithLabelValues(op, label, resultLabel(err)).Inc()
	if err != nil {
		logger.From(ctx).Warn("oauth operation failed",
			logger.Layer("service"),
			logger.Component("oauth.manager"),
			logger.Op(op),
			logger.Alias(alias),
			logger.Err(err),
		)
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrProviderNotRegistered):
		return "not_registered"
	case errors.Is(err, types.ErrInvalidAuthorizationCode):
		return "invalid_code"
	case errors.Is(err, types.ErrApplicationRejected):
		return "rejected"
	case errors.Is(err, types.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, types.ErrMissingRefreshToken):
		return "missing_refresh_token"
	case errors.Is(err, types.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
