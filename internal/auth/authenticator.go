// Package auth vincula los perfiles que devuelven los providers con cuentas
// locales: login (buscar o crear usuario + identidad), asociación a la cuenta
// en sesión, revocación y consulta.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
	"github.com/dropDatabas3/oauthlink/internal/store"
)

// LoginHandler corre después de cada login exitoso, en orden de registro.
// Un error corta la cadena y se propaga (la identidad ya quedó guardada).
type LoginHandler func(ctx context.Context, res *Result) error

// Result es lo que produce Login/Associate.
type Result struct {
	User     *repository.User
	Identity *repository.Identity
	Details  *types.UserDetails

	// NewUser indica que la cuenta local se creó en este login.
	NewUser bool
}

// Authenticator persiste identidades y resuelve la cuenta local.
type Authenticator struct {
	users      repository.UserRepository
	identities *store.IdentityStore

	mu       sync.RWMutex
	handlers []LoginHandler
}

func New(users repository.UserRepository, identities *store.IdentityStore) *Authenticator {
	return &Authenticator{users: users, identities: identities}
}

// OnLogin registra un handler post-login.
func (a *Authenticator) OnLogin(h LoginHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, h)
}

// Login busca la identidad (alias, details.UserID). Si existe actualiza el token
// y usa su cuenta; si no, crea cuenta e identidad. Inicia sesión en guard.
func (a *Authenticator) Login(ctx context.Context, guard Guard, alias string, details *types.UserDetails) (*Result, error) {
	if guard == nil {
		return nil, types.ErrNotAuthenticated
	}
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.authenticator"), logger.Alias(alias))

	identity, err := a.identities.GetByProvider(ctx, alias, details, "")
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("auth: lookup identity: %w", err)
	}

	res := &Result{Details: details}
	if identity != nil {
		user, err := a.userFor(ctx, identity.UserID)
		if err != nil {
			return nil, err
		}
		res.User = user
		identity.AccessToken = details.AccessToken
	} else {
		identity = &repository.Identity{
			Provider:       alias,
			ProviderUserID: details.UserID,
			AccessToken:    details.AccessToken,
		}
	}

	if res.User == nil {
		user, err := a.users.Create(ctx, repository.CreateUserInput{Email: details.Email, Nickname: details.Nickname})
		if err != nil {
			return nil, fmt.Errorf("auth: create user: %w", err)
		}
		res.User = user
		res.NewUser = true
	}
	identity.UserID = res.User.ID

	if err := a.identities.Store(ctx, identity); err != nil {
		return nil, fmt.Errorf("auth: store identity: %w", err)
	}
	res.Identity = identity

	if err := guard.Login(ctx, res.User.ID); err != nil {
		return nil, fmt.Errorf("auth: start session: %w", err)
	}
	log.Info("oauth login",
		logger.UserID(res.User.ID),
		logger.ProviderUserID(details.UserID),
		logger.Bool("new_user", res.NewUser),
	)

	if err := a.runHandlers(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// userFor retorna la cuenta de la identidad, o nil si la identidad no tiene
// cuenta o la cuenta ya no existe.
func (a *Authenticator) userFor(ctx context.Context, userID string) (*repository.User, error) {
	if userID == "" {
		return nil, nil
	}
	user, err := a.users.GetByID(ctx, userID)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	return user, nil
}

// Associate vincula la identidad a la cuenta en sesión.
func (a *Authenticator) Associate(ctx context.Context, guard Guard, alias string, details *types.UserDetails) (*Result, error) {
	userID, err := CurrentUser(ctx, guard)
	if err != nil {
		return nil, err
	}
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, types.ErrNotAuthenticated
		}
		return nil, fmt.Errorf("auth: load user: %w", err)
	}

	identity, err := a.identities.GetByProvider(ctx, alias, details, userID)
	switch {
	case repository.IsNotFound(err):
		identity = &repository.Identity{
			UserID:         userID,
			Provider:       alias,
			ProviderUserID: details.UserID,
		}
	case err != nil:
		return nil, fmt.Errorf("auth: lookup identity: %w", err)
	}
	identity.AccessToken = details.AccessToken

	if err := a.identities.Store(ctx, identity); err != nil {
		return nil, fmt.Errorf("auth: store identity: %w", err)
	}

	logger.From(ctx).Info("oauth identity associated",
		logger.Component("auth.authenticator"),
		logger.Alias(alias),
		logger.UserID(userID),
		logger.ProviderUserID(details.UserID),
	)
	return &Result{User: user, Identity: identity, Details: details}, nil
}

// Revoke elimina las identidades del usuario en sesión para alias.
func (a *Authenticator) Revoke(ctx context.Context, guard Guard, alias string) (int64, error) {
	userID, err := CurrentUser(ctx, guard)
	if err != nil {
		return 0, err
	}
	n, err := a.identities.Flush(ctx, userID, alias)
	if err != nil {
		return 0, fmt.Errorf("auth: revoke: %w", err)
	}
	logger.From(ctx).Info("oauth identity revoked",
		logger.Component("auth.authenticator"), logger.Alias(alias), logger.UserID(userID), logger.Count(int(n)))
	return n, nil
}

// CheckAssociation indica si el usuario en sesión tiene identidad para alias.
// Sin sesión retorna false.
func (a *Authenticator) CheckAssociation(ctx context.Context, guard Guard, alias string) (bool, error) {
	userID, err := CurrentUser(ctx, guard)
	if errors.Is(err, types.ErrNotAuthenticated) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = a.identities.ForUser(ctx, userID, alias)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Authenticator) runHandlers(ctx context.Context, res *Result) error {
	a.mu.RLock()
	handlers := append([]LoginHandler(nil), a.handlers...)
	a.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// CurrentUser retorna el usuario en sesión de guard. Sin guard o sin usuario
// retorna types.ErrNotAuthenticated.
func CurrentUser(ctx context.Context, guard Guard) (string, error) {
	if guard == nil {
		return "", types.ErrNotAuthenticated
	}
	userID, err := guard.UserID(ctx)
	if err != nil {
		return "", fmt.Errorf("auth: session: %w", err)
	}
	if userID == "" {
		return "", types.ErrNotAuthenticated
	}
	return userID, nil
}
