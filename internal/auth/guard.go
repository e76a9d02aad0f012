package auth

import (
	"context"
)

// UserSessionKey es la key de sesión con el id del usuario local autenticado.
const UserSessionKey = "user_id"

// Guard resuelve y fija el usuario local autenticado del request.
type Guard interface {
	// UserID retorna el usuario actual, "" si no hay sesión iniciada.
	UserID(ctx context.Context) (string, error)

	// Login inicia sesión como userID.
	Login(ctx context.Context, userID string) error
}

// Session es el subconjunto de la sesión que usa SessionGuard.
// *cache.Session lo implementa.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Forget(ctx context.Context, key string) error
}

type regenerator interface {
	Regenerate(ctx context.Context, keep ...string) error
}

// SessionGuard guarda el usuario actual en la sesión bajo UserSessionKey.
type SessionGuard struct {
	sess Session
}

func NewSessionGuard(sess Session) *SessionGuard {
	return &SessionGuard{sess: sess}
}

func (g *SessionGuard) UserID(ctx context.Context) (string, error) {
	id, _, err := g.sess.Get(ctx, UserSessionKey)
	return id, err
}

// Login fija userID en la sesión. Si la sesión sabe regenerarse
// (*cache.Session) pasa antes a un id nuevo: un id fijado por un tercero
// nunca queda autenticado.
func (g *SessionGuard) Login(ctx context.Context, userID string) error {
	if r, ok := g.sess.(regenerator); ok {
		if err := g.sess.Forget(ctx, UserSessionKey); err != nil {
			return err
		}
		if err := r.Regenerate(ctx); err != nil {
			return err
		}
	}
	return g.sess.Put(ctx, UserSessionKey, userID)
}

// Logout cierra la sesión del usuario local y, si se puede, rota el id.
func (g *SessionGuard) Logout(ctx context.Context) error {
	if err := g.sess.Forget(ctx, UserSessionKey); err != nil {
		return err
	}
	if r, ok := g.sess.(regenerator); ok {
		return r.Regenerate(ctx)
	}
	return nil
}
