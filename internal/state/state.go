// Package state genera y verifica el token anti-CSRF de cada intento de autorización.
//
// El token se guarda en la sesión del usuario al construir el redirect y se
// consume (siempre, coincida o no) al volver el callback.
package state

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
	"github.com/dropDatabas3/oauthlink/internal/metrics"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
)

// SessionKey es la key de sesión donde vive el state pendiente.
const SessionKey = "oauth_state"

const tokenBytes = 32

// Session es lo que el manager necesita de la sesión del request.
// *cache.Session lo implementa.
type Session interface {
	Put(ctx context.Context, key, value string) error
	Pull(ctx context.Context, key string) (string, bool, error)
}

// Manager genera y verifica states.
type Manager struct {
	random func([]byte) (int, error)
}

func New() *Manager {
	return &Manager{random: rand.Read}
}

// Generate crea un state nuevo, lo guarda en sess (pisando uno anterior) y lo retorna.
func (m *Manager) Generate(ctx context.Context, sess Session) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := m.random(buf); err != nil {
		return "", fmt.Errorf("state: random: %w", err)
	}
	st := base64.RawURLEncoding.EncodeToString(buf)
	if err := sess.Put(ctx, SessionKey, st); err != nil {
		return "", fmt.Errorf("state: store: %w", err)
	}
	return st, nil
}

// Verify compara got con el state guardado y lo consume.
// Un state ausente, vacío o distinto es types.ErrInvalidAuthorizationCode.
func (m *Manager) Verify(ctx context.Context, sess Session, got string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.state"))

	stored, ok, err := sess.Pull(ctx, SessionKey)
	if err != nil {
		metrics.StateVerifications.WithLabelValues("error").Inc()
		return fmt.Errorf("state: load: %w", err)
	}

	switch {
	case !ok || stored == "":
		metrics.StateVerifications.WithLabelValues("missing").Inc()
		log.Debug("no pending state in session")
		return fmt.Errorf("%w: no pending state", types.ErrInvalidAuthorizationCode)
	case got == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(got)) != 1:
		metrics.StateVerifications.WithLabelValues("mismatch").Inc()
		log.Debug("state mismatch")
		return fmt.Errorf("%w: state mismatch", types.ErrInvalidAuthorizationCode)
	}

	metrics.StateVerifications.WithLabelValues("ok").Inc()
	return nil
}
