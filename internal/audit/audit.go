// Package audit registra eventos de auditoría del login social como logs
// estructurados (logger "audit"). Más adelante puede ir a una tabla o sink externo.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/oauthlink/internal/auth"
	"github.com/dropDatabas3/oauthlink/internal/observability/logger"
	"github.com/dropDatabas3/oauthlink/internal/util"
)

// Event names.
const (
	EventLogin = "oauth.login"
)

type Logger struct {
	log *zap.Logger
}

// New crea un audit logger sobre l (logger.L() si es nil).
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = logger.L()
	}
	return &Logger{log: l.Named("audit")}
}

// Log escribe un evento.
func (a *Logger) Log(_ context.Context, event string, fields ...zap.Field) {
	a.log.Info(event, append([]zap.Field{logger.String("event", event)}, fields...)...)
}

// OnLogin es un auth.LoginHandler que audita cada login exitoso.
// Nunca corta la cadena de handlers.
func (a *Logger) OnLogin(ctx context.Context, res *auth.Result) error {
	fields := []zap.Field{
		logger.UserID(res.User.ID),
		logger.Bool("new_user", res.NewUser),
	}
	if res.Identity != nil {
		fields = append(fields,
			logger.Alias(res.Identity.Provider),
			logger.IdentityID(res.Identity.ID),
			logger.ProviderUserID(res.Identity.ProviderUserID),
		)
	}
	if res.Details != nil && res.Details.Email != "" {
		fields = append(fields, logger.String("email", util.MaskEmail(res.Details.Email)))
	}
	a.Log(ctx, EventLogin, fields...)
	return nil
}
