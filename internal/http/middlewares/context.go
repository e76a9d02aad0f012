package middlewares

import (
	"context"

	"github.com/dropDatabas3/oauthlink/internal/cache"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxSessionKey   ctxKey = "session"
	ctxClientIPKey  ctxKey = "client_ip"
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

func setSession(ctx context.Context, sess *cache.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, sess)
}

func setClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey, ip)
}

// GetClientIP obtiene la IP resuelta por WithClientIP ("" si no se aplicó).
func GetClientIP(ctx context.Context) string {
	if s, ok := ctx.Value(ctxClientIPKey).(string); ok {
		return s
	}
	return ""
}

// GetRequestID obtiene el request ID del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}

// GetSession obtiene la sesión del request.
// Retorna nil si WithSession no se aplicó.
func GetSession(ctx context.Context) *cache.Session {
	if s, ok := ctx.Value(ctxSessionKey).(*cache.Session); ok {
		return s
	}
	return nil
}
