package logger

import (
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// ---- OAuth ----

// Alias es el nombre con el que se registró el provider ("spotify", "gh-enterprise").
func Alias(v string) zap.Field {
	return zap.String("alias", v)
}

// Provider es el driver del provider.
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// ProviderUserID es el id del usuario del lado del provider.
func ProviderUserID(v string) zap.Field {
	return zap.String("provider_user_id", v)
}

// UserID es el id del usuario local.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// IdentityID es el id de la fila de identidad.
func IdentityID(v string) zap.Field {
	return zap.String("identity_id", v)
}

// ---- Sistema ----

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (handler, service, provider, repository).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

func Count(v int) zap.Field {
	return zap.Int("count", v)
}

func String(key, v string) zap.Field {
	return zap.String(key, v)
}

func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
