package types

import (
	"errors"
	"fmt"
)

// Taxonomía de errores del flujo OAuth. Se comparan con errors.Is.
var (
	// ErrProviderNotRegistered: alias sin provider registrado (error de uso/config).
	ErrProviderNotRegistered = errors.New("oauth: provider not registered")

	// ErrInvalidAuthorizationCode: el provider rechazó el code/credenciales,
	// falló el transporte durante el intercambio o el state no verificó.
	ErrInvalidAuthorizationCode = errors.New("oauth: invalid authorization code")

	// ErrApplicationRejected: respuesta 2xx sin los campos de token requeridos
	// (típicamente el usuario revocó el acceso de la app).
	ErrApplicationRejected = errors.New("oauth: application rejected")

	// ErrInvalidConfiguration: falta configuración requerida del provider.
	ErrInvalidConfiguration = errors.New("oauth: invalid configuration")

	// ErrNotImplemented: el provider no soporta la capacidad pedida (ej: refresh).
	ErrNotImplemented = errors.New("oauth: not implemented")

	// ErrMissingRefreshToken: la identidad guardada no tiene refresh_token.
	ErrMissingRefreshToken = errors.New("oauth: missing refresh token")

	// ErrNotAuthenticated: la operación requiere un usuario local autenticado.
	ErrNotAuthenticated = errors.New("oauth: no authenticated user")
)

// ProviderError conserva el detalle de una falla contra el provider:
// status y body de la respuesta quedan disponibles para diagnóstico.
type ProviderError struct {
	Kind     error  // uno de los sentinels de arriba
	Provider string // nombre del provider
	Op       string // "token", "userinfo", "refresh", ...
	Status   int    // 0 si no hubo respuesta HTTP
	Body     string
	Err      error // causa (transporte, parseo), puede ser nil
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%v: %s %s", e.Kind, e.Provider, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Body != "" {
		msg += ": " + truncate(e.Body, 512)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap expone tanto el sentinel como la causa.
func (e *ProviderError) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsInvalidAuthorizationCode verifica si el error es ErrInvalidAuthorizationCode.
func IsInvalidAuthorizationCode(err error) bool {
	return errors.Is(err, ErrInvalidAuthorizationCode)
}

// IsApplicationRejected verifica si el error es ErrApplicationRejected.
func IsApplicationRejected(err error) bool {
	return errors.Is(err, ErrApplicationRejected)
}

// IsProviderNotRegistered verifica si el error es ErrProviderNotRegistered.
func IsProviderNotRegistered(err error) bool {
	return errors.Is(err, ErrProviderNotRegistered)
}

// IsNotImplemented verifica si el error es ErrNotImplemented.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}
