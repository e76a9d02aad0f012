// Package errors define el formato de error de la API HTTP y el mapeo desde
// los errores de dominio del login social.
package errors

import (
	"fmt"
	"net/http"
)

// AppError es el error estándar que ve el cliente HTTP.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithDetail devuelve una COPIA con detalle (no muta las variables base).
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidAuthorizationCode = &AppError{
		Code:       "INVALID_AUTHORIZATION_CODE",
		Message:    "El provider rechazó el código de autorización o el state no es válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNotAuthenticated = &AppError{
		Code:       "NOT_AUTHENTICATED",
		Message:    "Se requiere un usuario autenticado.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrApplicationRejected = &AppError{
		Code:       "APPLICATION_REJECTED",
		Message:    "El provider no entregó un token válido para la aplicación.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrProviderNotRegistered = &AppError{
		Code:       "PROVIDER_NOT_REGISTERED",
		Message:    "No hay un provider registrado con ese alias.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "La identidad ya está vinculada.",
		HTTPStatus: http.StatusConflict,
	}

	ErrMissingRefreshToken = &AppError{
		Code:       "MISSING_REFRESH_TOKEN",
		Message:    "La identidad no tiene refresh token.",
		HTTPStatus: http.StatusConflict,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Demasiados intentos. Reintentá más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error inesperado en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrNotImplemented = &AppError{
		Code:       "NOT_IMPLEMENTED",
		Message:    "El provider no soporta esta operación.",
		HTTPStatus: http.StatusNotImplemented,
	}

	ErrInvalidConfiguration = &AppError{
		Code:       "PROVIDER_MISCONFIGURED",
		Message:    "El provider no está bien configurado.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
