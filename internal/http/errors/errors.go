package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// FromError convierte cualquier error en un AppError.
// Los errores de dominio se mapean a su status; el resto es 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var base *AppError
	switch {
	case types.IsProviderNotRegistered(err):
		base = ErrProviderNotRegistered
	case types.IsInvalidAuthorizationCode(err):
		base = ErrInvalidAuthorizationCode
	case types.IsApplicationRejected(err):
		base = ErrApplicationRejected
	case stderrors.Is(err, types.ErrNotAuthenticated):
		base = ErrNotAuthenticated
	case types.IsNotImplemented(err):
		base = ErrNotImplemented
	case stderrors.Is(err, types.ErrMissingRefreshToken):
		base = ErrMissingRefreshToken
	case stderrors.Is(err, types.ErrInvalidConfiguration):
		base = ErrInvalidConfiguration
	case repository.IsNotFound(err):
		base = ErrNotFound
	case repository.IsConflict(err):
		base = ErrConflict
	case stderrors.Is(err, repository.ErrInvalidInput):
		base = ErrBadRequest
	default:
		return ErrInternalServerError.WithCause(err)
	}

	out := base.WithCause(err)
	var perr *types.ProviderError
	if stderrors.As(err, &perr) {
		// el body de la respuesta del provider no se expone, salvo en el
		// callback donde viene del propio request (error_description)
		out.Detail = perr.Provider + " " + perr.Op
		if perr.Op == "callback" && perr.Body != "" {
			out.Detail += ": " + perr.Body
		}
	}
	return out
}

// WriteError escribe la respuesta JSON {code, message, detail}.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
