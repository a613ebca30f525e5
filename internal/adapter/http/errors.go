package http

import (
	"errors"
	"net/http"

	"github.com/contractflow/contractflow/internal/adapter/http/response"
	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/usecase"
)

// writeError maps a use case failure to its HTTP status. Anything outside
// the domain taxonomy is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials), errors.Is(err, usecase.ErrUnauthenticated):
		response.Unauthorized(w, err.Error())
		return
	case errors.Is(err, usecase.ErrTooManyAttempts):
		response.TooManyRequests(w, err.Error())
		return
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		response.NotFound(w, domain.MessageOf(err))
	case domain.KindForbidden:
		response.Forbidden(w, domain.MessageOf(err))
	case domain.KindInvalidState:
		response.BadRequest(w, domain.MessageOf(err))
	case domain.KindConflict:
		response.Conflict(w, domain.MessageOf(err))
	case domain.KindValidation:
		response.UnprocessableEntity(w, domain.MessageOf(err))
	default:
		log.Error(r.Context(), "Request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		response.InternalServerError(w, "Internal server error")
	}
}
