package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/services"
	"github.com/opsdesk/opsdesk/utils"
)

// HandleServiceError maps domain errors to HTTP responses. Upstream
// availability failures on verification paths map to 401, never to a grant;
// the mirror-image fail-open lives in the rate limiter alone.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsUnauthenticatedError(err):
		if err := utils.WriteUnauthorized(w, err.Error()); err != nil {
			logger.Error("failed to write unauthorized response", zap.Error(err))
		}

	case services.IsForbiddenError(err):
		if err := utils.WriteForbidden(w, err.Error()); err != nil {
			logger.Error("failed to write forbidden response", zap.Error(err))
		}

	case services.IsRateLimitError(err):
		if err := utils.WriteTooManyRequests(w, err.Error(), details); err != nil {
			logger.Error("failed to write rate limit response", zap.Error(err))
		}

	case services.IsUnavailableError(err):
		if err := utils.WriteUnauthorized(w, "Authentication unavailable"); err != nil {
			logger.Error("failed to write unauthorized response", zap.Error(err))
		}

	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	default:
		logger.Error("unhandled service error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, ""); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}
