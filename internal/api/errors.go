package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"

	domainerrors "github.com/communitymapper/community-mapper/internal/errors"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors. Unknown errors
// are logged in full and answered with a generic message.
// Call this after creating the huma.API but before serving requests.
func RegisterErrorHandler(logger *slog.Logger) {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		return toAPIError(status, message, errs...)
	}

	huma.NewErrorWithContext = func(hctx huma.Context, status int, message string, errs ...error) huma.StatusError {
		apiErr := toAPIError(status, message, errs...)
		if apiErr.status >= http.StatusInternalServerError && logger != nil {
			attrs := []any{"status", apiErr.status, "code", apiErr.Code, "error", errors.Join(errs...)}
			if hctx != nil {
				attrs = append(attrs,
					"method", hctx.Method(),
					"path", hctx.URL().Path,
					"request_id", middleware.GetReqID(hctx.Context()),
				)
			}
			logger.Error("request failed", attrs...)
		}
		return apiErr
	}
}

func toAPIError(status int, message string, errs ...error) *APIError {
	var details []*huma.ErrorDetail
	for _, err := range errs {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			apiErr := &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
			if domainErr.Code == domainerrors.CodeInternal {
				apiErr.Message = domainerrors.ErrInternal.Message
				apiErr.Details = nil
			}
			return apiErr
		}

		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			details = append(details, detail)
		}
	}

	// Schema violations are reported like service validation failures.
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	apiErr := &APIError{status: status, Code: statusToCode(status), Message: message}
	if len(details) > 0 {
		apiErr.Details = details
	}
	if status >= http.StatusInternalServerError {
		apiErr.Message = domainerrors.ErrInternal.Message
	}
	return apiErr
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeAlreadyExists)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeUnavailable)
	case http.StatusGatewayTimeout:
		return string(domainerrors.CodeTimeout)
	default:
		return string(domainerrors.CodeInternal)
	}
}
