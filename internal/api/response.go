package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/telemetry"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Server errors are logged, reported to Sentry and answered with a generic
// message.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status := DomainErrorToHTTP(err)

	var domainErr *domain.DomainError
	code := domain.ErrCodeInternalError
	message := http.StatusText(http.StatusInternalServerError)
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		if status < http.StatusInternalServerError {
			message = domainErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		slog.Default().ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", code,
			"error", err,
		)
		telemetry.CaptureError(r.Context(), err)
	}

	JSON(w, status, ErrorResponse{Error: message, Code: code})
}
