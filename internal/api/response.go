package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/ragpipe/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response. Code is one of the
// domain error codes when the failure came from the pipeline.
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

// ErrorToHTTP maps pipeline errors to HTTP status codes. Rate limits are
// checked before service errors since a RateLimitError unwraps to one.
func ErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case domain.IsConfigError(err):
		return http.StatusInternalServerError
	case domain.IsRateLimit(err):
		return http.StatusTooManyRequests
	case domain.IsServiceError(err):
		return http.StatusBadGateway
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeConfig, domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the domain error code carried by err, or "" when err
// is not a pipeline error.
func ErrorCode(err error) string {
	switch {
	case domain.IsConfigError(err):
		return domain.ErrCodeConfig
	case domain.IsRateLimit(err):
		return domain.ErrCodeRateLimited
	case domain.IsServiceError(err):
		return domain.ErrCodeService
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// HandleError writes an error response for err. Internal failures are
// reported without their details.
func HandleError(w http.ResponseWriter, err error) {
	status := ErrorToHTTP(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	JSON(w, status, ErrorResponse{Error: message, Code: ErrorCode(err)})
}
