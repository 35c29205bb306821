package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Validation errors
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeMissingField   = "MISSING_FIELD"
	ErrCodeUnknownAction  = "UNKNOWN_ACTION"
	ErrCodeInvalidRestore = "INVALID_CONFIRMATION"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"

	// Service errors
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeTimeout       = "TIMEOUT"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// errorBody wraps every error the action endpoint returns
type errorBody struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// RespondWithError sends an error response and stops the handler chain
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.AbortWithStatusJSON(statusCode, errorBody{Success: false, Error: err})
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// MissingField sends a 400 response naming the absent field
func MissingField(c *gin.Context, field string) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeMissingField,
		fmt.Sprintf("missing required field: %s", field), gin.H{"field": field}))
}

// UnknownAction sends a 400 response listing the accepted actions
func UnknownAction(c *gin.Context, action string, known []string) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeUnknownAction,
		fmt.Sprintf("unknown action: %q", action), gin.H{"actions": known}))
}

// InvalidConfirmation sends a 403 response for a restore without a valid confirmation
func InvalidConfirmation(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeInvalidRestore, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// Timeout sends a 504 response
func Timeout(c *gin.Context) {
	RespondWithError(c, http.StatusGatewayTimeout, NewAPIError(ErrCodeTimeout, "Request timed out"))
}

// InternalError sends a 500 response. The message must be safe to show to callers.
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
