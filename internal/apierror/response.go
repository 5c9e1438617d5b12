package apierror

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
)

// ContentTypeProblemJSON is the MIME type for RFC 9457 Problem Details.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes a ProblemDetails response and aborts the chain.
// Instance defaults to the request path; RetryAfter is mirrored in the
// Retry-After header.
func WriteProblem(c *gin.Context, problem *ProblemDetails) {
	if problem.Instance == "" && c.Request != nil {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	if problem.RetryAfter != nil {
		c.Header("Retry-After", strconv.Itoa(*problem.RetryAfter))
	}
	c.AbortWithStatusJSON(problem.Status, problem)
}

// GetRequestID extracts the request ID from the gin context.
// Returns empty string if not found.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	if c.Request == nil {
		return ""
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// NewValidationError creates a 400 response listing every invalid field.
func NewValidationError(requestID string, errors []FieldError) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeValidation,
		Title:       TitleValidation,
		Status:      http.StatusBadRequest,
		Detail:      "One or more fields failed validation",
		RequestID:   requestID,
		UserMessage: "Please check your input and try again",
		Errors:      errors,
	}
}

// NewBadRequestError creates a 400 Bad Request response for malformed requests.
func NewBadRequestError(requestID, detail, userMessage string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeBadRequest,
		Title:       TitleBadRequest,
		Status:      http.StatusBadRequest,
		Detail:      detail,
		RequestID:   requestID,
		UserMessage: userMessage,
	}
}

// NewInvalidTimezoneError creates a 400 response for an unknown timezone.
func NewInvalidTimezoneError(requestID, field, value string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeInvalidTimezone,
		Title:       TitleInvalidTimezone,
		Status:      http.StatusBadRequest,
		Detail:      fmt.Sprintf("Unknown timezone for field '%s': '%s'", field, value),
		RequestID:   requestID,
		UserMessage: "The timezone is not recognized",
		Errors: []FieldError{
			{Field: field, Message: "must be an IANA zone name or a UTC offset like +05:30", Code: "invalid_timezone"},
		},
	}
}

// NewInvalidTimestampError creates a 400 response for a malformed instant.
func NewInvalidTimestampError(requestID, field, value string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeInvalidTimestamp,
		Title:       TitleInvalidTimestamp,
		Status:      http.StatusBadRequest,
		Detail:      fmt.Sprintf("Invalid RFC 3339 timestamp for field '%s': '%s'", field, value),
		RequestID:   requestID,
		UserMessage: "The timestamp could not be read",
		Errors: []FieldError{
			{Field: field, Message: "must be an RFC 3339 timestamp", Code: "invalid_timestamp"},
		},
	}
}

// NewUnauthorizedError creates a 401 response for requests without a user.
func NewUnauthorizedError(requestID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeUnauthorized,
		Title:       TitleUnauthorized,
		Status:      http.StatusUnauthorized,
		Detail:      "The X-User-ID header is required",
		RequestID:   requestID,
		UserMessage: "Please sign in to continue",
	}
}

// NewNotFoundError creates a 404 Not Found response.
func NewNotFoundError(requestID, resource, id string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeNotFound,
		Title:       TitleNotFound,
		Status:      http.StatusNotFound,
		Detail:      fmt.Sprintf("%s '%s' was not found", resource, id),
		RequestID:   requestID,
		UserMessage: fmt.Sprintf("The requested %s could not be found", resource),
	}
}

// NewPayloadTooLargeError creates a 413 response for oversized batches.
func NewPayloadTooLargeError(requestID string, got, limit int) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypePayloadTooLarge,
		Title:       TitlePayloadTooLarge,
		Status:      http.StatusRequestEntityTooLarge,
		Detail:      fmt.Sprintf("Batch of %d events exceeds the limit of %d", got, limit),
		RequestID:   requestID,
		UserMessage: "Too many events in one request. Please send smaller batches.",
	}
}

// NewRateLimitError creates a 429 Too Many Requests response.
// retryAfter specifies seconds until the client should retry.
func NewRateLimitError(requestID string, retryAfter int) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeRateLimit,
		Title:       TitleRateLimit,
		Status:      http.StatusTooManyRequests,
		Detail:      fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds", retryAfter),
		RequestID:   requestID,
		UserMessage: "Too many requests. Please wait before trying again.",
		RetryAfter:  &retryAfter,
	}
}

// NewInternalError creates a 500 Internal Server Error response.
// Internal details are never exposed; log the cause server-side.
func NewInternalError(requestID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeInternal,
		Title:       TitleInternal,
		Status:      http.StatusInternalServerError,
		Detail:      "An unexpected error occurred",
		RequestID:   requestID,
		UserMessage: "Something went wrong. Please try again later.",
	}
}
