// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Machine-readable error codes.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeValidation        = "validation_failed"
	CodeInsufficientStock = "insufficient_stock"
	CodeInvalidMovement   = "invalid_movement"
	CodeInvalidTransition = "invalid_transition"
	CodeUnresolvedLine    = "unresolved_line"
	CodeLineNotFound      = "line_not_found"
	CodeConflict          = "conflict"
	CodeAlreadyExists     = "already_exists"
	CodeLocationNotEmpty  = "location_not_empty"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal_error"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Retryable is set only when repeating the identical request may succeed.
type APIError struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

func New(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

func NewRetryable(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code, Retryable: true}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "request validation failed", Code: CodeValidation, Fields: fields}
}
