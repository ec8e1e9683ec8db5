package mixer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the error body returned by the Mixer API.
type APIError struct {
	StatusCode int    `json:"statusCode" yaml:"statusCode"`
	Err        string `json:"error"      yaml:"error"`
	Message    string `json:"message"    yaml:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status: %d)", e.Err, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Err, e.Message, e.StatusCode)
}

// StatusCodeError is returned by a RequestRunner when the API answers with a
// non-2xx status.
type StatusCodeError struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Request    *RequestOptions
	// API is the decoded error body, nil when the body was not a Mixer error.
	API *APIError
}

// Error implements the error interface.
func (e *StatusCodeError) Error() string {
	method, url := "", ""
	if e.Request != nil {
		method, url = e.Request.Method, e.Request.URL
	}

	if e.API != nil {
		return fmt.Sprintf("%s %s: %s", method, url, e.API.Error())
	}

	return fmt.Sprintf("%s %s: unexpected status %d", method, url, e.StatusCode)
}

// Unwrap exposes the decoded API error to errors.As.
func (e *StatusCodeError) Unwrap() error {
	if e.API == nil {
		return nil
	}

	return e.API
}

// NewStatusCodeError builds a StatusCodeError, decoding body when it holds a
// Mixer error document.
func NewStatusCodeError(statusCode int, headers http.Header, body []byte, req *RequestOptions) *StatusCodeError {
	out := &StatusCodeError{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		Request:    req,
	}

	apiErr, err := ParseAPIError(body)
	if err == nil && (apiErr.Err != "" || apiErr.Message != "") {
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = statusCode
		}

		out.API = apiErr
	}

	return out
}

// ParseAPIError parses a Mixer error document.
func ParseAPIError(data []byte) (*APIError, error) {
	var apiErr APIError

	err := json.Unmarshal(data, &apiErr)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal API error: %w", err)
	}

	return &apiErr, nil
}

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrInvalidConfig       = errors.New("invalid client configuration")
	ErrCircuitBreakerOpen  = errors.New("circuit breaker is open")
	ErrKeyNotFound         = errors.New("key not found")
	ErrEntryExpired        = errors.New("entry expired")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrNoRefreshToken      = errors.New("no refresh token available")
	ErrUnsupportedBodyType = errors.New("unsupported request body type")
)

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusCodeError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	return 0
}

// IsUnauthorized checks if the error is a 401 from the API.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a 403 from the API.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound checks if the error is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsRateLimited checks if the error is a 429 from the API.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}
