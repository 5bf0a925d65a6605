package trendyol

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes callers branch on with errors.Is.
var (
	ErrUnauthorized       = errors.New("TRENDYOL_UNAUTHORIZED")
	ErrRateLimited        = errors.New("TRENDYOL_RATE_LIMITED")
	ErrUnexpectedResponse = errors.New("TRENDYOL_UNEXPECTED_RESPONSE")
)

// APIError is returned for any response with status >= 400.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string // truncated
}

func (e *APIError) Error() string {
	switch {
	case e.isAuth():
		return fmt.Sprintf("authentication/authorization failed for Trendyol API (%d): check API credentials and User-Agent format", e.StatusCode)
	case e.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("trendyol API still rate limited after %d retries (%s %s)", MaxRetries, e.Method, e.Path)
	default:
		return fmt.Sprintf("trendyol API request failed with %d: %s", e.StatusCode, e.Body)
	}
}

// Is maps the status code onto the package error classes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.isAuth()
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func (e *APIError) isAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
