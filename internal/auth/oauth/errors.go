package oauth

import "fmt"

// ConfigurationError means a required input or environment value was missing.
// It is raised before any network I/O so a bad request never reaches a vendor.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Field)
}

// CsrfValidationError means the callback state did not match a pending flow.
// The exchange is aborted without calling the vendor.
type CsrfValidationError struct {
	State string
}

func (e *CsrfValidationError) Error() string {
	return "oauth state mismatch: no pending authorization flow for state"
}

// TokenExchangeError means the vendor rejected the code exchange, or returned
// a 2xx payload missing required fields. Authorization codes are single-use,
// so a failed exchange is terminal; there is no retry.
type TokenExchangeError struct {
	Platform      string
	StatusCode    int
	VendorMessage string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed (status %d): %s", e.Platform, e.StatusCode, e.VendorMessage)
}

// TokenRefreshError means the vendor rejected a refresh request. Callers
// surface the integration as expired rather than retrying inline.
type TokenRefreshError struct {
	Platform      string
	StatusCode    int
	VendorMessage string
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("%s token refresh failed (status %d): %s", e.Platform, e.StatusCode, e.VendorMessage)
}

// PersistenceError means a token was obtained from the vendor but the record
// write failed. Surfaced distinctly: the user-visible symptom ("still shows
// disconnected") has a different remedy than an exchange failure.
type PersistenceError struct {
	Platform string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s integration obtained tokens but could not be saved: %v", e.Platform, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
