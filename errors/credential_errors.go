// errors/credential_errors.go
package errors

import "errors"

var (
	// ErrConfiguration covers missing credential or catalog definitions. Not retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrCredentialFetch means the secret store was unavailable. Retryable by the caller.
	ErrCredentialFetch = errors.New("credential fetch failed")
	// ErrTokenRefresh means an OAuth token exchange failed; the stored token pair is unchanged.
	ErrTokenRefresh = errors.New("token refresh failed")
)
