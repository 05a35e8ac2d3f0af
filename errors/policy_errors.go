// errors/policy_errors.go
package errors

import "errors"

var (
	ErrInvalidPolicyData = errors.New("invalid policy data")
	ErrServiceNotFound   = errors.New("service not found")
	ErrRuleNotFound      = errors.New("access rule not found")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrInternalServer    = errors.New("internal server error")
	ErrUnauthorized      = errors.New("unauthorized")

	// ErrPolicyUnreachable marks a stateful decision service that timed out or
	// could not be reached. Callers treat it as a deny.
	ErrPolicyUnreachable = errors.New("policy decision service unreachable")

	// ErrSnapshotStale is returned when the last good snapshot is older than the
	// configured staleness ceiling, or the distributor could not be reached.
	ErrSnapshotStale = errors.New("policy snapshot stale")
	ErrNoSnapshot    = errors.New("no policy snapshot loaded")
)

// ErrInvalidRequest covers malformed query parameters and bodies.
var ErrInvalidRequest = errors.New("invalid request")
