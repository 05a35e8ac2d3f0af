// errors/approval_errors.go
package errors

import "errors"

var (
	ErrApprovalNotFound     = errors.New("approval not found")
	ErrApproverNotAllowed   = errors.New("approver not allowed for this approval")
	ErrInvalidApprovalState = errors.New("invalid approval state transition")
	ErrReplayBackend        = errors.New("replay backend error")
	ErrLockNotAcquired      = errors.New("lock not acquired")
)
