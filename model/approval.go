// model/approval.go
package model

import (
	"encoding/json"
	"time"
)

// ApprovalStatus is the human decision on a pending approval.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// ExecutionStatus tracks store-and-forward replay of an approved call.
type ExecutionStatus string

const (
	ExecutionNone      ExecutionStatus = "none"
	ExecutionQueued    ExecutionStatus = "queued"
	ExecutionInFlight  ExecutionStatus = "in_flight"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// PendingApproval is one human-gated decision. At most one unconsumed record
// exists per LookupKey; once consumed the key is free for a new cycle.
type PendingApproval struct {
	ApprovalID      string          `json:"approval_id"`
	Sequence        int64           `json:"sequence"`
	LookupKey       string          `json:"lookup_key"`
	Status          ApprovalStatus  `json:"status"`
	ExecutionStatus ExecutionStatus `json:"execution_status"`
	Approvers       []string        `json:"approvers,omitempty"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ServiceName     string          `json:"service_name"`
	ToolName        string          `json:"tool_name"`
	CallerIdentity  string          `json:"caller_identity"`
	SessionID       string          `json:"session_id,omitempty"`
	DecidedBy       string          `json:"decided_by,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	ExecutionResult json.RawMessage `json:"execution_result,omitempty"`
	ExecutionError  string          `json:"execution_error,omitempty"`
	Consumed        bool            `json:"consumed"`
	CreatedAt       time.Time       `json:"created_at"`
	DecidedAt       *time.Time      `json:"decided_at,omitempty"`
	ConsumedAt      *time.Time      `json:"consumed_at,omitempty"`
	ExecutedAt      *time.Time      `json:"executed_at,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

// Expired reports whether a pending record has passed its expiry.
func (a *PendingApproval) Expired(now time.Time) bool {
	return a.Status == ApprovalPending && a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// ApproverAllowed reports whether approver may decide this record.
// An empty approver list admits any authorized approver.
func (a *PendingApproval) ApproverAllowed(approver string) bool {
	if len(a.Approvers) == 0 {
		return true
	}
	for _, x := range a.Approvers {
		if x == approver {
			return true
		}
	}
	return false
}

// ExecutionResult is what getExecutionResult reports for an approval.
type ExecutionResult struct {
	ApprovalID      string          `json:"approval_id"`
	ExecutionStatus ExecutionStatus `json:"execution_status"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	ExecutedAt      *time.Time      `json:"executed_at,omitempty"`
}
