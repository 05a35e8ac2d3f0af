package model

import "fmt"

// Effect is the outcome of a decision.
type Effect string

const (
	EffectAllow   Effect = "allow"
	EffectDeny    Effect = "deny"
	EffectPending Effect = "pending"
)

// ReasonCode is a machine-readable deny reason. Codes under "system degraded"
// are distinguishable from explicit denies for auditing.
type ReasonCode string

const (
	ReasonNone                 ReasonCode = ""
	ReasonNoSnapshot           ReasonCode = "no_snapshot"
	ReasonSnapshotStale        ReasonCode = "snapshot_stale"
	ReasonUnauthenticated      ReasonCode = "unauthenticated"
	ReasonRevoked              ReasonCode = "revoked"
	ReasonInvalidTool          ReasonCode = "invalid_tool"
	ReasonUnsupportedMethod    ReasonCode = "unsupported_method"
	ReasonServiceUnknown       ReasonCode = "service_unknown"
	ReasonServiceDisabled      ReasonCode = "service_disabled"
	ReasonServiceSuspended     ReasonCode = "service_suspended"
	ReasonToolUnknown          ReasonCode = "tool_unknown"
	ReasonNoMatchingRule       ReasonCode = "no_matching_rule"
	ReasonEvaluatorDenied      ReasonCode = "evaluator_denied"
	ReasonEvaluatorUnreachable ReasonCode = "evaluator_unreachable"
	ReasonEvaluatorMissing     ReasonCode = "evaluator_missing"
)

// Degraded reports whether the reason stems from a failing dependency rather
// than an explicit policy deny.
func (r ReasonCode) Degraded() bool {
	switch r {
	case ReasonNoSnapshot, ReasonSnapshotStale, ReasonEvaluatorUnreachable, ReasonEvaluatorMissing:
		return true
	default:
		return false
	}
}

// Decision is what the PDP returns for one request.
type Decision struct {
	Effect     Effect     `json:"decision"`
	Reason     ReasonCode `json:"reason,omitempty"`
	Message    string     `json:"message,omitempty"`
	ApprovalID string     `json:"approval_id,omitempty"`
	Identity   string     `json:"identity,omitempty"`
	Service    string     `json:"service,omitempty"`
	Tool       string     `json:"tool,omitempty"`
	RuleIDs    []string   `json:"rule_ids,omitempty"`
	Revision   string     `json:"revision,omitempty"`
	// Executed is set when an approved call is replayed by the decision point
	// itself and must not be forwarded by the gateway.
	Executed   bool       `json:"executed,omitempty"`
}

func Allow() Decision {
	return Decision{Effect: EffectAllow}
}

func Deny(reason ReasonCode, format string, args ...any) Decision {
	return Decision{Effect: EffectDeny, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func Pending(approvalID string) Decision {
	return Decision{Effect: EffectPending, ApprovalID: approvalID}
}

func (d Decision) Allowed() bool { return d.Effect == EffectAllow }

func (d Decision) Denied() bool { return d.Effect == EffectDeny }

func (d Decision) IsPending() bool { return d.Effect == EffectPending }

// Response headers carrying the decision to the transport layer.
const (
	HeaderDecision         = "X-Decision"
	HeaderDenyReason       = "X-Deny-Reason"
	HeaderApprovalID       = "X-Approval-Id"
	HeaderResolvedIdentity = "X-Resolved-Identity"
	HeaderResolvedService  = "X-Resolved-Service"
	HeaderApprovalExecuted = "X-Approval-Executed"
)

// ResponseHeaders returns the headers that describe d. Empty values are omitted.
func (d Decision) ResponseHeaders() map[string]string {
	h := map[string]string{HeaderDecision: string(d.Effect)}
	if d.Reason != ReasonNone {
		h[HeaderDenyReason] = string(d.Reason)
	}
	if d.ApprovalID != "" {
		h[HeaderApprovalID] = d.ApprovalID
	}
	if d.Identity != "" {
		h[HeaderResolvedIdentity] = d.Identity
	}
	if d.Service != "" {
		h[HeaderResolvedService] = d.Service
	}
	if d.Executed {
		h[HeaderApprovalExecuted] = "true"
	}
	return h
}
