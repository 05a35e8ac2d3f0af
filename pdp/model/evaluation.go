package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EvaluationRequest is the contract input of a stateful decision service.
type EvaluationRequest struct {
	ToolName         string            `json:"toolName"`
	CallerIdentity   string            `json:"callerIdentity"`
	SessionID        string            `json:"sessionId,omitempty"`
	Classification   map[string]string `json:"classification,omitempty"`
	ArgumentDigest   string            `json:"argumentDigest"`
	ApproversAllowed []string          `json:"approversAllowed,omitempty"`
	RequestPayload   json.RawMessage   `json:"requestPayload,omitempty"`
	ServiceName      string            `json:"serviceName"`
}

// Outcome of a stateful evaluation.
type Outcome string

const (
	OutcomeAllow   Outcome = "allow"
	OutcomeDeny    Outcome = "deny"
	OutcomePending Outcome = "pending"
)

// EvaluationResponse is the contract output: allow, deny or pending:<id>.
type EvaluationResponse struct {
	Outcome    Outcome
	ApprovalID string
	Reason     string
	// Executed marks an allow whose call was handed to store-and-forward
	// replay. The gateway must not forward it again.
	Executed   bool
}

func (r EvaluationResponse) String() string {
	if r.Outcome == OutcomePending {
		return string(OutcomePending) + ":" + r.ApprovalID
	}
	return string(r.Outcome)
}

// ParseEvaluationResponse parses the wire form "allow", "deny" or "pending:<id>".
func ParseEvaluationResponse(s string) (EvaluationResponse, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == string(OutcomeAllow):
		return EvaluationResponse{Outcome: OutcomeAllow}, nil
	case s == string(OutcomeDeny):
		return EvaluationResponse{Outcome: OutcomeDeny}, nil
	case strings.HasPrefix(s, string(OutcomePending)+":"):
		id := strings.TrimPrefix(s, string(OutcomePending)+":")
		if id == "" {
			return EvaluationResponse{}, fmt.Errorf("pending response without approval id")
		}
		return EvaluationResponse{Outcome: OutcomePending, ApprovalID: id}, nil
	default:
		return EvaluationResponse{}, fmt.Errorf("unrecognized evaluation response %q", s)
	}
}
