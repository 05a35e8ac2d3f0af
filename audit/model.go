// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// Sources of a decision log entry.
const (
	SourceDecide   = "decide"
	SourceOpenCall = "open_call"
	SourceGated    = "gated"
)

type DecisionLog struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Source         string          `json:"source"`
	CallerIdentity string          `json:"caller_identity"`
	Method         string          `json:"method,omitempty"`
	ServiceName    string          `json:"service_name,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	Decision       string          `json:"decision"`
	Reason         string          `json:"reason,omitempty"`
	ApprovalID     string          `json:"approval_id,omitempty"`
	Revision       string          `json:"revision,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
}
