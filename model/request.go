// model/request.go
package model

import (
	"encoding/json"
	"strings"
)

// Control methods bypass catalog and rule checks for authenticated callers.
const (
	MethodToolCall         = "tools/call"
	MethodInitialize       = "initialize"
	MethodInitialized      = "notifications/initialized"
	MethodToolsList        = "tools/list"
	MethodPing             = "ping"
	MethodResourcesList    = "resources/list"
	MethodPromptsList      = "prompts/list"
	qualifiedToolSeparator = "."
)

var controlMethods = map[string]struct{}{
	MethodInitialize:    {},
	MethodInitialized:   {},
	MethodToolsList:     {},
	MethodPing:          {},
	MethodResourcesList: {},
	MethodPromptsList:   {},
}

// ToolCallRequest is built per request by the transport layer.
type ToolCallRequest struct {
	Method         string          `json:"method,omitempty"`
	CallerIdentity string          `json:"caller_identity"`
	CallerClaims   map[string]any  `json:"caller_claims,omitempty"`
	QualifiedTool  string          `json:"tool,omitempty"`
	ServiceName    string          `json:"service_name,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	Arguments      json.RawMessage `json:"arguments,omitempty"`
	// Payload is the JSON-RPC message as received, replayed verbatim after approval.
	Payload        json.RawMessage `json:"payload,omitempty"`
	SessionID      string          `json:"session_id,omitempty"`
}

// ReplayPayload returns the received message, or a tools/call message rebuilt
// from the request when the transport did not keep the original.
func (r *ToolCallRequest) ReplayPayload() json.RawMessage {
	if len(r.Payload) > 0 {
		return r.Payload
	}
	msg := struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments,omitempty"`
		} `json:"params"`
	}{JSONRPC: "2.0", Method: MethodToolCall}
	msg.Params.Name = r.QualifiedTool
	if msg.Params.Name == "" && r.ServiceName != "" {
		msg.Params.Name = r.ServiceName + qualifiedToolSeparator + r.ToolName
	}
	msg.Params.Arguments = r.Arguments
	b, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	return b
}

// IsControl reports whether the request is a handshake/listing/liveness call.
func (r *ToolCallRequest) IsControl() bool {
	_, ok := controlMethods[r.Method]
	return ok
}

// Target returns the service and tool names, splitting QualifiedTool at the
// first separator when they were not set explicitly.
func (r *ToolCallRequest) Target() (service, tool string, ok bool) {
	if r.ServiceName != "" && r.ToolName != "" {
		return r.ServiceName, r.ToolName, true
	}
	return SplitQualifiedTool(r.QualifiedTool)
}

// SplitQualifiedTool splits "service.tool" at the first separator.
func SplitQualifiedTool(qualified string) (service, tool string, ok bool) {
	service, tool, ok = strings.Cut(qualified, qualifiedToolSeparator)
	if !ok || service == "" || tool == "" {
		return "", "", false
	}
	return service, tool, true
}
