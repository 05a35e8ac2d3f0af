package model

import (
	"encoding/json"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// DecideRequest is what a gateway sends for one intercepted message: the
// caller it authenticated and the JSON-RPC message as received.
type DecideRequest struct {
	Caller    Caller     `json:"caller"`
	Message   RPCMessage `json:"message" binding:"required"`
	SessionID string     `json:"session_id,omitempty"`
}

type Caller struct {
	Identity string         `json:"identity"`
	Claims   map[string]any `json:"claims,omitempty"`
}

type RPCMessage struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method" binding:"required"`
	Params  ToolCallParams  `json:"params"`
	// Raw is the message exactly as received.
	Raw     json.RawMessage `json:"-"`
}

func (m *RPCMessage) UnmarshalJSON(data []byte) error {
	type plain RPCMessage
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = RPCMessage(p)
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ToolCallParams holds the params of a tools/call message. Name is the
// qualified "service.tool" name.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallRequest converts the message into the decision point's input.
func (r *DecideRequest) ToolCallRequest() *model.ToolCallRequest {
	return &model.ToolCallRequest{
		Method:         r.Message.Method,
		CallerIdentity: r.Caller.Identity,
		CallerClaims:   r.Caller.Claims,
		QualifiedTool:  r.Message.Params.Name,
		Arguments:      r.Message.Params.Arguments,
		Payload:        r.Message.Raw,
		SessionID:      r.SessionID,
	}
}
