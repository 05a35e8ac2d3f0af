package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/audit"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

// AuditEvaluator writes an audit record and allows. The call is denied when
// the record cannot be written.
type AuditEvaluator struct {
	audit audit.Service
}

func NewAuditEvaluator(svc audit.Service) *AuditEvaluator {
	return &AuditEvaluator{audit: svc}
}

func (e *AuditEvaluator) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (pdp_model.EvaluationResponse, error) {
	if err := e.audit.LogDecision(ctx, auditEntry(audit.SourceGated, req)); err != nil {
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: audit write: %v", gw_errors.ErrPolicyUnreachable, err)
	}
	return pdp_model.EvaluationResponse{Outcome: pdp_model.OutcomeAllow}, nil
}

// Record logs an open call. Failures are logged only.
func (e *AuditEvaluator) Record(ctx context.Context, req *pdp_model.EvaluationRequest) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.audit.LogDecision(ctx, auditEntry(audit.SourceOpenCall, req)); err != nil {
		logger.Warn("Failed to record open call",
			zap.String("identity", req.CallerIdentity),
			zap.String("tool", req.ServiceName+"."+req.ToolName),
			zap.Error(err))
	}
}

func auditEntry(source string, req *pdp_model.EvaluationRequest) audit.DecisionLog {
	details, _ := json.Marshal(map[string]any{
		"argumentDigest": req.ArgumentDigest,
		"sessionId":      req.SessionID,
		"classification": req.Classification,
	})
	return audit.DecisionLog{
		Timestamp:      time.Now().UTC(),
		Source:         source,
		CallerIdentity: req.CallerIdentity,
		ServiceName:    req.ServiceName,
		ToolName:       req.ToolName,
		Decision:       string(pdp_model.OutcomeAllow),
		Details:        details,
	}
}
