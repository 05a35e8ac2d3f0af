// service/decision_service.go
package service

import (
	"context"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/audit"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

// IDecisionService decides intercepted tool calls.
type IDecisionService interface {
	Decide(ctx context.Context, req *model.ToolCallRequest) (pdp_model.Decision, error)
}

// Decider is implemented by engine.PolicyEvaluator.
type Decider interface {
	Decide(ctx context.Context, req *model.ToolCallRequest) (pdp_model.Decision, error)
}

// DecisionService decides requests and records every decision in the audit
// trail without delaying the response.
type DecisionService struct {
	decider      Decider
	auditService audit.Service
}

var _ IDecisionService = &DecisionService{}

func NewDecisionService(decider Decider, auditService audit.Service) *DecisionService {
	return &DecisionService{decider: decider, auditService: auditService}
}

func (s *DecisionService) Decide(ctx context.Context, req *model.ToolCallRequest) (pdp_model.Decision, error) {
	decision, err := s.decider.Decide(ctx, req)
	if s.auditService != nil {
		s.auditService.LogDecisionAsync(audit.DecisionLog{
			Source:         audit.SourceDecide,
			CallerIdentity: req.CallerIdentity,
			Method:         req.Method,
			ServiceName:    decision.Service,
			ToolName:       decision.Tool,
			Decision:       string(decision.Effect),
			Reason:         string(decision.Reason),
			ApprovalID:     decision.ApprovalID,
			Revision:       decision.Revision,
		})
	}
	return decision, err
}
