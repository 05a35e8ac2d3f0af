package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/audit"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
	gw_mock "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/test/mock"
)

func TestAuditEvaluator(t *testing.T) {
	svc := new(gw_mock.MockAuditService)
	ev := NewAuditEvaluator(svc)
	req := &pdp_model.EvaluationRequest{CallerIdentity: "bob", ServiceName: "crm", ToolName: "update"}

	svc.On("LogDecision", mock.Anything, mock.MatchedBy(func(l audit.DecisionLog) bool {
		return l.Source == audit.SourceGated && l.ToolName == "update"
	})).Return(nil).Once()

	resp, err := ev.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomeAllow, resp.Outcome)

	svc.On("LogDecision", mock.Anything, mock.Anything).Return(errors.New("es down")).Once()
	_, err = ev.Evaluate(context.Background(), req)
	assert.True(t, errors.Is(err, gw_errors.ErrPolicyUnreachable))

	svc.On("LogDecision", mock.Anything, mock.MatchedBy(func(l audit.DecisionLog) bool {
		return l.Source == audit.SourceOpenCall
	})).Return(errors.New("es down")).Once()
	ev.Record(context.Background(), req)

	svc.AssertExpectations(t)
}
