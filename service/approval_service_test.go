package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/approval"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

func TestApprovalServiceListing(t *testing.T) {
	bus := util.NewEventBus()
	engine := approval.NewEngine(approval.NewMemoryStore(), approval.NewMemoryLocker(), bus, approval.Options{ReplayEnabled: true})
	svc := NewApprovalService(engine, util.NewNotificationService(), bus)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := engine.Evaluate(ctx, &pdp_model.EvaluationRequest{
			ToolName:       "send",
			ServiceName:    "mail",
			CallerIdentity: "bob",
			ArgumentDigest: fmt.Sprintf("d%d", i),
			RequestPayload: json.RawMessage(`{}`),
		})
		require.NoError(t, err)
	}

	page, total, err := svc.ListApprovals(ctx, StatusPending, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "APR-2", page[0].ApprovalID)

	_, err = svc.Approve(ctx, "APR-1", "carol")
	require.NoError(t, err)

	queued, total, err := svc.ListApprovals(ctx, StatusQueued, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "APR-1", queued[0].ApprovalID)

	all, _, err := svc.ListApprovals(ctx, StatusAll, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	empty, _, err := svc.ListApprovals(ctx, StatusAll, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, _, err = svc.ListApprovals(ctx, "weird", 10, 0)
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidRequest))
}
