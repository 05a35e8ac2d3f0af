package approval

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

func sendRequest(args string) *pdp_model.EvaluationRequest {
	return &pdp_model.EvaluationRequest{
		ToolName:         "send",
		ServiceName:      "mail",
		CallerIdentity:   "bob",
		ArgumentDigest:   "digest-" + args,
		ApproversAllowed: []string{"carol"},
		RequestPayload:   json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"mail.send","arguments":{"to":"` + args + `"}}}`),
	}
}

func newTestEngine(opts Options) *Engine {
	return NewEngine(NewMemoryStore(), NewMemoryLocker(), nil, opts)
}

func TestApprovalCycle(t *testing.T) {
	e := newTestEngine(Options{})
	ctx := context.Background()
	req := sendRequest("x")

	resp, err := e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomePending, resp.Outcome)
	assert.Equal(t, "APR-1", resp.ApprovalID)

	resp, err = e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "APR-1", resp.ApprovalID, "a live pending record is reused")

	rec, err := e.Approve(ctx, "APR-1", "carol")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, rec.Status)
	assert.Equal(t, model.ExecutionNone, rec.ExecutionStatus)

	resp, err = e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomeAllow, resp.Outcome)
	assert.False(t, resp.Executed, "without replay the gateway forwards the call")

	resp, err = e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomePending, resp.Outcome)
	assert.Equal(t, "APR-2", resp.ApprovalID, "a consumed approval is never reused")

	first, err := e.Get(ctx, "APR-1")
	require.NoError(t, err)
	assert.True(t, first.Consumed)
	assert.NotNil(t, first.ConsumedAt)
}

func TestDenyIsConsumedOnce(t *testing.T) {
	e := newTestEngine(Options{})
	ctx := context.Background()
	req := sendRequest("y")

	_, err := e.Evaluate(ctx, req)
	require.NoError(t, err)
	_, err = e.Deny(ctx, "APR-1", "carol", "not today")
	require.NoError(t, err)

	resp, err := e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomeDeny, resp.Outcome)
	assert.Equal(t, "not today", resp.Reason)

	resp, err = e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomePending, resp.Outcome)
	assert.Equal(t, "APR-2", resp.ApprovalID)
}

func TestDifferentArgumentsGetDifferentApprovals(t *testing.T) {
	e := newTestEngine(Options{})
	ctx := context.Background()

	a, _ := e.Evaluate(ctx, sendRequest("a"))
	b, _ := e.Evaluate(ctx, sendRequest("b"))
	assert.NotEqual(t, a.ApprovalID, b.ApprovalID)
}

func TestConcurrentEvaluateCreatesOneRecord(t *testing.T) {
	e := newTestEngine(Options{})
	ctx := context.Background()
	req := sendRequest("burst")

	var wg sync.WaitGroup
	ids := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := e.Evaluate(ctx, req)
			if err == nil {
				ids <- resp.ApprovalID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)

	pending, err := e.GetPendingApprovals(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestApproverRestrictionsAndStateChecks(t *testing.T) {
	e := newTestEngine(Options{})
	ctx := context.Background()
	_, _ = e.Evaluate(ctx, sendRequest("z"))

	_, err := e.Approve(ctx, "APR-1", "mallory")
	assert.True(t, errors.Is(err, gw_errors.ErrApproverNotAllowed))

	_, err = e.Approve(ctx, "APR-1", "")
	assert.True(t, errors.Is(err, gw_errors.ErrApproverNotAllowed))

	_, err = e.Approve(ctx, "APR-404", "carol")
	assert.True(t, errors.Is(err, gw_errors.ErrApprovalNotFound))

	_, err = e.Approve(ctx, "APR-1", "carol")
	require.NoError(t, err)

	_, err = e.Deny(ctx, "APR-1", "carol", "changed my mind")
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidApprovalState))
}

func TestOpenApproverList(t *testing.T) {
	e := newTestEngine(Options{})
	ctx := context.Background()
	req := sendRequest("open")
	req.ApproversAllowed = nil
	_, _ = e.Evaluate(ctx, req)

	rec, err := e.Approve(ctx, "APR-1", "anyone")
	require.NoError(t, err)
	assert.Equal(t, "anyone", rec.DecidedBy)
}

func TestReplayQueueAndExecutionRecording(t *testing.T) {
	e := newTestEngine(Options{ReplayEnabled: true})
	ctx := context.Background()
	_, _ = e.Evaluate(ctx, sendRequest("q"))

	rec, err := e.Approve(ctx, "APR-1", "carol")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionQueued, rec.ExecutionStatus)

	queued, err := e.GetQueuedForExecution(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	_, claimed, err := e.ClaimForReplay(ctx, "APR-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	_, claimed, err = e.ClaimForReplay(ctx, "APR-1")
	require.NoError(t, err)
	assert.False(t, claimed, "an in-flight record cannot be claimed twice")

	queued, _ = e.GetQueuedForExecution(ctx)
	assert.Empty(t, queued)

	_, err = e.RecordExecution(ctx, "APR-1", model.ExecutionQueued, nil, "")
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidApprovalState))

	_, err = e.RecordExecution(ctx, "APR-1", model.ExecutionCompleted, json.RawMessage(`{"id":"msg-1"}`), "")
	require.NoError(t, err)

	res, err := e.GetExecutionResult(ctx, "APR-1")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionCompleted, res.ExecutionStatus)
	assert.JSONEq(t, `{"id":"msg-1"}`, string(res.Result))

	_, err = e.RecordExecution(ctx, "APR-1", model.ExecutionFailed, nil, "late")
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidApprovalState))

	resp, err := e.Evaluate(ctx, sendRequest("q"))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomeAllow, resp.Outcome)
	assert.Equal(t, "APR-1", resp.ApprovalID)
	assert.True(t, resp.Executed, "a replayed call is not forwarded again")
}

func TestClearResolved(t *testing.T) {
	e := newTestEngine(Options{ReplayEnabled: true})
	ctx := context.Background()

	_, _ = e.Evaluate(ctx, sendRequest("pending"))
	_, _ = e.Evaluate(ctx, sendRequest("queued"))
	_, _ = e.Evaluate(ctx, sendRequest("denied"))
	_, err := e.Approve(ctx, "APR-2", "carol")
	require.NoError(t, err)
	_, err = e.Deny(ctx, "APR-3", "carol", "")
	require.NoError(t, err)

	removed, err := e.ClearResolved(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := e.GetAllApprovals(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, rec := range all {
		ids = append(ids, rec.ApprovalID)
	}
	assert.Equal(t, []string{"APR-1", "APR-2"}, ids)

	resp, err := e.Evaluate(ctx, sendRequest("denied"))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomePending, resp.Outcome, "clearing frees the lookup key")
	assert.Equal(t, "APR-4", resp.ApprovalID)
}

func TestPendingExpiry(t *testing.T) {
	now := time.Unix(1_000, 0)
	e := newTestEngine(Options{PendingTTL: time.Hour, Now: func() time.Time { return now }})
	ctx := context.Background()
	req := sendRequest("slow")

	_, _ = e.Evaluate(ctx, req)
	_, _ = e.Evaluate(ctx, sendRequest("other"))

	now = now.Add(2 * time.Hour)

	_, err := e.Approve(ctx, "APR-2", "carol")
	assert.True(t, errors.Is(err, gw_errors.ErrInvalidApprovalState), "expired approvals cannot be approved")

	resp, err := e.Evaluate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.OutcomeDeny, resp.Outcome)

	rec, err := e.Get(ctx, "APR-1")
	require.NoError(t, err)
	assert.Equal(t, ExpiryApprover, rec.DecidedBy)

	pending, err := e.GetPendingApprovals(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSweepExpired(t *testing.T) {
	now := time.Unix(1_000, 0)
	e := newTestEngine(Options{PendingTTL: time.Minute, Now: func() time.Time { return now }})
	ctx := context.Background()
	_, _ = e.Evaluate(ctx, sendRequest("1"))
	_, _ = e.Evaluate(ctx, sendRequest("2"))

	n, err := e.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	now = now.Add(2 * time.Minute)
	n, err = e.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, _ := e.GetAllApprovals(ctx)
	for _, rec := range all {
		assert.Equal(t, model.ApprovalDenied, rec.Status)
	}
}

func TestLookupKey(t *testing.T) {
	a := LookupKey("bob", "mail", "send", "d1")
	assert.Equal(t, a, LookupKey("bob", "mail", "send", "d1"))
	assert.NotEqual(t, a, LookupKey("alice", "mail", "send", "d1"))
	assert.NotEqual(t, a, LookupKey("bob", "chat", "send", "d1"))
	assert.NotEqual(t, a, LookupKey("bob", "mail", "send", "d2"))
}

func TestMemoryLockerHonoursContext(t *testing.T) {
	l := NewMemoryLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.True(t, errors.Is(err, gw_errors.ErrLockNotAcquired))

	unlock()
	unlock2, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
	assert.Empty(t, l.locks)
}
