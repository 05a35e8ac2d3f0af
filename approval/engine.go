package approval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

// ExpiryApprover is recorded as decidedBy when a pending approval times out.
const ExpiryApprover = "system:expiry"

type Options struct {
	ReplayEnabled bool
	// PendingTTL auto-denies pending records after this long. Zero keeps them forever.
	PendingTTL time.Duration
	Now        func() time.Time
}

// Engine is the human-in-the-loop decision service for gated tools.
type Engine struct {
	store  Store
	locker Locker
	bus    *util.EventBus
	opts   Options
}

func NewEngine(store Store, locker Locker, bus *util.EventBus, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{store: store, locker: locker, bus: bus, opts: opts}
}

// LookupKey identifies "the same call": same caller, same qualified tool and
// same canonical arguments.
func LookupKey(callerIdentity, serviceName, toolName, argumentDigest string) string {
	h := sha256.New()
	for _, part := range []string{callerIdentity, serviceName + "." + toolName, argumentDigest} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Evaluate returns the decision for a gated call. A call with a live pending
// record gets the same approval id back; a decided record is consumed exactly
// once and frees the key; otherwise a new pending record is created.
func (e *Engine) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (pdp_model.EvaluationResponse, error) {
	key := LookupKey(req.CallerIdentity, req.ServiceName, req.ToolName, req.ArgumentDigest)

	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return pdp_model.EvaluationResponse{}, err
	}
	defer unlock()

	liveID, err := e.store.LiveID(ctx, key)
	if err != nil {
		return pdp_model.EvaluationResponse{}, err
	}
	if liveID != "" {
		rec, err := e.store.Get(ctx, liveID)
		switch {
		case errors.Is(err, gw_errors.ErrApprovalNotFound):
			logger.Warn("Live index points at a missing approval", zap.String("approvalID", liveID))
			if err := e.store.ClearLive(ctx, key, liveID); err != nil {
				return pdp_model.EvaluationResponse{}, err
			}
		case err != nil:
			return pdp_model.EvaluationResponse{}, err
		default:
			return e.resolveLive(ctx, rec)
		}
	}

	rec, err := e.create(ctx, key, req)
	if err != nil {
		return pdp_model.EvaluationResponse{}, err
	}
	return pdp_model.EvaluationResponse{Outcome: pdp_model.OutcomePending, ApprovalID: rec.ApprovalID}, nil
}

func (e *Engine) resolveLive(ctx context.Context, rec *model.PendingApproval) (pdp_model.EvaluationResponse, error) {
	if err := e.expireIfDue(ctx, rec); err != nil {
		return pdp_model.EvaluationResponse{}, err
	}

	switch rec.Status {
	case model.ApprovalPending:
		return pdp_model.EvaluationResponse{Outcome: pdp_model.OutcomePending, ApprovalID: rec.ApprovalID}, nil
	case model.ApprovalApproved, model.ApprovalDenied:
		if err := e.consume(ctx, rec); err != nil {
			return pdp_model.EvaluationResponse{}, err
		}
		if rec.Status == model.ApprovalApproved {
			// With replay on, the worker owns execution of the approved call.
			return pdp_model.EvaluationResponse{
				Outcome:    pdp_model.OutcomeAllow,
				ApprovalID: rec.ApprovalID,
				Executed:   rec.ExecutionStatus != model.ExecutionNone,
			}, nil
		}
		reason := rec.Reason
		if reason == "" {
			reason = "denied by " + rec.DecidedBy
		}
		return pdp_model.EvaluationResponse{Outcome: pdp_model.OutcomeDeny, ApprovalID: rec.ApprovalID, Reason: reason}, nil
	default:
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: approval %s has status %q", gw_errors.ErrInvalidApprovalState, rec.ApprovalID, rec.Status)
	}
}

func (e *Engine) create(ctx context.Context, key string, req *pdp_model.EvaluationRequest) (*model.PendingApproval, error) {
	seq, err := e.store.NextSequence(ctx)
	if err != nil {
		return nil, err
	}
	now := e.opts.Now().UTC()
	rec := &model.PendingApproval{
		ApprovalID:      fmt.Sprintf("APR-%d", seq),
		Sequence:        seq,
		LookupKey:       key,
		Status:          model.ApprovalPending,
		ExecutionStatus: model.ExecutionNone,
		Approvers:       append([]string(nil), req.ApproversAllowed...),
		RequestPayload:  append(json.RawMessage(nil), req.RequestPayload...),
		ServiceName:     req.ServiceName,
		ToolName:        req.ToolName,
		CallerIdentity:  req.CallerIdentity,
		SessionID:       req.SessionID,
		CreatedAt:       now,
	}
	if e.opts.PendingTTL > 0 {
		expires := now.Add(e.opts.PendingTTL)
		rec.ExpiresAt = &expires
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	if err := e.store.SetLive(ctx, key, rec.ApprovalID); err != nil {
		return nil, err
	}

	metrics.PendingApprovals.Inc()
	logger.Info("Approval requested",
		zap.String("approvalID", rec.ApprovalID),
		zap.String("service", rec.ServiceName),
		zap.String("tool", rec.ToolName),
		zap.String("caller", rec.CallerIdentity))
	e.publish(ctx, util.EventApprovalPending, rec)
	return rec, nil
}

func (e *Engine) consume(ctx context.Context, rec *model.PendingApproval) error {
	now := e.opts.Now().UTC()
	rec.Consumed = true
	rec.ConsumedAt = &now
	if err := e.store.Save(ctx, rec); err != nil {
		return err
	}
	if err := e.store.ClearLive(ctx, rec.LookupKey, rec.ApprovalID); err != nil {
		return err
	}
	logger.Info("Approval consumed",
		zap.String("approvalID", rec.ApprovalID),
		zap.String("status", string(rec.Status)))
	return nil
}

// expireIfDue auto-denies rec when its pending TTL has passed. The caller holds
// the key lock.
func (e *Engine) expireIfDue(ctx context.Context, rec *model.PendingApproval) error {
	now := e.opts.Now()
	if !rec.Expired(now) {
		return nil
	}
	e.decide(rec, model.ApprovalDenied, ExpiryApprover, "approval expired", now)
	if err := e.store.Save(ctx, rec); err != nil {
		return err
	}
	logger.Info("Pending approval expired", zap.String("approvalID", rec.ApprovalID))
	e.publish(ctx, util.EventApprovalDecided, rec)
	return nil
}

func (e *Engine) decide(rec *model.PendingApproval, status model.ApprovalStatus, approver, reason string, now time.Time) {
	decidedAt := now.UTC()
	rec.Status = status
	rec.DecidedBy = approver
	rec.Reason = reason
	rec.DecidedAt = &decidedAt
	if status == model.ApprovalApproved && e.opts.ReplayEnabled {
		rec.ExecutionStatus = model.ExecutionQueued
	}
	metrics.PendingApprovals.Dec()
}

// withRecord loads id, takes its key lock, reloads it and runs fn. A record
// changed by fn is saved.
func (e *Engine) withRecord(ctx context.Context, id string, fn func(rec *model.PendingApproval) (bool, error)) (*model.PendingApproval, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock, err := e.locker.Lock(ctx, rec.LookupKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err = e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := fn(rec)
	if err != nil {
		return rec, err
	}
	if changed {
		if err := e.store.Save(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (e *Engine) Approve(ctx context.Context, id, approver string) (*model.PendingApproval, error) {
	return e.resolve(ctx, id, approver, model.ApprovalApproved, "")
}

func (e *Engine) Deny(ctx context.Context, id, approver, reason string) (*model.PendingApproval, error) {
	return e.resolve(ctx, id, approver, model.ApprovalDenied, reason)
}

func (e *Engine) resolve(ctx context.Context, id, approver string, status model.ApprovalStatus, reason string) (*model.PendingApproval, error) {
	if approver == "" {
		return nil, fmt.Errorf("%w: approver identity required", gw_errors.ErrApproverNotAllowed)
	}
	rec, err := e.withRecord(ctx, id, func(rec *model.PendingApproval) (bool, error) {
		if err := e.expireIfDue(ctx, rec); err != nil {
			return false, err
		}
		if rec.Status != model.ApprovalPending {
			return false, fmt.Errorf("%w: approval %s is already %s", gw_errors.ErrInvalidApprovalState, rec.ApprovalID, rec.Status)
		}
		if !rec.ApproverAllowed(approver) {
			return false, fmt.Errorf("%w: %s may not decide %s", gw_errors.ErrApproverNotAllowed, approver, rec.ApprovalID)
		}
		e.decide(rec, status, approver, reason, e.opts.Now())
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Approval decided",
		zap.String("approvalID", rec.ApprovalID),
		zap.String("status", string(rec.Status)),
		zap.String("approver", approver),
		zap.String("executionStatus", string(rec.ExecutionStatus)))
	e.publish(ctx, util.EventApprovalDecided, rec)
	return rec, nil
}

func (e *Engine) Get(ctx context.Context, id string) (*model.PendingApproval, error) {
	return e.store.Get(ctx, id)
}

func (e *Engine) GetPendingApprovals(ctx context.Context) ([]*model.PendingApproval, error) {
	if e.opts.PendingTTL > 0 {
		if _, err := e.SweepExpired(ctx); err != nil {
			logger.Warn("Approval expiry sweep failed", zap.Error(err))
		}
	}
	return e.filter(ctx, func(rec *model.PendingApproval) bool {
		return rec.Status == model.ApprovalPending
	})
}

func (e *Engine) GetAllApprovals(ctx context.Context) ([]*model.PendingApproval, error) {
	return e.store.List(ctx)
}

func (e *Engine) GetQueuedForExecution(ctx context.Context) ([]*model.PendingApproval, error) {
	return e.filter(ctx, func(rec *model.PendingApproval) bool {
		return rec.Status == model.ApprovalApproved && rec.ExecutionStatus == model.ExecutionQueued
	})
}

func (e *Engine) filter(ctx context.Context, keep func(*model.PendingApproval) bool) ([]*model.PendingApproval, error) {
	all, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.PendingApproval, 0, len(all))
	for _, rec := range all {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ClaimForReplay moves a queued record to in_flight. It reports false when
// another worker already claimed it or it is no longer queued.
func (e *Engine) ClaimForReplay(ctx context.Context, id string) (*model.PendingApproval, bool, error) {
	claimed := false
	rec, err := e.withRecord(ctx, id, func(rec *model.PendingApproval) (bool, error) {
		if rec.Status != model.ApprovalApproved || rec.ExecutionStatus != model.ExecutionQueued {
			return false, nil
		}
		rec.ExecutionStatus = model.ExecutionInFlight
		claimed = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, claimed, nil
}

// RecordExecution stores the outcome of a replay. Only queued or in-flight
// records accept a result, and status must be completed or failed.
func (e *Engine) RecordExecution(ctx context.Context, id string, status model.ExecutionStatus, result json.RawMessage, execErr string) (*model.PendingApproval, error) {
	if status != model.ExecutionCompleted && status != model.ExecutionFailed {
		return nil, fmt.Errorf("%w: execution status must be completed or failed, got %q", gw_errors.ErrInvalidApprovalState, status)
	}
	return e.withRecord(ctx, id, func(rec *model.PendingApproval) (bool, error) {
		if rec.ExecutionStatus != model.ExecutionQueued && rec.ExecutionStatus != model.ExecutionInFlight {
			return false, fmt.Errorf("%w: approval %s execution is %s", gw_errors.ErrInvalidApprovalState, rec.ApprovalID, rec.ExecutionStatus)
		}
		now := e.opts.Now().UTC()
		rec.ExecutionStatus = status
		rec.ExecutionResult = result
		rec.ExecutionError = execErr
		rec.ExecutedAt = &now
		return true, nil
	})
}

func (e *Engine) GetExecutionResult(ctx context.Context, id string) (*model.ExecutionResult, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ExecutionResult{
		ApprovalID:      rec.ApprovalID,
		ExecutionStatus: rec.ExecutionStatus,
		Result:          rec.ExecutionResult,
		Error:           rec.ExecutionError,
		ExecutedAt:      rec.ExecutedAt,
	}, nil
}

// ClearResolved deletes decided records that have no replay queued or running.
// Pending records are never removed.
func (e *Engine) ClearResolved(ctx context.Context) (int, error) {
	all, err := e.store.List(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, candidate := range all {
		if !clearable(candidate) {
			continue
		}
		deleted := false
		_, err := e.withRecord(ctx, candidate.ApprovalID, func(rec *model.PendingApproval) (bool, error) {
			if !clearable(rec) {
				return false, nil
			}
			if err := e.store.ClearLive(ctx, rec.LookupKey, rec.ApprovalID); err != nil {
				return false, err
			}
			if err := e.store.Delete(ctx, rec.ApprovalID); err != nil {
				return false, err
			}
			deleted = true
			return false, nil
		})
		if err != nil && !errors.Is(err, gw_errors.ErrApprovalNotFound) {
			return removed, err
		}
		if deleted {
			removed++
		}
	}
	logger.Info("Cleared resolved approvals", zap.Int("removed", removed))
	return removed, nil
}

func clearable(rec *model.PendingApproval) bool {
	if rec.Status == model.ApprovalPending {
		return false
	}
	return rec.ExecutionStatus != model.ExecutionQueued && rec.ExecutionStatus != model.ExecutionInFlight
}

// SweepExpired auto-denies every pending record past its TTL.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	if e.opts.PendingTTL <= 0 {
		return 0, nil
	}
	now := e.opts.Now()
	pending, err := e.filter(ctx, func(rec *model.PendingApproval) bool { return rec.Expired(now) })
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, candidate := range pending {
		_, err := e.withRecord(ctx, candidate.ApprovalID, func(rec *model.PendingApproval) (bool, error) {
			if !rec.Expired(e.opts.Now()) {
				return false, nil
			}
			expired++
			return false, e.expireIfDue(ctx, rec)
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func (e *Engine) publish(ctx context.Context, eventType string, rec *model.PendingApproval) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ctx, eventType, *rec)
}
