package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

const (
	DefaultEvaluatorTimeout = 2 * time.Second
	jtiClaim                = "jti"
)

// SnapshotSource exposes the current snapshot and the time it was last
// successfully built or synced.
type SnapshotSource interface {
	Current() (*model.PolicySnapshot, time.Time)
}

type Options struct {
	// MaxStaleness is the staleness ceiling; zero disables the check.
	MaxStaleness     time.Duration
	EvaluatorTimeout time.Duration
	AuditOpenCalls   bool
	// Recorder receives open calls when AuditOpenCalls is set.
	Recorder Recorder
	Now      func() time.Time
}

// PolicyEvaluator is the decision point for tool calls. It keeps no
// per-request state and is safe for concurrent use.
type PolicyEvaluator struct {
	source   SnapshotSource
	registry *Registry
	opts     Options
}

func NewPolicyEvaluator(source SnapshotSource, registry *Registry, opts Options) *PolicyEvaluator {
	if opts.EvaluatorTimeout <= 0 {
		opts.EvaluatorTimeout = DefaultEvaluatorTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PolicyEvaluator{source: source, registry: registry, opts: opts}
}

// Decide evaluates one request. The error is non-nil only when a stateful
// evaluator could not be reached; the returned decision is then a deny.
func (pe *PolicyEvaluator) Decide(ctx context.Context, req *model.ToolCallRequest) (pdp_model.Decision, error) {
	decision, err := pe.decide(ctx, req)
	decision.Identity = req.CallerIdentity

	metrics.Decisions.WithLabelValues(string(decision.Effect), string(decision.Reason)).Inc()
	fields := []zap.Field{
		zap.String("identity", req.CallerIdentity),
		zap.String("service", decision.Service),
		zap.String("tool", decision.Tool),
		zap.String("decision", string(decision.Effect)),
		zap.String("reason", string(decision.Reason)),
		zap.String("revision", decision.Revision),
	}
	switch {
	case err != nil:
		logger.Error("Stateful evaluator unreachable", append(fields, zap.Error(err))...)
	case decision.Reason.Degraded():
		logger.Warn("Request denied, decision point degraded", fields...)
	case decision.Denied():
		logger.Info("Request denied", fields...)
	default:
		logger.Debug("Request decided", fields...)
	}
	return decision, err
}

func (pe *PolicyEvaluator) decide(ctx context.Context, req *model.ToolCallRequest) (pdp_model.Decision, error) {
	snap, syncedAt := pe.source.Current()
	if snap == nil {
		return pdp_model.Deny(pdp_model.ReasonNoSnapshot, "no policy snapshot loaded"), nil
	}
	if pe.opts.MaxStaleness > 0 {
		if age := pe.opts.Now().Sub(syncedAt); age > pe.opts.MaxStaleness {
			d := pdp_model.Deny(pdp_model.ReasonSnapshotStale, "policy snapshot %s is %s old", snap.Revision, age.Round(time.Second))
			d.Revision = snap.Revision
			return d, nil
		}
	}

	decision, err := pe.decideWith(ctx, snap, req)
	decision.Revision = snap.Revision
	return decision, err
}

func (pe *PolicyEvaluator) decideWith(ctx context.Context, snap *model.PolicySnapshot, req *model.ToolCallRequest) (pdp_model.Decision, error) {
	if req.CallerIdentity == "" {
		return pdp_model.Deny(pdp_model.ReasonUnauthenticated, "caller identity missing"), nil
	}
	if snap.Revoked(req.CallerIdentity) {
		return pdp_model.Deny(pdp_model.ReasonRevoked, "identity revoked"), nil
	}
	if jti, ok := req.CallerClaims[jtiClaim].(string); ok && snap.Revoked(jti) {
		return pdp_model.Deny(pdp_model.ReasonRevoked, "token revoked"), nil
	}

	if req.IsControl() {
		return pdp_model.Allow(), nil
	}
	if req.Method != "" && req.Method != model.MethodToolCall {
		return pdp_model.Deny(pdp_model.ReasonUnsupportedMethod, "method %q is not supported", req.Method), nil
	}

	service, tool, ok := req.Target()
	if !ok {
		return pdp_model.Deny(pdp_model.ReasonInvalidTool, "tool name %q is not service-qualified", req.QualifiedTool), nil
	}

	decision, err := pe.decideTool(ctx, snap, req, service, tool)
	decision.Service = service
	decision.Tool = tool
	return decision, err
}

func (pe *PolicyEvaluator) decideTool(ctx context.Context, snap *model.PolicySnapshot, req *model.ToolCallRequest, service, tool string) (pdp_model.Decision, error) {
	entry, ok := snap.Service(service)
	if !ok {
		return pdp_model.Deny(pdp_model.ReasonServiceUnknown, "service %q is not in the catalog", service), nil
	}
	if entry.Suspended {
		return pdp_model.Deny(pdp_model.ReasonServiceSuspended, "service %q is suspended", service), nil
	}
	if !entry.Enabled {
		return pdp_model.Deny(pdp_model.ReasonServiceDisabled, "service %q is disabled", service), nil
	}
	tag, ok := entry.Tools[tool]
	if !ok {
		return pdp_model.Deny(pdp_model.ReasonToolUnknown, "tool %q is not exposed by %q", tool, service), nil
	}
	if !tag.Valid() {
		return pdp_model.Deny(pdp_model.ReasonInvalidTool, "tool %q has unknown tag %q", tool, tag), nil
	}

	ruleIDs := matchingRules(snap.AccessRules, req.CallerIdentity, req.CallerClaims, service, tool)
	if len(ruleIDs) == 0 {
		return pdp_model.Deny(pdp_model.ReasonNoMatchingRule, "no access rule grants %s.%s", service, tool), nil
	}

	evalReq := buildEvaluationRequest(entry, req, service, tool)

	if tag == model.TagOpen {
		if pe.opts.AuditOpenCalls && pe.opts.Recorder != nil {
			go pe.opts.Recorder.Record(context.WithoutCancel(ctx), evalReq)
		}
		d := pdp_model.Allow()
		d.RuleIDs = ruleIDs
		return d, nil
	}

	decision, err := pe.escalate(ctx, service, tool, evalReq)
	decision.RuleIDs = ruleIDs
	return decision, err
}

func buildEvaluationRequest(entry model.CatalogEntry, req *model.ToolCallRequest, service, tool string) *pdp_model.EvaluationRequest {
	return &pdp_model.EvaluationRequest{
		ToolName:         tool,
		ServiceName:      service,
		CallerIdentity:   req.CallerIdentity,
		SessionID:        req.SessionID,
		Classification:   entry.Classification[tool],
		ArgumentDigest:   ArgumentDigest(req.Arguments),
		ApproversAllowed: entry.Approvers[tool],
		RequestPayload:   req.ReplayPayload(),
	}
}

type evalResult struct {
	resp pdp_model.EvaluationResponse
	err  error
}

// escalate consults the stateful evaluator under a bounded timeout. A timeout
// or transport failure is a deny.
func (pe *PolicyEvaluator) escalate(ctx context.Context, service, tool string, evalReq *pdp_model.EvaluationRequest) (pdp_model.Decision, error) {
	name, ev := pe.registry.Lookup(service, tool)
	if ev == nil {
		return pdp_model.Deny(pdp_model.ReasonEvaluatorMissing, "no evaluator registered for %s.%s", service, tool), nil
	}

	ctx, cancel := context.WithTimeout(ctx, pe.opts.EvaluatorTimeout)
	defer cancel()

	started := time.Now()
	ch := make(chan evalResult, 1)
	go func() {
		resp, err := ev.Evaluate(ctx, evalReq)
		ch <- evalResult{resp: resp, err: err}
	}()

	var res evalResult
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		metrics.ObserveEvaluator(name, "error", started)
		err := res.err
		if !errors.Is(err, gw_errors.ErrPolicyUnreachable) {
			err = fmt.Errorf("%w: %s: %v", gw_errors.ErrPolicyUnreachable, name, err)
		}
		return pdp_model.Deny(pdp_model.ReasonEvaluatorUnreachable, "evaluator %s unavailable", name), err
	}
	metrics.ObserveEvaluator(name, string(res.resp.Outcome), started)

	switch res.resp.Outcome {
	case pdp_model.OutcomeAllow:
		d := pdp_model.Allow()
		d.ApprovalID = res.resp.ApprovalID
		d.Executed = res.resp.Executed
		return d, nil
	case pdp_model.OutcomePending:
		return pdp_model.Pending(res.resp.ApprovalID), nil
	case pdp_model.OutcomeDeny:
		msg := res.resp.Reason
		if msg == "" {
			msg = "denied by " + name
		}
		return pdp_model.Deny(pdp_model.ReasonEvaluatorDenied, "%s", msg), nil
	default:
		err := fmt.Errorf("%w: %s returned outcome %q", gw_errors.ErrPolicyUnreachable, name, res.resp.Outcome)
		return pdp_model.Deny(pdp_model.ReasonEvaluatorUnreachable, "evaluator %s returned an invalid outcome", name), err
	}
}
