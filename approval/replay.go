package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// Executor re-executes an approved call against its backend.
type Executor interface {
	Execute(ctx context.Context, rec *model.PendingApproval) (json.RawMessage, error)
}

// HTTPExecutor posts the stored request payload verbatim to the backend
// registered for the record's service.
type HTTPExecutor struct {
	backends map[string]string
	client   *http.Client
}

func NewHTTPExecutor(backends map[string]string, timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExecutor{backends: backends, client: &http.Client{Timeout: timeout}}
}

func (x *HTTPExecutor) Execute(ctx context.Context, rec *model.PendingApproval) (json.RawMessage, error) {
	url, ok := x.backends[rec.ServiceName]
	if !ok {
		return nil, fmt.Errorf("%w: no replay backend for service %q", gw_errors.ErrConfiguration, rec.ServiceName)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(rec.RequestPayload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gw_errors.ErrReplayBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Approval-Id", rec.ApprovalID)
	req.Header.Set("X-Caller-Identity", rec.CallerIdentity)
	req.Header.Set("X-Tool", rec.ServiceName+"."+rec.ToolName)

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gw_errors.ErrReplayBackend, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", gw_errors.ErrReplayBackend, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", gw_errors.ErrReplayBackend, resp.StatusCode, truncate(body, 256))
	}
	if len(body) == 0 {
		return nil, nil
	}
	if json.Valid(body) {
		return body, nil
	}
	quoted, _ := json.Marshal(string(body))
	return quoted, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ReplayWorker executes approved calls queued for store-and-forward. Each
// record is claimed before execution, so no approval runs twice. Failures are
// recorded and never retried.
type ReplayWorker struct {
	engine   *Engine
	executor Executor
	interval time.Duration
	timeout  time.Duration
}

func NewReplayWorker(engine *Engine, executor Executor, interval, timeout time.Duration) *ReplayWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReplayWorker{engine: engine, executor: executor, interval: interval, timeout: timeout}
}

// Run polls until ctx is done.
func (w *ReplayWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Replay pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce sweeps expired approvals and replays everything queued. Distinct
// services replay in parallel; records of one service replay in order.
func (w *ReplayWorker) RunOnce(ctx context.Context) error {
	if n, err := w.engine.SweepExpired(ctx); err != nil {
		logger.Warn("Approval expiry sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("Expired pending approvals", zap.Int("count", n))
	}

	queued, err := w.engine.GetQueuedForExecution(ctx)
	if err != nil {
		return err
	}
	if len(queued) == 0 {
		return nil
	}

	byService := make(map[string][]*model.PendingApproval)
	for _, rec := range queued {
		byService[rec.ServiceName] = append(byService[rec.ServiceName], rec)
	}

	g, gctx := errgroup.WithContext(ctx)
	for service, recs := range byService {
		service, recs := service, recs
		g.Go(func() error {
			for _, rec := range recs {
				if err := w.replay(gctx, service, rec.ApprovalID); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *ReplayWorker) replay(ctx context.Context, service, id string) error {
	rec, claimed, err := w.engine.ClaimForReplay(ctx, id)
	if err != nil {
		return fmt.Errorf("claim %s: %w", id, err)
	}
	if !claimed {
		return nil
	}

	execCtx, cancel := context.WithTimeout(ctx, w.timeout)
	result, execErr := w.executor.Execute(execCtx, rec)
	cancel()

	status, errMsg := model.ExecutionCompleted, ""
	if execErr != nil {
		status, errMsg = model.ExecutionFailed, execErr.Error()
	}
	metrics.Replays.WithLabelValues(service, string(status)).Inc()

	// Recording must survive a cancelled pass, or the record stays in_flight.
	recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancelRecord()
	if _, err := w.engine.RecordExecution(recordCtx, id, status, result, errMsg); err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}

	fields := []zap.Field{zap.String("approvalID", id), zap.String("service", service), zap.String("status", string(status))}
	if execErr != nil {
		logger.Warn("Replay failed", append(fields, zap.Error(execErr))...)
	} else {
		logger.Info("Replay completed", fields...)
	}
	return nil
}
