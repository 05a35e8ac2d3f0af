// service/approval_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/approval"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

// Status filters of ListApprovals.
const (
	StatusPending = "pending"
	StatusAll     = "all"
	StatusQueued  = "queued"
)

// IApprovalService defines the approver-facing workflow operations
type IApprovalService interface {
	ListApprovals(ctx context.Context, status string, limit, offset int) ([]*model.PendingApproval, int, error)
	GetApproval(ctx context.Context, id string) (*model.PendingApproval, error)
	Approve(ctx context.Context, id, approver string) (*model.PendingApproval, error)
	Deny(ctx context.Context, id, approver, reason string) (*model.PendingApproval, error)
	RecordExecution(ctx context.Context, id string, status model.ExecutionStatus, result json.RawMessage, execErr string) (*model.PendingApproval, error)
	GetExecutionResult(ctx context.Context, id string) (*model.ExecutionResult, error)
	ClearResolved(ctx context.Context) (int, error)
}

// ApprovalService exposes the approval engine and notifies approvers.
type ApprovalService struct {
	engine          *approval.Engine
	notificationSvc *util.NotificationService
}

var _ IApprovalService = &ApprovalService{}

func NewApprovalService(engine *approval.Engine, notificationSvc *util.NotificationService, eventBus *util.EventBus) *ApprovalService {
	service := &ApprovalService{engine: engine, notificationSvc: notificationSvc}

	if eventBus != nil {
		eventBus.Subscribe(util.EventApprovalPending, service.handleApprovalPending)
		eventBus.Subscribe(util.EventApprovalDecided, service.handleApprovalDecided)
	}
	return service
}

func (s *ApprovalService) handleApprovalPending(ctx context.Context, event util.Event) error {
	rec, ok := event.Payload.(model.PendingApproval)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	if err := s.notificationSvc.NotifyApprovalPending(ctx, rec); err != nil {
		logger.Warn("Failed to notify approvers", zap.Error(err), zap.String("approvalID", rec.ApprovalID))
	}
	return nil
}

func (s *ApprovalService) handleApprovalDecided(ctx context.Context, event util.Event) error {
	rec, ok := event.Payload.(model.PendingApproval)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	if err := s.notificationSvc.NotifyApprovalDecided(ctx, rec); err != nil {
		logger.Warn("Failed to send decision notification", zap.Error(err), zap.String("approvalID", rec.ApprovalID))
	}
	return nil
}

// ListApprovals returns one page of approvals matching status and the total count.
func (s *ApprovalService) ListApprovals(ctx context.Context, status string, limit, offset int) ([]*model.PendingApproval, int, error) {
	var (
		records []*model.PendingApproval
		err     error
	)
	switch status {
	case "", StatusPending:
		records, err = s.engine.GetPendingApprovals(ctx)
	case StatusAll:
		records, err = s.engine.GetAllApprovals(ctx)
	case StatusQueued:
		records, err = s.engine.GetQueuedForExecution(ctx)
	default:
		return nil, 0, fmt.Errorf("%w: unknown status filter %q", gw_errors.ErrInvalidRequest, status)
	}
	if err != nil {
		logger.Error("Error listing approvals", zap.Error(err), zap.String("status", status))
		return nil, 0, err
	}
	return paginate(records, limit, offset), len(records), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func (s *ApprovalService) GetApproval(ctx context.Context, id string) (*model.PendingApproval, error) {
	return s.engine.Get(ctx, id)
}

func (s *ApprovalService) Approve(ctx context.Context, id, approver string) (*model.PendingApproval, error) {
	rec, err := s.engine.Approve(ctx, id, approver)
	if err != nil {
		logger.Warn("Approve failed", zap.Error(err), zap.String("approvalID", id), zap.String("approver", approver))
		return nil, err
	}
	return rec, nil
}

func (s *ApprovalService) Deny(ctx context.Context, id, approver, reason string) (*model.PendingApproval, error) {
	rec, err := s.engine.Deny(ctx, id, approver, reason)
	if err != nil {
		logger.Warn("Deny failed", zap.Error(err), zap.String("approvalID", id), zap.String("approver", approver))
		return nil, err
	}
	return rec, nil
}

func (s *ApprovalService) RecordExecution(ctx context.Context, id string, status model.ExecutionStatus, result json.RawMessage, execErr string) (*model.PendingApproval, error) {
	return s.engine.RecordExecution(ctx, id, status, result, execErr)
}

func (s *ApprovalService) GetExecutionResult(ctx context.Context, id string) (*model.ExecutionResult, error) {
	return s.engine.GetExecutionResult(ctx, id)
}

func (s *ApprovalService) ClearResolved(ctx context.Context) (int, error) {
	n, err := s.engine.ClearResolved(ctx)
	if err != nil {
		logger.Error("Error clearing resolved approvals", zap.Error(err))
		return 0, err
	}
	return n, nil
}
