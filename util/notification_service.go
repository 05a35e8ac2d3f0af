// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// NotificationService tells approvers and admins about workflow events.
// Delivery is a structured log line; a chat or mail sink can replace it.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyApprovalPending tells the approvers of a new pending approval.
func (n *NotificationService) NotifyApprovalPending(ctx context.Context, approval model.PendingApproval) error {
	recipients := approval.Approvers
	if len(recipients) == 0 {
		recipients = []string{"any-approver"}
	}
	logger.Info("NOTIFICATION: Approval requested",
		zap.String("approvalID", approval.ApprovalID),
		zap.String("service", approval.ServiceName),
		zap.String("tool", approval.ToolName),
		zap.String("caller", approval.CallerIdentity),
		zap.Strings("approvers", recipients))
	return nil
}

// NotifyApprovalDecided tells the caller's side that an approval was decided.
func (n *NotificationService) NotifyApprovalDecided(ctx context.Context, approval model.PendingApproval) error {
	switch approval.Status {
	case model.ApprovalApproved, model.ApprovalDenied:
		logger.Info("NOTIFICATION: Approval decided",
			zap.String("approvalID", approval.ApprovalID),
			zap.String("status", string(approval.Status)),
			zap.String("decidedBy", approval.DecidedBy),
			zap.String("caller", approval.CallerIdentity))
		return nil
	default:
		return fmt.Errorf("approval %s is not decided", approval.ApprovalID)
	}
}

// NotifyPolicyChange tells admins that the policy store changed.
func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType, subject string) error {
	switch changeType {
	case "created", "updated", "deleted":
		logger.Info("NOTIFICATION: Policy changed",
			zap.String("changeType", changeType),
			zap.String("subject", subject))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return nil
}
