// service/policy_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/snapshot"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

// Kinds of policy change events.
const (
	ChangeKindService    = "service"
	ChangeKindRule       = "rule"
	ChangeKindRevocation = "revocation"
)

// IPolicyService defines the administrative operations on the policy store
type IPolicyService interface {
	GetPolicy(ctx context.Context) (*model.PolicyState, error)
	PutService(ctx context.Context, entry model.CatalogEntry) (*model.CatalogEntry, error)
	DeleteService(ctx context.Context, name string) error
	PutRule(ctx context.Context, rule model.AccessRule) (*model.AccessRule, error)
	DeleteRule(ctx context.Context, id string) error
	Revoke(ctx context.Context, subject string) error
	Unrevoke(ctx context.Context, subject string) error
}

// PolicyService is the single writer of the policy store. Every successful
// write publishes a policy.changed event that triggers a snapshot rebuild.
type PolicyService struct {
	store           snapshot.PolicyStore
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IPolicyService = &PolicyService{}

func NewPolicyService(store snapshot.PolicyStore, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, eventBus *util.EventBus) *PolicyService {
	service := &PolicyService{
		store:           store,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe(util.EventPolicyChanged, service.handlePolicyChanged)

	return service
}

func (s *PolicyService) handlePolicyChanged(ctx context.Context, event util.Event) error {
	change, ok := event.Payload.(snapshot.ChangeEvent)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	if err := s.notificationSvc.NotifyPolicyChange(ctx, change.Change, change.Kind+":"+change.Subject); err != nil {
		logger.Warn("Failed to send policy change notification", zap.Error(err), zap.String("subject", change.Subject))
	}
	return nil
}

func (s *PolicyService) publish(ctx context.Context, kind, subject, change string) {
	s.eventBus.Publish(ctx, util.EventPolicyChanged, snapshot.ChangeEvent{
		Kind:    kind,
		Subject: subject,
		Change:  change,
		At:      time.Now().UTC(),
	})
}

// GetPolicy returns the store content with rules and revocations sorted.
func (s *PolicyService) GetPolicy(ctx context.Context) (*model.PolicyState, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		logger.Error("Error loading policy state", zap.Error(err))
		return nil, err
	}
	sort.Slice(state.AccessRules, func(i, j int) bool { return state.AccessRules[i].ID < state.AccessRules[j].ID })
	sort.Strings(state.Revocations)
	return &state, nil
}

func (s *PolicyService) PutService(ctx context.Context, entry model.CatalogEntry) (*model.CatalogEntry, error) {
	if err := s.validationUtil.ValidateCatalogEntry(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", gw_errors.ErrInvalidPolicyData, err)
	}
	change := s.changeType(ctx, func(state model.PolicyState) bool {
		_, ok := state.Catalog[entry.ServiceName]
		return ok
	})
	if err := s.store.PutService(ctx, entry); err != nil {
		logger.Error("Error saving service", zap.Error(err), zap.String("service", entry.ServiceName))
		return nil, fmt.Errorf("failed to save service: %w", err)
	}
	s.publish(ctx, ChangeKindService, entry.ServiceName, change)
	return &entry, nil
}

func (s *PolicyService) DeleteService(ctx context.Context, name string) error {
	if err := s.store.DeleteService(ctx, name); err != nil {
		return err
	}
	s.publish(ctx, ChangeKindService, name, "deleted")
	return nil
}

func (s *PolicyService) PutRule(ctx context.Context, rule model.AccessRule) (*model.AccessRule, error) {
	if err := s.validationUtil.ValidateAccessRule(rule); err != nil {
		return nil, fmt.Errorf("%w: %v", gw_errors.ErrInvalidPolicyData, err)
	}
	change := s.changeType(ctx, func(state model.PolicyState) bool {
		for _, r := range state.AccessRules {
			if r.ID == rule.ID {
				return true
			}
		}
		return false
	})
	if err := s.store.PutRule(ctx, rule); err != nil {
		logger.Error("Error saving access rule", zap.Error(err), zap.String("ruleID", rule.ID))
		return nil, fmt.Errorf("failed to save access rule: %w", err)
	}
	s.publish(ctx, ChangeKindRule, rule.ID, change)
	return &rule, nil
}

func (s *PolicyService) DeleteRule(ctx context.Context, id string) error {
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, ChangeKindRule, id, "deleted")
	return nil
}

func (s *PolicyService) Revoke(ctx context.Context, subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: revocation subject cannot be empty", gw_errors.ErrInvalidPolicyData)
	}
	if err := s.store.AddRevocation(ctx, subject); err != nil {
		return fmt.Errorf("failed to add revocation: %w", err)
	}
	logger.Info("Subject revoked", zap.String("subject", subject))
	s.publish(ctx, ChangeKindRevocation, subject, "created")
	return nil
}

func (s *PolicyService) Unrevoke(ctx context.Context, subject string) error {
	if err := s.store.RemoveRevocation(ctx, subject); err != nil {
		return fmt.Errorf("failed to remove revocation: %w", err)
	}
	s.publish(ctx, ChangeKindRevocation, subject, "deleted")
	return nil
}

// changeType reports "updated" when exists holds for the current state and
// "created" otherwise. A failed read is reported as an update.
func (s *PolicyService) changeType(ctx context.Context, exists func(model.PolicyState) bool) string {
	state, err := s.store.Load(ctx)
	if err != nil || exists(state) {
		return "updated"
	}
	return "created"
}
