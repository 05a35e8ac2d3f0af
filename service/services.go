// service/services.go
package service

import (
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/approval"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/audit"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/credential"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/snapshot"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

type Services struct {
	Decision   IDecisionService
	Approval   IApprovalService
	Credential ICredentialService
	Snapshot   ISnapshotService
	Policy     IPolicyService
	Audit      audit.Service
}

// Components are the domain objects the services sit on. Store is nil on an
// instance that consumes a remote distributor; it then has no policy admin.
type Components struct {
	Decider        Decider
	Engine         *approval.Engine
	Broker         *credential.Broker
	SnapshotSource SnapshotSource
	Store          snapshot.PolicyStore
}

func InitializeServices(
	components Components,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	services := &Services{
		Decision:   NewDecisionService(components.Decider, auditService),
		Approval:   NewApprovalService(components.Engine, notificationSvc, eventBus),
		Credential: components.Broker,
		Snapshot:   NewSnapshotService(components.SnapshotSource),
		Audit:      auditService,
	}
	if components.Store != nil {
		services.Policy = NewPolicyService(components.Store, validationUtil, notificationSvc, eventBus)
	}

	return services, nil
}
