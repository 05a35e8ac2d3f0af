// controller/controllers.go
package controller

import "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/service"

type Controllers struct {
	Decision   *DecisionController
	Approval   *ApprovalController
	Credential *CredentialController
	Snapshot   *SnapshotController
	Policy     *PolicyController
	Audit      *AuditController
}

func InitializeControllers(services *service.Services) *Controllers {
	controllers := &Controllers{
		Decision:   NewDecisionController(services.Decision),
		Approval:   NewApprovalController(services.Approval),
		Credential: NewCredentialController(services.Credential),
		Snapshot:   NewSnapshotController(services.Snapshot),
		Audit:      NewAuditController(services.Audit),
	}
	if services.Policy != nil {
		controllers.Policy = NewPolicyController(services.Policy)
	}
	return controllers
}
