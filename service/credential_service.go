// service/credential_service.go
package service

import (
	"context"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/credential"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// ICredentialService defines credential injection and its admin operations
type ICredentialService interface {
	Inject(ctx context.Context, req credential.InjectRequest) (*credential.Injection, error)
	TestInjection(ctx context.Context, req credential.InjectRequest) (*credential.Injection, error)
	ClearCache(name string) int
	Definitions() []model.CredentialDefinition
}

// The broker carries no extra business logic at this layer.
var _ ICredentialService = &credential.Broker{}
