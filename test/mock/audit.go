// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogDecision(ctx context.Context, log audit.DecisionLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditService) LogDecisionAsync(log audit.DecisionLog) {
	m.Called(log)
}

func (m *MockAuditService) QueryLogs(ctx context.Context, from, to time.Time, identity, service string) ([]audit.DecisionLog, error) {
	args := m.Called(ctx, from, to, identity, service)
	return args.Get(0).([]audit.DecisionLog), args.Error(1)
}
