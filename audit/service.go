// audit/service.go
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
)

type Service interface {
	LogDecision(ctx context.Context, log DecisionLog) error
	// LogDecisionAsync writes the entry in the background with its own timeout.
	LogDecisionAsync(log DecisionLog)
	QueryLogs(ctx context.Context, from, to time.Time, identity, service string) ([]DecisionLog, error)
}

type service struct {
	repo    Repository
	timeout time.Duration
}

func NewService(repo Repository, timeout time.Duration) Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &service{repo: repo, timeout: timeout}
}

func (s *service) LogDecision(ctx context.Context, log DecisionLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	return s.repo.LogDecision(ctx, log)
}

func (s *service) LogDecisionAsync(log DecisionLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.LogDecision(ctx, log); err != nil {
			logger.Warn("Failed to write decision audit log",
				zap.String("identity", log.CallerIdentity),
				zap.String("service", log.ServiceName),
				zap.Error(err))
		}
	}()
}

func (s *service) QueryLogs(ctx context.Context, from, to time.Time, identity, service string) ([]DecisionLog, error) {
	return s.repo.QueryLogs(ctx, from, to, identity, service)
}
