package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/db"
	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

// RateLimitEvaluator allows a gated tool while the caller stays under limit
// calls per window.
type RateLimitEvaluator struct {
	client redis.Cmdable
	limit  int
	window time.Duration
}

func NewRateLimitEvaluator(client redis.Cmdable, limit int, window time.Duration) *RateLimitEvaluator {
	return &RateLimitEvaluator{client: client, limit: limit, window: window}
}

func (e *RateLimitEvaluator) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (pdp_model.EvaluationResponse, error) {
	key := fmt.Sprintf("pdp:%s:%s.%s", req.CallerIdentity, req.ServiceName, req.ToolName)
	allowed, err := db.RateLimit(ctx, e.client, key, e.limit, e.window)
	if err != nil {
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: %v", gw_errors.ErrPolicyUnreachable, err)
	}
	if !allowed {
		return pdp_model.EvaluationResponse{
			Outcome: pdp_model.OutcomeDeny,
			Reason:  fmt.Sprintf("rate limit of %d per %s exceeded", e.limit, e.window),
		}, nil
	}
	return pdp_model.EvaluationResponse{Outcome: pdp_model.OutcomeAllow}, nil
}
