package credential

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
)

// RegoQuery is the rule a selection policy must define.
const RegoQuery = "data.broker.credentials.credential"

// SelectionRequest carries request metadata only. Selectors never see secrets.
type SelectionRequest struct {
	Service   string            `json:"service"`
	Operation string            `json:"operation,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Tenant    string            `json:"tenant,omitempty"`
	Identity  string            `json:"identity,omitempty"`
}

// Selector picks the credential definition for a request.
type Selector interface {
	Select(ctx context.Context, req SelectionRequest) (string, error)
}

// StaticSelector maps each service to one credential.
type StaticSelector struct {
	byService map[string]string
	fallback  string
}

func NewStaticSelector(byService map[string]string, fallback string) *StaticSelector {
	m := make(map[string]string, len(byService))
	for k, v := range byService {
		m[k] = v
	}
	return &StaticSelector{byService: m, fallback: fallback}
}

func (s *StaticSelector) Select(_ context.Context, req SelectionRequest) (string, error) {
	if name, ok := s.byService[req.Service]; ok && name != "" {
		return name, nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", fmt.Errorf("%w: no credential configured for service %q", gw_errors.ErrConfiguration, req.Service)
}

// RegoSelector evaluates a rego policy whose credential rule yields a
// definition name for the request.
type RegoSelector struct {
	query    rego.PreparedEvalQuery
	fallback string
}

func NewRegoSelector(ctx context.Context, module, fallback string) (*RegoSelector, error) {
	r := rego.New(
		rego.Query(RegoQuery),
		rego.Module("credentials.rego", module),
	)
	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to prepare credential selection policy: %v", gw_errors.ErrConfiguration, err)
	}
	return &RegoSelector{query: pq, fallback: fallback}, nil
}

func (s *RegoSelector) Select(ctx context.Context, req SelectionRequest) (string, error) {
	input := map[string]any{
		"service":   req.Service,
		"operation": req.Operation,
		"metadata":  req.Metadata,
		"tenant":    req.Tenant,
		"identity":  req.Identity,
	}
	rs, err := s.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("%w: credential selection failed: %v", gw_errors.ErrConfiguration, err)
	}

	var name string
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		name, _ = rs[0].Expressions[0].Value.(string)
	}
	if name == "" {
		name = s.fallback
	}
	if name == "" {
		return "", fmt.Errorf("%w: policy selected no credential for service %q", gw_errors.ErrConfiguration, req.Service)
	}
	return name, nil
}
