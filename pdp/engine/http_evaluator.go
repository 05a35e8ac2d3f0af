package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	pdp_model "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/pdp/model"
)

// HTTPEvaluator posts the evaluation contract to a remote decision service and
// expects {"decision":"allow|deny|pending:<id>"} back.
type HTTPEvaluator struct {
	url    string
	client *http.Client
}

type httpDecision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func NewHTTPEvaluator(url string, timeout time.Duration) *HTTPEvaluator {
	if timeout <= 0 {
		timeout = DefaultEvaluatorTimeout
	}
	return &HTTPEvaluator{url: url, client: &http.Client{Timeout: timeout}}
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (pdp_model.EvaluationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return pdp_model.EvaluationResponse{}, fmt.Errorf("failed to marshal evaluation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: %v", gw_errors.ErrPolicyUnreachable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: %v", gw_errors.ErrPolicyUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: status %d: %s", gw_errors.ErrPolicyUnreachable, resp.StatusCode, snippet)
	}

	var out httpDecision
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: invalid response body: %v", gw_errors.ErrPolicyUnreachable, err)
	}
	parsed, err := pdp_model.ParseEvaluationResponse(out.Decision)
	if err != nil {
		return pdp_model.EvaluationResponse{}, fmt.Errorf("%w: %v", gw_errors.ErrPolicyUnreachable, err)
	}
	parsed.Reason = out.Reason
	return parsed, nil
}
