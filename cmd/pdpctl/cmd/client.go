package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/credential"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

// Client provides HTTP access to the PDP management API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/api/v1",
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// ApprovalList is one page of approvals.
type ApprovalList struct {
	Approvals []*model.PendingApproval `json:"approvals"`
	Total     int                      `json:"total"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
}

func (c *Client) ListApprovals(ctx context.Context, status string, limit, offset int) (*ApprovalList, error) {
	q := url.Values{}
	q.Set("status", status)
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	var list ApprovalList
	if err := c.do(ctx, http.MethodGet, "/approvals?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) Approve(ctx context.Context, id, reason string) (*model.PendingApproval, error) {
	return c.decide(ctx, id, "approve", reason)
}

func (c *Client) Deny(ctx context.Context, id, reason string) (*model.PendingApproval, error) {
	return c.decide(ctx, id, "deny", reason)
}

func (c *Client) decide(ctx context.Context, id, action, reason string) (*model.PendingApproval, error) {
	var rec model.PendingApproval
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPost, "/approvals/"+url.PathEscape(id)+"/"+action, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) ExecutionResult(ctx context.Context, id string) (*model.ExecutionResult, error) {
	var res model.ExecutionResult
	if err := c.do(ctx, http.MethodGet, "/approvals/"+url.PathEscape(id)+"/execution", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ClearResolved(ctx context.Context) (int, error) {
	var res struct {
		Cleared int `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodDelete, "/approvals/resolved", nil, &res); err != nil {
		return 0, err
	}
	return res.Cleared, nil
}

func (c *Client) TestInjection(ctx context.Context, req credential.InjectRequest) (*credential.Injection, error) {
	var inj credential.Injection
	if err := c.do(ctx, http.MethodPost, "/credentials/test-injection", req, &inj); err != nil {
		return nil, err
	}
	return &inj, nil
}

func (c *Client) ClearCredentialCache(ctx context.Context, name string) (int, error) {
	path := "/credentials/cache"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	var res struct {
		Cleared int `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, &res); err != nil {
		return 0, err
	}
	return res.Cleared, nil
}

func (c *Client) Snapshot(ctx context.Context) (*model.PolicySnapshot, error) {
	var snap model.PolicySnapshot
	if err := c.do(ctx, http.MethodGet, "/snapshot", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, result any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
