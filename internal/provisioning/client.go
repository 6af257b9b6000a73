// Package provisioning forwards business profiles to the external agent-building workflow.
package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidProfile = errors.New("provisioning: name and address are required")
	ErrMissingAgent   = errors.New("provisioning: agent id required")
	ErrNotConfigured  = errors.New("provisioning: webhook url not configured")
	// ErrWebhookFailed covers transport errors and non-2xx answers from the workflow.
	ErrWebhookFailed = errors.New("provisioning: webhook failed")
)

// maxResponseBytes bounds how much of the workflow's answer is read.
const maxResponseBytes = 1 << 20

// BusinessProfile is what the dashboard collects from a place lookup.
type BusinessProfile struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Website string   `json:"website,omitempty"`
	PlaceID string   `json:"place_id,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Types   []string `json:"types,omitempty"`
}

func (p BusinessProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Address) == "" {
		return ErrInvalidProfile
	}
	return nil
}

// Agent is the workflow's answer. Raw keeps the whole response for the caller.
type Agent struct {
	ID  string         `json:"agent_id"`
	Raw map[string]any `json:"data"`
}

type Client struct {
	webhookURL string
	http       *http.Client
}

func NewClient(webhookURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{webhookURL: webhookURL, http: &http.Client{Timeout: timeout}}
}

type webhookBody struct {
	Input   string   `json:"input"`
	Website string   `json:"website"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	PlaceID string   `json:"place_id"`
	Phone   string   `json:"phone"`
	Types   []string `json:"types"`
}

// CreateAgent posts the profile and extracts the provisioned agent id.
func (c *Client) CreateAgent(ctx context.Context, p BusinessProfile) (Agent, error) {
	if err := p.Validate(); err != nil {
		return Agent{}, err
	}
	types := p.Types
	if types == nil {
		types = []string{}
	}
	payload := map[string]webhookBody{"body": {
		Input:   p.Name + " - " + p.Address,
		Website: p.Website,
		Name:    p.Name,
		Address: p.Address,
		PlaceID: p.PlaceID,
		Phone:   p.Phone,
		Types:   types,
	}}

	data, err := c.post(ctx, payload)
	if err != nil {
		return Agent{}, err
	}
	return Agent{ID: agentID(data), Raw: data}, nil
}

// StartCall asks the workflow to place a test call through an existing agent.
func (c *Client) StartCall(ctx context.Context, agentID string) (map[string]any, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, ErrMissingAgent
	}
	return c.post(ctx, map[string]string{"agentId": agentID})
}

func (c *Client) post(ctx context.Context, payload any) (map[string]any, error) {
	if c.webhookURL == "" {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWebhookFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrWebhookFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrWebhookFailed, resp.StatusCode)
	}
	return decodeResponse(raw)
}

// decodeResponse accepts an object, a one-element array of objects, or an empty body.
func decodeResponse(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if raw[0] == '[' {
		var arr []map[string]any
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("%w: decode response: %w", ErrWebhookFailed, err)
		}
		if len(arr) > 0 {
			obj = arr[0]
		}
	} else if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrWebhookFailed, err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

func agentID(data map[string]any) string {
	for _, key := range []string{"agentId", "agent_id", "id"} {
		switch v := data[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
