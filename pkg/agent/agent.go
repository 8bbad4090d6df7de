// Package agent provides the HTTP adapter for the companion's agent backend.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Minute

// HTTPInvoker posts invocation requests to the agent backend and returns the
// full text result.
type HTTPInvoker struct {
	baseURL string
	client  *http.Client
}

type invokeRequest struct {
	AgentID string `json:"agent_id"`
	Prompt  string `json:"prompt"`
	ModelID string `json:"model_id,omitempty"`
}

type invokeResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func NewHTTPInvoker(baseURL string) *HTTPInvoker {
	return &HTTPInvoker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (a *HTTPInvoker) Invoke(ctx context.Context, agentID, prompt, modelID string) (string, error) {
	payload, err := json.Marshal(invokeRequest{
		AgentID: agentID,
		Prompt:  prompt,
		ModelID: modelID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/invoke", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent backend returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded invokeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode agent response: %w", err)
	}

	if decoded.Error != "" {
		return "", fmt.Errorf("agent %s failed: %s", agentID, decoded.Error)
	}

	return decoded.Result, nil
}
