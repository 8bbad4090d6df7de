// Package integration dispatches automation steps to connected third-party
// services.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrNotConnected is returned when a step names an integration the user has
// not connected (no credentials configured).
var ErrNotConnected = errors.New("integration is not connected")

// Connection holds the endpoint and credentials of one connected integration.
type Connection struct {
	IntegrationID string
	Endpoint      string
	Token         string
}

// Gateway keeps the connection registry and executes integration actions over
// HTTP against each connection's endpoint.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]Connection
	client      *http.Client
}

type executeRequest struct {
	Action string            `json:"action"`
	Args   map[string]string `json:"args,omitempty"`
}

type executeResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func NewGateway() *Gateway {
	return &Gateway{
		connections: make(map[string]Connection),
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Connect registers or replaces an integration connection.
func (g *Gateway) Connect(conn Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.connections[conn.IntegrationID] = conn
}

// Disconnect removes an integration connection.
func (g *Gateway) Disconnect(integrationID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.connections, integrationID)
}

func (g *Gateway) Execute(ctx context.Context, integrationID, action string, args map[string]string) (string, error) {
	g.mu.RLock()
	conn, ok := g.connections[integrationID]
	g.mu.RUnlock()

	if !ok || conn.Token == "" {
		return "", fmt.Errorf("%w: %s", ErrNotConnected, integrationID)
	}

	payload, err := json.Marshal(executeRequest{Action: action, Args: args})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conn.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+conn.Token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("integration %s unreachable: %w", integrationID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("integration %s returned %d: %s", integrationID, resp.StatusCode, string(body))
	}

	var decoded executeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode integration response: %w", err)
	}

	if decoded.Error != "" {
		return "", fmt.Errorf("integration %s action %s failed: %s", integrationID, action, decoded.Error)
	}

	return decoded.Result, nil
}
