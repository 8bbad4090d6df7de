// Package mocks provides testify mocks for the engine's collaborator contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/voxhq/automata/pkg/models"
)

// MockAgentInvoker is a mock implementation of protocol.AgentInvoker.
type MockAgentInvoker struct {
	mock.Mock
}

func (m *MockAgentInvoker) Invoke(ctx context.Context, agentID, prompt, modelID string) (string, error) {
	args := m.Called(ctx, agentID, prompt, modelID)

	return args.String(0), args.Error(1)
}

// MockVaultStore is a mock implementation of protocol.VaultStore.
type MockVaultStore struct {
	mock.Mock
}

func (m *MockVaultStore) Write(ctx context.Context, path, content string, mode models.WriteMode) error {
	args := m.Called(ctx, path, content, mode)

	return args.Error(0)
}

func (m *MockVaultStore) List(ctx context.Context, subdirectory string) ([]string, error) {
	args := m.Called(ctx, subdirectory)

	entries, _ := args.Get(0).([]string)

	return entries, args.Error(1)
}

// MockIntegrationGateway is a mock implementation of protocol.IntegrationGateway.
type MockIntegrationGateway struct {
	mock.Mock
}

func (m *MockIntegrationGateway) Execute(ctx context.Context, integrationID, action string, callArgs map[string]string) (string, error) {
	args := m.Called(ctx, integrationID, action, callArgs)

	return args.String(0), args.Error(1)
}
