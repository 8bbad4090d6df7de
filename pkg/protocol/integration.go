package protocol

import "context"

// IntegrationGateway executes an action against a connected third-party
// integration (Notion, GitHub, calendar, database). Execution fails when the
// integration lacks required credentials.
type IntegrationGateway interface {
	Execute(ctx context.Context, integrationID, action string, args map[string]string) (string, error)
}
