package interfaces

import (
	"context"

	agent "main/internal/domain/entity/agent"
)

// AgentRepository persists agent state between restarts.
type AgentRepository interface {
	Save(ctx context.Context, a *agent.Agent) error
	Get(ctx context.Context, productID string) (*agent.Agent, error)
	List(ctx context.Context) ([]agent.Agent, error)
	Close()
}
