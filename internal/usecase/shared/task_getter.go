// Package shared holds lookups reused across use cases.
package shared

import (
	"context"
	"fmt"
	"strings"

	"github.com/dorae/dorae/internal/domain"
)

// GetTask retrieves a task by ID and returns domain.ErrTaskNotFound if not found.
// This centralizes the common pattern of:
//
//	task, err := repo.Get(ctx, taskID)
//	if err != nil { return nil, fmt.Errorf("get task: %w", err) }
//	if task == nil { return nil, domain.ErrTaskNotFound }
func GetTask(ctx context.Context, repo domain.TaskRepository, taskID string) (*domain.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, fmt.Errorf("task id: %w", domain.ErrInvalidInput)
	}
	task, err := repo.Get(ctx, taskID)
	if err != nil {
		return nil, domain.Persistence("get task", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// GetAgent retrieves an agent by ID and returns domain.ErrAgentNotFound if not found.
func GetAgent(ctx context.Context, repo domain.AgentRepository, agentID string) (*domain.Agent, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("agent id: %w", domain.ErrInvalidInput)
	}
	agent, err := repo.Get(ctx, agentID)
	if err != nil {
		return nil, domain.Persistence("get agent", err)
	}
	if agent == nil {
		return nil, domain.ErrAgentNotFound
	}
	return agent, nil
}
