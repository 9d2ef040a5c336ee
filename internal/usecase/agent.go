package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// CreateAgentInput contains the parameters for creating an agent.
type CreateAgentInput struct {
	Name        string   // Display name (required)
	Role        string   // Role (optional)
	Description string   // Persona description (optional)
	Status      string   // idle, busy or focused (optional, default idle)
	Skills      []string // Skill names, validated against the registry
	Folders     []string // Folders the agent works in
}

// AgentOutput contains a single agent.
type AgentOutput struct {
	Agent *domain.Agent
}

// CreateAgent is the use case for configuring a new agent.
type CreateAgent struct {
	agents domain.AgentRepository
	clock  domain.Clock
	logger domain.Logger
}

// NewCreateAgent creates a new CreateAgent use case.
func NewCreateAgent(agents domain.AgentRepository, clock domain.Clock, logger domain.Logger) *CreateAgent {
	return &CreateAgent{agents: agents, clock: clock, logger: logger}
}

// Execute creates the agent.
func (uc *CreateAgent) Execute(ctx context.Context, in CreateAgentInput) (*AgentOutput, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrEmptyName
	}
	skills, err := domain.ParseSkills(in.Skills)
	if err != nil {
		return nil, err
	}
	status, err := parseAgentStatus(in.Status)
	if err != nil {
		return nil, err
	}

	agent := &domain.Agent{
		Name:        name,
		Role:        strings.TrimSpace(in.Role),
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Skills:      skills,
		Folders:     normalizeLabels(in.Folders),
		Created:     uc.clock.Now(),
	}
	if err := uc.agents.Insert(ctx, agent); err != nil {
		return nil, domain.Persistence("insert agent", err)
	}

	if uc.logger != nil {
		uc.logger.Info("", "agent", fmt.Sprintf("created %s (%s) skills=%v", agent.Name, agent.ID, agent.Skills))
	}
	return &AgentOutput{Agent: agent}, nil
}

func parseAgentStatus(s string) (domain.AgentStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return domain.AgentIdle, nil
	}
	st := domain.AgentStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: agent status %q", domain.ErrInvalidInput, s)
	}
	return st, nil
}

// ShowAgentInput contains the parameters for showing an agent.
type ShowAgentInput struct {
	AgentID string
}

// ShowAgent is the use case for displaying an agent.
type ShowAgent struct {
	agents domain.AgentRepository
}

// NewShowAgent creates a new ShowAgent use case.
func NewShowAgent(agents domain.AgentRepository) *ShowAgent {
	return &ShowAgent{agents: agents}
}

// Execute returns the agent.
func (uc *ShowAgent) Execute(ctx context.Context, in ShowAgentInput) (*AgentOutput, error) {
	agent, err := shared.GetAgent(ctx, uc.agents, in.AgentID)
	if err != nil {
		return nil, err
	}
	return &AgentOutput{Agent: agent}, nil
}

// ListAgentsOutput contains all agents.
type ListAgentsOutput struct {
	Agents []*domain.Agent
}

// ListAgents is the use case for listing agents.
type ListAgents struct {
	agents domain.AgentRepository
}

// NewListAgents creates a new ListAgents use case.
func NewListAgents(agents domain.AgentRepository) *ListAgents {
	return &ListAgents{agents: agents}
}

// Execute lists agents in creation order.
func (uc *ListAgents) Execute(ctx context.Context) (*ListAgentsOutput, error) {
	agents, err := uc.agents.List(ctx)
	if err != nil {
		return nil, domain.Persistence("list agents", err)
	}
	return &ListAgentsOutput{Agents: agents}, nil
}

// EditAgentInput contains the parameters for editing an agent.
// Nil fields are left unchanged.
type EditAgentInput struct {
	Name        *string
	Role        *string
	Description *string
	Status      *string
	Skills      *[]string
	Folders     *[]string
	AgentID     string
}

// EditAgent is the use case for editing an agent's profile and skills.
// Skill changes take effect at the next gate check; running timers are not touched.
type EditAgent struct {
	agents domain.AgentRepository
	logger domain.Logger
}

// NewEditAgent creates a new EditAgent use case.
func NewEditAgent(agents domain.AgentRepository, logger domain.Logger) *EditAgent {
	return &EditAgent{agents: agents, logger: logger}
}

// Execute applies the edit.
func (uc *EditAgent) Execute(ctx context.Context, in EditAgentInput) (*AgentOutput, error) {
	if in.Name == nil && in.Role == nil && in.Description == nil && in.Status == nil && in.Skills == nil && in.Folders == nil {
		return nil, domain.ErrNoFieldsToUpdate
	}

	agent, err := shared.GetAgent(ctx, uc.agents, in.AgentID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrEmptyName
		}
		agent.Name = name
	}
	if in.Role != nil {
		agent.Role = strings.TrimSpace(*in.Role)
	}
	if in.Description != nil {
		agent.Description = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		st, err := parseAgentStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		agent.Status = st
	}
	if in.Skills != nil {
		skills, err := domain.ParseSkills(*in.Skills)
		if err != nil {
			return nil, err
		}
		agent.Skills = skills
	}
	if in.Folders != nil {
		agent.Folders = normalizeLabels(*in.Folders)
	}

	if err := uc.agents.Save(ctx, agent); err != nil {
		return nil, domain.Persistence("save agent", err)
	}
	if uc.logger != nil {
		uc.logger.Info("", "agent", fmt.Sprintf("edited %s (%s)", agent.Name, agent.ID))
	}
	return &AgentOutput{Agent: agent}, nil
}

// DeleteAgentInput contains the parameters for deleting an agent.
type DeleteAgentInput struct {
	AgentID string
}

// DeleteAgent removes an agent. Its timer jobs are left in place; they keep
// ticking and fail the agent lookup until stopped explicitly.
type DeleteAgent struct {
	agents domain.AgentRepository
	logger domain.Logger
}

// NewDeleteAgent creates a new DeleteAgent use case.
func NewDeleteAgent(agents domain.AgentRepository, logger domain.Logger) *DeleteAgent {
	return &DeleteAgent{agents: agents, logger: logger}
}

// Execute deletes the agent.
func (uc *DeleteAgent) Execute(ctx context.Context, in DeleteAgentInput) error {
	existed, err := uc.agents.Delete(ctx, in.AgentID)
	if err != nil {
		return domain.Persistence("delete agent", err)
	}
	if !existed {
		return domain.ErrAgentNotFound
	}
	if uc.logger != nil {
		uc.logger.Info("", "agent", fmt.Sprintf("deleted %s", in.AgentID))
	}
	return nil
}
