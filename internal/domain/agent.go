package domain

import (
	"slices"
	"time"
)

// AgentStatus is an advisory activity tag.
type AgentStatus string

const (
	AgentIdle    AgentStatus = "idle"
	AgentBusy    AgentStatus = "busy"
	AgentFocused AgentStatus = "focused"
)

// IsValid returns true if the status is a known value.
func (s AgentStatus) IsValid() bool {
	return s == AgentIdle || s == AgentBusy || s == AgentFocused
}

// Agent is a configured AI persona with a gated set of skills.
type Agent struct {
	Created     time.Time   `json:"created_at" yaml:"created_at"`
	ID          string      `json:"id" yaml:"-"`
	Name        string      `json:"name" yaml:"name"`
	Role        string      `json:"role" yaml:"role"`
	Description string      `json:"description" yaml:"description"`
	Status      AgentStatus `json:"status" yaml:"status"`
	Skills      []Skill     `json:"skills" yaml:"skills"`
	Notes       []Update    `json:"notes" yaml:"notes"`
	Folders     []string    `json:"folders" yaml:"folders"`
}

// EditNote replaces the content of the note with the given id.
func (a *Agent) EditNote(noteID, content string, editedAt time.Time) error {
	for i := range a.Notes {
		if a.Notes[i].ID == noteID {
			a.Notes[i].Content = content
			edited := editedAt
			a.Notes[i].LastEditedAt = &edited
			return nil
		}
	}
	return ErrNoteNotFound
}

// RemoveNote removes the note with the given id. Removing an absent id is a no-op.
func (a *Agent) RemoveNote(noteID string) {
	a.Notes = slices.DeleteFunc(a.Notes, func(n Update) bool { return n.ID == noteID })
}

// Clone returns a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	c := *a
	c.Skills = slices.Clone(a.Skills)
	c.Notes = slices.Clone(a.Notes)
	c.Folders = slices.Clone(a.Folders)
	return &c
}

// AgentContext is the agent information surfaced to the oracle.
type AgentContext struct {
	ID          string
	Name        string
	Role        string
	Description string
	Skills      []Skill
	Notes       []string
}

// Context builds the oracle view of the agent.
func (a *Agent) Context() *AgentContext {
	notes := make([]string, 0, len(a.Notes))
	for _, n := range a.Notes {
		notes = append(notes, n.Content)
	}
	return &AgentContext{
		ID:          a.ID,
		Name:        a.Name,
		Role:        a.Role,
		Description: a.Description,
		Skills:      EnabledSkills(a),
		Notes:       notes,
	}
}
