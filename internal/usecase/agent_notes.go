package usecase

import (
	"context"
	"strings"

	"github.com/dorae/dorae/internal/domain"
)

// AddAgentNoteInput contains the parameters for adding a note to an agent.
type AddAgentNoteInput struct {
	AgentID string
	Content string
}

// AddAgentNoteOutput contains the appended note.
type AddAgentNoteOutput struct {
	Note domain.Update
}

// AddAgentNote appends a note to an agent. Notes reach the oracle as agent context.
type AddAgentNote struct {
	agents domain.AgentRepository
	ids    domain.IDGenerator
	clock  domain.Clock
}

// NewAddAgentNote creates a new AddAgentNote use case.
func NewAddAgentNote(agents domain.AgentRepository, ids domain.IDGenerator, clock domain.Clock) *AddAgentNote {
	return &AddAgentNote{agents: agents, ids: ids, clock: clock}
}

// Execute appends the note.
func (uc *AddAgentNote) Execute(ctx context.Context, in AddAgentNoteInput) (*AddAgentNoteOutput, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	note := newUpdate(uc.ids, uc.clock.Now(), domain.UpdateNote, content, nil)
	if err := uc.agents.AppendNote(ctx, in.AgentID, note); err != nil {
		return nil, domain.Persistence("append note", err)
	}
	return &AddAgentNoteOutput{Note: note}, nil
}

// EditAgentNoteInput contains the parameters for editing a note.
type EditAgentNoteInput struct {
	AgentID string
	NoteID  string
	Content string
}

// EditAgentNote replaces a note's content.
type EditAgentNote struct {
	agents domain.AgentRepository
	clock  domain.Clock
}

// NewEditAgentNote creates a new EditAgentNote use case.
func NewEditAgentNote(agents domain.AgentRepository, clock domain.Clock) *EditAgentNote {
	return &EditAgentNote{agents: agents, clock: clock}
}

// Execute edits the note.
func (uc *EditAgentNote) Execute(ctx context.Context, in EditAgentNoteInput) error {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.ErrEmptyMessage
	}
	if err := uc.agents.EditNote(ctx, in.AgentID, in.NoteID, content, uc.clock.Now()); err != nil {
		return domain.Persistence("edit note", err)
	}
	return nil
}

// DeleteAgentNoteInput contains the parameters for removing a note.
type DeleteAgentNoteInput struct {
	AgentID string
	NoteID  string
}

// DeleteAgentNote removes a note by ID. Absent IDs are a no-op.
type DeleteAgentNote struct {
	agents domain.AgentRepository
}

// NewDeleteAgentNote creates a new DeleteAgentNote use case.
func NewDeleteAgentNote(agents domain.AgentRepository) *DeleteAgentNote {
	return &DeleteAgentNote{agents: agents}
}

// Execute removes the note.
func (uc *DeleteAgentNote) Execute(ctx context.Context, in DeleteAgentNoteInput) error {
	if err := uc.agents.DeleteNote(ctx, in.AgentID, in.NoteID); err != nil {
		return domain.Persistence("delete note", err)
	}
	return nil
}
