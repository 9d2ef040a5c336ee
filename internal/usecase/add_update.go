package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dorae/dorae/internal/domain"
)

// AddUpdateInput contains the parameters for adding an update.
// Fields are ordered to minimize memory padding.
type AddUpdateInput struct {
	Provenance *domain.Provenance // Acting agent and skill (optional)
	TaskID     string             // Task ID (required)
	Content    string             // Update text (required)
	Type       domain.UpdateType  // Entry tag (optional, default note)
}

// AddUpdateOutput contains the result of adding an update.
type AddUpdateOutput struct {
	Update domain.Update // The appended update
}

// AddUpdate is the use case for appending an entry to a task's log.
// The append is a single atomic store operation and never rewrites earlier entries.
type AddUpdate struct {
	tasks  domain.TaskRepository
	ids    domain.IDGenerator
	clock  domain.Clock
	logger domain.Logger
}

// NewAddUpdate creates a new AddUpdate use case.
func NewAddUpdate(tasks domain.TaskRepository, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *AddUpdate {
	return &AddUpdate{
		tasks:  tasks,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// Execute appends the update.
func (uc *AddUpdate) Execute(ctx context.Context, in AddUpdateInput) (*AddUpdateOutput, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return nil, fmt.Errorf("task id: %w", domain.ErrInvalidInput)
	}
	typ := in.Type
	if typ == "" {
		typ = domain.UpdateNote
	}

	u := newUpdate(uc.ids, uc.clock.Now(), typ, content, in.Provenance)
	if err := uc.tasks.AppendUpdate(ctx, in.TaskID, u); err != nil {
		return nil, domain.Persistence("append update", err)
	}

	if uc.logger != nil {
		uc.logger.Debug(in.TaskID, "task", fmt.Sprintf("update %s (%s) appended", u.ID, typ))
	}
	return &AddUpdateOutput{Update: u}, nil
}
