package usecase

import (
	"context"
	"strings"

	"github.com/dorae/dorae/internal/domain"
)

// EditUpdateInput contains the parameters for editing an update.
type EditUpdateInput struct {
	TaskID   string // Task ID (required)
	UpdateID string // Update ID (required)
	Content  string // New text (required)
}

// EditUpdate is the use case for replacing an update's content.
// Only Content and LastEditedAt change; type, timestamp and provenance are kept.
type EditUpdate struct {
	tasks domain.TaskRepository
	clock domain.Clock
}

// NewEditUpdate creates a new EditUpdate use case.
func NewEditUpdate(tasks domain.TaskRepository, clock domain.Clock) *EditUpdate {
	return &EditUpdate{
		tasks: tasks,
		clock: clock,
	}
}

// Execute edits the update.
func (uc *EditUpdate) Execute(ctx context.Context, in EditUpdateInput) error {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.ErrEmptyMessage
	}
	if strings.TrimSpace(in.UpdateID) == "" {
		return domain.ErrUpdateNotFound
	}
	if err := uc.tasks.EditUpdate(ctx, in.TaskID, in.UpdateID, content, uc.clock.Now()); err != nil {
		return domain.Persistence("edit update", err)
	}
	return nil
}

// DeleteUpdateInput contains the parameters for removing an update.
type DeleteUpdateInput struct {
	TaskID   string // Task ID (required)
	UpdateID string // Update ID (required)
}

// DeleteUpdate is the use case for removing an update by ID.
// Removing an ID that is not present succeeds.
type DeleteUpdate struct {
	tasks domain.TaskRepository
}

// NewDeleteUpdate creates a new DeleteUpdate use case.
func NewDeleteUpdate(tasks domain.TaskRepository) *DeleteUpdate {
	return &DeleteUpdate{tasks: tasks}
}

// Execute removes the update.
func (uc *DeleteUpdate) Execute(ctx context.Context, in DeleteUpdateInput) error {
	if err := uc.tasks.DeleteUpdate(ctx, in.TaskID, in.UpdateID); err != nil {
		return domain.Persistence("delete update", err)
	}
	return nil
}
