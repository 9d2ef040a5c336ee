package usecase

import (
	"cmp"
	"context"
	"slices"

	"github.com/dorae/dorae/internal/domain"
)

// ListTasksInput contains the parameters for listing tasks.
type ListTasksInput struct {
	Statuses []domain.Status // Filter by status (empty = Active and Closed)
	Label    string          // Filter by label
	FolderID string          // Filter by folder
	Owner    string          // Filter by owner
	AgentID  string          // Filter by assigned agent
}

// ListTasksOutput contains the result of listing tasks.
type ListTasksOutput struct {
	Tasks []*domain.Task // Tasks matching the filter
}

// ListTasks is the use case for listing tasks.
type ListTasks struct {
	tasks domain.TaskRepository
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(tasks domain.TaskRepository) *ListTasks {
	return &ListTasks{tasks: tasks}
}

// Execute lists tasks matching the given input criteria.
// Deleted and Archived tasks are only returned when asked for by status.
func (uc *ListTasks) Execute(ctx context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	for _, s := range in.Statuses {
		if !s.IsValid() {
			return nil, domain.ErrInvalidStatus
		}
	}
	tasks, err := uc.tasks.List(ctx, domain.TaskFilter{
		Statuses:        in.Statuses,
		Label:           in.Label,
		FolderID:        in.FolderID,
		Owner:           in.Owner,
		AssignedAgentID: in.AgentID,
	})
	if err != nil {
		return nil, domain.Persistence("list tasks", err)
	}
	sortTasks(tasks)
	return &ListTasksOutput{Tasks: tasks}, nil
}

// ListTrashInput contains the parameters for listing the trash.
type ListTrashInput struct {
	Owner string // Filter by owner (optional)
}

// ListTrash lists soft-deleted tasks. Archived tasks never appear.
type ListTrash struct {
	tasks domain.TaskRepository
}

// NewListTrash creates a new ListTrash use case.
func NewListTrash(tasks domain.TaskRepository) *ListTrash {
	return &ListTrash{tasks: tasks}
}

// Execute returns Deleted tasks, most recently deleted first.
func (uc *ListTrash) Execute(ctx context.Context, in ListTrashInput) (*ListTasksOutput, error) {
	tasks, err := uc.tasks.List(ctx, domain.TaskFilter{
		Statuses: []domain.Status{domain.StatusDeleted},
		Owner:    in.Owner,
	})
	if err != nil {
		return nil, domain.Persistence("list trash", err)
	}
	slices.SortStableFunc(tasks, func(a, b *domain.Task) int {
		return cmp.Compare(deletedAt(b), deletedAt(a))
	})
	return &ListTasksOutput{Tasks: tasks}, nil
}

func deletedAt(t *domain.Task) int64 {
	if t.DeletedAt == nil {
		return 0
	}
	return t.DeletedAt.UnixNano()
}

// sortTasks orders tasks by manual order, then creation time, then ID.
func sortTasks(tasks []*domain.Task) {
	slices.SortStableFunc(tasks, func(a, b *domain.Task) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
