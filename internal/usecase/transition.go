package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// staleRetries bounds how often a change is recomputed after the stored
// status moved underneath it.
const staleRetries = 3

// targetFunc picks the target status for a task as currently stored.
type targetFunc func(task *domain.Task) (domain.Status, error)

func fixedTarget(target domain.Status) targetFunc {
	return func(*domain.Task) (domain.Status, error) { return target, nil }
}

// transitioner moves one task through the lifecycle and persists the result
// as a single conditional Apply (fields plus audit updates).
type transitioner struct {
	tasks  domain.TaskRepository
	ids    domain.IDGenerator
	clock  domain.Clock
	logger domain.Logger
}

func (tr transitioner) run(ctx context.Context, taskID string, target domain.Status) (*domain.Task, bool, error) {
	task, _, changed, err := tr.runFrom(ctx, taskID, nil, fixedTarget(target))
	return task, changed, err
}

// runFrom transitions the task to pick's target. When another writer changed
// the status first, the task is re-read and the target picked again.
// A nil task is loaded by ID.
func (tr transitioner) runFrom(ctx context.Context, taskID string, task *domain.Task, pick targetFunc) (*domain.Task, domain.Status, bool, error) {
	for attempt := 0; ; attempt++ {
		if task == nil {
			var err error
			if task, err = shared.GetTask(ctx, tr.tasks, taskID); err != nil {
				return nil, "", false, err
			}
		}
		target, err := pick(task)
		if err != nil {
			return nil, "", false, err
		}
		out, changed, err := tr.apply(ctx, task, target)
		if errors.Is(err, domain.ErrStaleTask) && attempt < staleRetries {
			task = nil
			continue
		}
		return out, target, changed, err
	}
}

func (tr transitioner) apply(ctx context.Context, task *domain.Task, target domain.Status) (*domain.Task, bool, error) {
	from := task.Status
	updates, changed, err := task.Transition(target, tr.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return task, false, nil
	}

	updates = assignIDs(tr.ids, updates)
	fields := task.TaskFields
	change := domain.TaskChange{Fields: &fields, ExpectStatus: from, Append: updates}
	if err := tr.tasks.Apply(ctx, task.ID, change); err != nil {
		return nil, false, domain.Persistence("save task", err)
	}
	task.Updates = append(task.Updates, updates...)

	if tr.logger != nil {
		tr.logger.Info(task.ID, "task", fmt.Sprintf("status: %s -> %s", from, target))
	}
	return task, true, nil
}
