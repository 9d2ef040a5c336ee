package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dorae/dorae/internal/domain"
)

// StoreSet bundles the repositories of one store driver.
type StoreSet struct {
	Tasks  domain.TaskRepository
	Agents domain.AgentRepository
	Timers domain.TimerRepository
	Init   domain.StoreInitializer
}

// MigrateStoreOutput contains migration results per record kind.
type MigrateStoreOutput struct {
	Tasks   MigrateCounts
	Agents  MigrateCounts
	Timers  MigrateCounts
	Corrupt []string // Timer record IDs that could not be read from the source
}

// MigrateCounts counts records seen, copied and already present.
type MigrateCounts struct {
	Total    int
	Migrated int
	Skipped  int
}

// MigrateStore copies every task, agent and timer job from one store to another.
// IDs are preserved. Records already present and identical are skipped; records
// present with different content fail the migration with ErrMigrationConflict.
type MigrateStore struct {
	source StoreSet
	dest   StoreSet
}

// NewMigrateStore creates a new MigrateStore use case.
func NewMigrateStore(source, dest StoreSet) *MigrateStore {
	return &MigrateStore{source: source, dest: dest}
}

// Execute runs the migration. It is safe to rerun after a partial failure.
func (uc *MigrateStore) Execute(ctx context.Context) (*MigrateStoreOutput, error) {
	if uc.dest.Init == nil {
		return nil, errors.New("destination store initializer is nil")
	}
	if err := uc.dest.Init.Initialize(); err != nil {
		return nil, domain.Persistence("initialize destination store", err)
	}

	out := &MigrateStoreOutput{}
	if err := uc.migrateAgents(ctx, out); err != nil {
		return nil, err
	}
	if err := uc.migrateTasks(ctx, out); err != nil {
		return nil, err
	}
	if err := uc.migrateTimers(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *MigrateStore) migrateTasks(ctx context.Context, out *MigrateStoreOutput) error {
	tasks, err := uc.source.Tasks.List(ctx, domain.TaskFilter{Statuses: domain.AllStatuses()})
	if err != nil {
		return domain.Persistence("list source tasks", err)
	}
	out.Tasks.Total = len(tasks)
	for _, task := range tasks {
		existing, err := uc.dest.Tasks.Get(ctx, task.ID)
		if err != nil {
			return domain.Persistence(fmt.Sprintf("check destination task %s", task.ID), err)
		}
		if existing != nil {
			if !sameRecord(normalizeTask(task), normalizeTask(existing)) {
				return fmt.Errorf("%w: task %s", domain.ErrMigrationConflict, task.ID)
			}
			out.Tasks.Skipped++
			continue
		}
		if err := uc.dest.Tasks.Insert(ctx, task.Clone()); err != nil {
			return domain.Persistence(fmt.Sprintf("insert destination task %s", task.ID), err)
		}
		out.Tasks.Migrated++
	}
	return nil
}

func (uc *MigrateStore) migrateAgents(ctx context.Context, out *MigrateStoreOutput) error {
	agents, err := uc.source.Agents.List(ctx)
	if err != nil {
		return domain.Persistence("list source agents", err)
	}
	out.Agents.Total = len(agents)
	for _, agent := range agents {
		existing, err := uc.dest.Agents.Get(ctx, agent.ID)
		if err != nil {
			return domain.Persistence(fmt.Sprintf("check destination agent %s", agent.ID), err)
		}
		if existing != nil {
			if !sameRecord(agent, existing) {
				return fmt.Errorf("%w: agent %s", domain.ErrMigrationConflict, agent.ID)
			}
			out.Agents.Skipped++
			continue
		}
		if err := uc.dest.Agents.Insert(ctx, agent.Clone()); err != nil {
			return domain.Persistence(fmt.Sprintf("insert destination agent %s", agent.ID), err)
		}
		out.Agents.Migrated++
	}
	return nil
}

func (uc *MigrateStore) migrateTimers(ctx context.Context, out *MigrateStoreOutput) error {
	jobs, err := uc.source.Timers.List(ctx)
	var corrupt *domain.CorruptRecordsError
	if errors.As(err, &corrupt) {
		out.Corrupt = slices.Clone(corrupt.IDs)
	} else if err != nil {
		return domain.Persistence("list source timers", err)
	}
	out.Timers.Total = len(jobs)
	for _, job := range jobs {
		existing, err := uc.dest.Timers.Get(ctx, job.ID)
		if err != nil {
			return domain.Persistence(fmt.Sprintf("check destination timer %s", job.ID), err)
		}
		if existing != nil {
			if !sameRecord(job, *existing) {
				return fmt.Errorf("%w: timer %s", domain.ErrMigrationConflict, job.ID)
			}
			out.Timers.Skipped++
			continue
		}
		if err := uc.dest.Timers.Save(ctx, job); err != nil {
			return domain.Persistence(fmt.Sprintf("save destination timer %s", job.ID), err)
		}
		out.Timers.Migrated++
	}
	return nil
}

func normalizeTask(task *domain.Task) *domain.Task {
	c := task.Clone()
	if len(c.Labels) == 0 {
		c.Labels = nil
	}
	if len(c.Updates) == 0 {
		c.Updates = nil
	}
	return c
}

// sameRecord compares two records by their JSON encoding, which every store round-trips.
func sameRecord(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}
