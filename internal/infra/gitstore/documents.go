package gitstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dorae/dorae/internal/domain"
)

// TaskStore implements domain.TaskRepository.
type TaskStore struct {
	s *Store
}

// Get retrieves a task by ID.
func (r *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.get(id)
}

func (r *TaskStore) get(id string) (*domain.Task, error) {
	data, found, err := r.s.readDoc(kindTasks, id)
	if err != nil || !found {
		return nil, err
	}
	var task domain.Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	task.ID = id
	return &task, nil
}

// List retrieves tasks matching the filter, oldest first.
func (r *TaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	refs, err := r.s.docRefs(kindTasks)
	if err != nil {
		return nil, err
	}
	var tasks []*domain.Task
	for id := range refs {
		task, err := r.get(id)
		if err != nil {
			return nil, err
		}
		if task != nil && filter.Matches(task) {
			tasks = append(tasks, task)
		}
	}
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return byCreated(a.Created, b.Created, a.ID, b.ID)
	})
	return tasks, nil
}

// Insert stores a new task, assigning an ID when it is empty.
func (r *TaskStore) Insert(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, err := r.s.newID(kindTasks, task.ID)
	if err != nil {
		return err
	}
	if err := r.s.writeDoc(kindTasks, id, task); err != nil {
		return err
	}
	task.ID = id
	return nil
}

// Apply sets fields and appends updates.
func (r *TaskStore) Apply(ctx context.Context, id string, change domain.TaskChange) error {
	return r.modify(ctx, id, func(t *domain.Task) error {
		return t.Apply(change)
	})
}

// AppendUpdate appends one update to the task's log.
func (r *TaskStore) AppendUpdate(ctx context.Context, id string, update domain.Update) error {
	return r.Apply(ctx, id, domain.TaskChange{Append: []domain.Update{update}})
}

// EditUpdate replaces the content of one update.
func (r *TaskStore) EditUpdate(ctx context.Context, id, updateID, content string, editedAt time.Time) error {
	return r.modify(ctx, id, func(t *domain.Task) error {
		return t.EditUpdate(updateID, content, editedAt)
	})
}

// DeleteUpdate removes one update. Absent IDs are a no-op.
func (r *TaskStore) DeleteUpdate(ctx context.Context, id, updateID string) error {
	return r.modify(ctx, id, func(t *domain.Task) error {
		t.RemoveUpdate(updateID)
		return nil
	})
}

func (r *TaskStore) modify(ctx context.Context, id string, fn func(*domain.Task) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task, err := r.get(id)
	if err != nil {
		return err
	}
	if task == nil {
		return domain.ErrTaskNotFound
	}
	if err := fn(task); err != nil {
		return err
	}
	return r.s.writeDoc(kindTasks, id, task)
}

// AgentStore implements domain.AgentRepository.
type AgentStore struct {
	s *Store
}

// Get retrieves an agent by ID.
func (r *AgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.get(id)
}

func (r *AgentStore) get(id string) (*domain.Agent, error) {
	data, found, err := r.s.readDoc(kindAgents, id)
	if err != nil || !found {
		return nil, err
	}
	var agent domain.Agent
	if err := yaml.Unmarshal(data, &agent); err != nil {
		return nil, fmt.Errorf("decode agent %s: %w", id, err)
	}
	agent.ID = id
	return &agent, nil
}

// List retrieves all agents ordered by creation time.
func (r *AgentStore) List(ctx context.Context) ([]*domain.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	refs, err := r.s.docRefs(kindAgents)
	if err != nil {
		return nil, err
	}
	agents := make([]*domain.Agent, 0, len(refs))
	for id := range refs {
		agent, err := r.get(id)
		if err != nil {
			return nil, err
		}
		if agent != nil {
			agents = append(agents, agent)
		}
	}
	slices.SortFunc(agents, func(a, b *domain.Agent) int {
		return byCreated(a.Created, b.Created, a.ID, b.ID)
	})
	return agents, nil
}

// Insert stores a new agent, assigning an ID when it is empty.
func (r *AgentStore) Insert(ctx context.Context, agent *domain.Agent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, err := r.s.newID(kindAgents, agent.ID)
	if err != nil {
		return err
	}
	if err := r.s.writeDoc(kindAgents, id, agent); err != nil {
		return err
	}
	agent.ID = id
	return nil
}

// Save replaces the agent's profile fields. Notes are left untouched.
func (r *AgentStore) Save(ctx context.Context, agent *domain.Agent) error {
	return r.modify(ctx, agent.ID, func(cur *domain.Agent) error {
		notes := cur.Notes
		*cur = *agent.Clone()
		cur.Notes = notes
		return nil
	})
}

// Delete removes an agent.
func (r *AgentStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.removeDoc(kindAgents, id)
}

// AppendNote appends a note to the agent.
func (r *AgentStore) AppendNote(ctx context.Context, id string, note domain.Update) error {
	return r.modify(ctx, id, func(a *domain.Agent) error {
		a.Notes = append(a.Notes, note)
		return nil
	})
}

// EditNote replaces the content of one note.
func (r *AgentStore) EditNote(ctx context.Context, id, noteID, content string, editedAt time.Time) error {
	return r.modify(ctx, id, func(a *domain.Agent) error {
		return a.EditNote(noteID, content, editedAt)
	})
}

// DeleteNote removes one note. Absent IDs are a no-op.
func (r *AgentStore) DeleteNote(ctx context.Context, id, noteID string) error {
	return r.modify(ctx, id, func(a *domain.Agent) error {
		a.RemoveNote(noteID)
		return nil
	})
}

func (r *AgentStore) modify(ctx context.Context, id string, fn func(*domain.Agent) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	agent, err := r.get(id)
	if err != nil {
		return err
	}
	if agent == nil {
		return domain.ErrAgentNotFound
	}
	if err := fn(agent); err != nil {
		return err
	}
	return r.s.writeDoc(kindAgents, id, agent)
}

// TimerStore implements domain.TimerRepository.
type TimerStore struct {
	s *Store
}

// Save inserts or replaces a job.
func (r *TimerStore) Save(ctx context.Context, job domain.TimerJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validRefSegment(job.ID) {
		return fmt.Errorf("%w: timer id %q is not usable as a ref name", domain.ErrInvalidInput, job.ID)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.writeDoc(kindTimers, job.ID, job)
}

// Get retrieves a job by ID.
func (r *TimerStore) Get(ctx context.Context, id string) (*domain.TimerJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	data, found, err := r.s.readDoc(kindTimers, id)
	if err != nil || !found {
		return nil, err
	}
	job, err := decodeTimer(id, data)
	if err != nil {
		return nil, fmt.Errorf("decode timer %s: %w", id, err)
	}
	return &job, nil
}

// List returns every decodable job ordered by creation time.
// Undecodable blobs are reported in a *domain.CorruptRecordsError.
func (r *TimerStore) List(ctx context.Context) ([]domain.TimerJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	jobs, corrupt, err := r.all()
	if err != nil {
		return nil, err
	}
	return jobs, corrupt.OrNil()
}

// Delete removes a job.
func (r *TimerStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.removeDoc(kindTimers, id)
}

// DeleteByAgent removes every job owned by the agent.
// Undecodable blobs are left in place.
func (r *TimerStore) DeleteByAgent(ctx context.Context, agentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	jobs, _, err := r.all()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, job := range jobs {
		if job.AgentID != agentID {
			continue
		}
		if _, err := r.s.removeDoc(kindTimers, job.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *TimerStore) all() ([]domain.TimerJob, *domain.CorruptRecordsError, error) {
	refs, err := r.s.docRefs(kindTimers)
	if err != nil {
		return nil, nil, err
	}
	var (
		jobs    []domain.TimerJob
		corrupt = &domain.CorruptRecordsError{}
	)
	for id, hash := range refs {
		data, err := r.s.readBlob(hash)
		if err != nil {
			corrupt.Add(id, err)
			continue
		}
		job, err := decodeTimer(id, data)
		if err != nil {
			corrupt.Add(id, err)
			continue
		}
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b domain.TimerJob) int {
		return byCreated(a.Created, b.Created, a.ID, b.ID)
	})
	return jobs, corrupt, nil
}

func decodeTimer(id string, data []byte) (domain.TimerJob, error) {
	var job domain.TimerJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return job, err
	}
	if job.ID == "" {
		job.ID = id
	}
	if job.ID != id {
		return job, fmt.Errorf("job_id %q does not match ref", job.ID)
	}
	return job, nil
}

func byCreated(a, b time.Time, aID, bID string) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return strings.Compare(aID, bID)
}
