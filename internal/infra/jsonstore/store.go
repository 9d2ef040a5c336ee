// Package jsonstore provides a JSON file-based implementation of the dorae repositories.
//
// The whole store is one document guarded by an flock(2) lock file.
// Every write rewrites the document through a temp file and a rename.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

// formatVersion is written to meta.version.
const formatVersion = 1

// storeData represents the JSON file structure.
// Timers are kept raw so that one undecodable job does not hide the others.
type storeData struct {
	Tasks  map[string]*domain.Task    `json:"tasks"`
	Agents map[string]*domain.Agent   `json:"agents"`
	Timers map[string]json.RawMessage `json:"timers"`
	Meta   meta                       `json:"meta"`
}

// meta contains store metadata.
type meta struct {
	Version int `json:"version"`
}

// Store is a JSON file holding tasks, agents and timer jobs.
type Store struct {
	ids      domain.IDGenerator
	path     string
	lockPath string
}

// New creates a new Store for the given file path.
// The file does not need to exist; it will be created on first write.
func New(path string, ids domain.IDGenerator) *Store {
	return &Store{
		ids:      ids,
		path:     path,
		lockPath: path + ".lock",
	}
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Tasks returns the task repository view of the store.
func (s *Store) Tasks() *TaskStore {
	return &TaskStore{s: s}
}

// Agents returns the agent repository view of the store.
func (s *Store) Agents() *AgentStore {
	return &AgentStore{s: s}
}

// Timers returns the timer repository view of the store.
func (s *Store) Timers() *TimerStore {
	return &TimerStore{s: s}
}

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
func (s *Store) Initialize() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	return s.write(emptyData())
}

// TaskStore implements domain.TaskRepository.
type TaskStore struct {
	s *Store
}

// Get retrieves a task by ID.
func (r *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	var task *domain.Task
	err := r.s.withLock(ctx, func(data *storeData) error {
		if t, ok := data.Tasks[id]; ok {
			task = t
		}
		return nil
	})
	return task, err
}

// List retrieves tasks matching the filter, oldest first.
func (r *TaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.s.withLock(ctx, func(data *storeData) error {
		for _, t := range data.Tasks {
			if filter.Matches(t) {
				tasks = append(tasks, t)
			}
		}
		return nil
	})
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return byCreated(a.Created, b.Created, a.ID, b.ID)
	})
	return tasks, err
}

// Insert stores a new task, assigning an ID when it is empty.
func (r *TaskStore) Insert(ctx context.Context, task *domain.Task) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		id := task.ID
		if id == "" {
			id = r.s.ids.NewID()
		}
		if _, ok := data.Tasks[id]; ok {
			return fmt.Errorf("task %s: %w", id, domain.ErrDuplicateID)
		}
		task.ID = id
		data.Tasks[id] = task.Clone()
		return nil
	})
}

// Apply sets fields and appends updates in one write.
func (r *TaskStore) Apply(ctx context.Context, id string, change domain.TaskChange) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		t, ok := data.Tasks[id]
		if !ok {
			return domain.ErrTaskNotFound
		}
		return t.Apply(change)
	})
}

// AppendUpdate appends one update to the task's log.
func (r *TaskStore) AppendUpdate(ctx context.Context, id string, update domain.Update) error {
	return r.Apply(ctx, id, domain.TaskChange{Append: []domain.Update{update}})
}

// EditUpdate replaces the content of one update.
func (r *TaskStore) EditUpdate(ctx context.Context, id, updateID, content string, editedAt time.Time) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		t, ok := data.Tasks[id]
		if !ok {
			return domain.ErrTaskNotFound
		}
		return t.EditUpdate(updateID, content, editedAt)
	})
}

// DeleteUpdate removes one update. Absent IDs are a no-op.
func (r *TaskStore) DeleteUpdate(ctx context.Context, id, updateID string) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		t, ok := data.Tasks[id]
		if !ok {
			return domain.ErrTaskNotFound
		}
		t.RemoveUpdate(updateID)
		return nil
	})
}

// AgentStore implements domain.AgentRepository.
type AgentStore struct {
	s *Store
}

// Get retrieves an agent by ID.
func (r *AgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	var agent *domain.Agent
	err := r.s.withLock(ctx, func(data *storeData) error {
		if a, ok := data.Agents[id]; ok {
			agent = a
		}
		return nil
	})
	return agent, err
}

// List retrieves all agents ordered by creation time.
func (r *AgentStore) List(ctx context.Context) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	err := r.s.withLock(ctx, func(data *storeData) error {
		for _, a := range data.Agents {
			agents = append(agents, a)
		}
		return nil
	})
	slices.SortFunc(agents, func(a, b *domain.Agent) int {
		return byCreated(a.Created, b.Created, a.ID, b.ID)
	})
	return agents, err
}

// Insert stores a new agent, assigning an ID when it is empty.
func (r *AgentStore) Insert(ctx context.Context, agent *domain.Agent) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		id := agent.ID
		if id == "" {
			id = r.s.ids.NewID()
		}
		if _, ok := data.Agents[id]; ok {
			return fmt.Errorf("agent %s: %w", id, domain.ErrDuplicateID)
		}
		agent.ID = id
		data.Agents[id] = agent.Clone()
		return nil
	})
}

// Save replaces the agent's profile, keeping the stored notes.
func (r *AgentStore) Save(ctx context.Context, agent *domain.Agent) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		cur, ok := data.Agents[agent.ID]
		if !ok {
			return domain.ErrAgentNotFound
		}
		next := agent.Clone()
		next.Notes = cur.Notes
		data.Agents[agent.ID] = next
		return nil
	})
}

// Delete removes an agent.
func (r *AgentStore) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.s.withLockWrite(ctx, func(data *storeData) error {
		_, found = data.Agents[id]
		delete(data.Agents, id)
		return nil
	})
	return found, err
}

// AppendNote appends a note to the agent.
func (r *AgentStore) AppendNote(ctx context.Context, id string, note domain.Update) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		a, ok := data.Agents[id]
		if !ok {
			return domain.ErrAgentNotFound
		}
		a.Notes = append(a.Notes, note)
		return nil
	})
}

// EditNote replaces the content of one note.
func (r *AgentStore) EditNote(ctx context.Context, id, noteID, content string, editedAt time.Time) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		a, ok := data.Agents[id]
		if !ok {
			return domain.ErrAgentNotFound
		}
		return a.EditNote(noteID, content, editedAt)
	})
}

// DeleteNote removes one note. Absent IDs are a no-op.
func (r *AgentStore) DeleteNote(ctx context.Context, id, noteID string) error {
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		a, ok := data.Agents[id]
		if !ok {
			return domain.ErrAgentNotFound
		}
		a.RemoveNote(noteID)
		return nil
	})
}

// TimerStore implements domain.TimerRepository.
type TimerStore struct {
	s *Store
}

// Save inserts or replaces a job.
func (r *TimerStore) Save(ctx context.Context, job domain.TimerJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal timer %s: %w", job.ID, err)
	}
	return r.s.withLockWrite(ctx, func(data *storeData) error {
		data.Timers[job.ID] = raw
		return nil
	})
}

// Get retrieves a job by ID.
func (r *TimerStore) Get(ctx context.Context, id string) (*domain.TimerJob, error) {
	var job *domain.TimerJob
	err := r.s.withLock(ctx, func(data *storeData) error {
		raw, ok := data.Timers[id]
		if !ok {
			return nil
		}
		j, err := decodeTimer(id, raw)
		if err != nil {
			return fmt.Errorf("decode timer %s: %w", id, err)
		}
		job = &j
		return nil
	})
	return job, err
}

// List returns every decodable job ordered by creation time.
// Undecodable records are reported in a *domain.CorruptRecordsError.
func (r *TimerStore) List(ctx context.Context) ([]domain.TimerJob, error) {
	var (
		jobs    []domain.TimerJob
		corrupt domain.CorruptRecordsError
	)
	err := r.s.withLock(ctx, func(data *storeData) error {
		for id, raw := range data.Timers {
			job, err := decodeTimer(id, raw)
			if err != nil {
				corrupt.Add(id, err)
				continue
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(jobs, func(a, b domain.TimerJob) int {
		return byCreated(a.Created, b.Created, a.ID, b.ID)
	})
	return jobs, corrupt.OrNil()
}

// Delete removes a job.
func (r *TimerStore) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.s.withLockWrite(ctx, func(data *storeData) error {
		_, found = data.Timers[id]
		delete(data.Timers, id)
		return nil
	})
	return found, err
}

// DeleteByAgent removes every job owned by the agent.
// Undecodable records are left in place.
func (r *TimerStore) DeleteByAgent(ctx context.Context, agentID string) (int, error) {
	n := 0
	err := r.s.withLockWrite(ctx, func(data *storeData) error {
		for id, raw := range data.Timers {
			job, err := decodeTimer(id, raw)
			if err != nil || job.AgentID != agentID {
				continue
			}
			delete(data.Timers, id)
			n++
		}
		return nil
	})
	return n, err
}

func decodeTimer(id string, raw json.RawMessage) (domain.TimerJob, error) {
	var job domain.TimerJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return job, err
	}
	if job.ID == "" {
		job.ID = id
	}
	if job.ID != id {
		return job, fmt.Errorf("job_id %q does not match key", job.ID)
	}
	return job, nil
}

func byCreated(a, b time.Time, aID, bID string) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return strings.Compare(aID, bID)
}

// withLock executes fn with a shared (read) lock.
func (s *Store) withLock(ctx context.Context, fn func(*storeData) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}
	return fn(data)
}

// withLockWrite executes fn with an exclusive (write) lock and writes the result.
// Nothing is written when fn fails.
func (s *Store) withLockWrite(ctx context.Context, fn func(*storeData) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	dir := filepath.Dir(s.lockPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

// read loads the document. A missing file reads as an empty store.
func (s *Store) read() (*storeData, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyData(), nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var data storeData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}

	if data.Tasks == nil {
		data.Tasks = make(map[string]*domain.Task)
	}
	if data.Agents == nil {
		data.Agents = make(map[string]*domain.Agent)
	}
	if data.Timers == nil {
		data.Timers = make(map[string]json.RawMessage)
	}
	for id, t := range data.Tasks {
		t.ID = id
	}
	for id, a := range data.Agents {
		a.ID = id
	}
	return &data, nil
}

func (s *Store) write(data *storeData) error {
	data.Meta.Version = formatVersion
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func emptyData() *storeData {
	return &storeData{
		Tasks:  make(map[string]*domain.Task),
		Agents: make(map[string]*domain.Agent),
		Timers: make(map[string]json.RawMessage),
		Meta:   meta{Version: formatVersion},
	}
}

var (
	_ domain.TaskRepository   = (*TaskStore)(nil)
	_ domain.AgentRepository  = (*AgentStore)(nil)
	_ domain.TimerRepository  = (*TimerStore)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)
