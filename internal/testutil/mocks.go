// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
	mu      sync.Mutex
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.NowTime
}

// Advance moves the clock forward.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NowTime = m.NowTime.Add(d)
}

// SequentialIDs is a test double for domain.IDGenerator producing prefix-1, prefix-2, ...
type SequentialIDs struct {
	Prefix string
	mu     sync.Mutex
	n      int
}

// NewID returns the next ID in sequence.
func (s *SequentialIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	prefix := s.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, s.n)
}

// MockTaskRepository is a test double for domain.TaskRepository.
// It is safe for concurrent use. Fields are ordered to minimize memory padding.
type MockTaskRepository struct {
	Tasks     map[string]*domain.Task
	GetErr    error
	ListErr   error
	InsertErr error
	ApplyErr  error
	AppendErr error
	order     []string
	mu        sync.Mutex
	NextIDN   int
}

// NewMockTaskRepository creates a new MockTaskRepository with initialized maps.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		Tasks:   make(map[string]*domain.Task),
		NextIDN: 1,
	}
}

// Put stores a task directly, bypassing ID assignment.
func (m *MockTaskRepository) Put(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tasks[task.ID]; !ok {
		m.order = append(m.order, task.ID)
	}
	m.Tasks[task.ID] = task.Clone()
}

// Snapshot returns a copy of the stored task, or nil.
func (m *MockTaskRepository) Snapshot(id string) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Tasks[id]; ok {
		return t.Clone()
	}
	return nil
}

// Get retrieves a task by ID.
func (m *MockTaskRepository) Get(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	t, ok := m.Tasks[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

// List returns tasks matching the filter in insertion order.
func (m *MockTaskRepository) List(_ context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*domain.Task
	for _, id := range m.order {
		t, ok := m.Tasks[id]
		if ok && filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Insert stores a new task, assigning task-N when the ID is empty.
func (m *MockTaskRepository) Insert(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%d", m.NextIDN)
		m.NextIDN++
	}
	m.order = append(m.order, task.ID)
	m.Tasks[task.ID] = task.Clone()
	return nil
}

// Apply sets fields and appends updates.
func (m *MockTaskRepository) Apply(_ context.Context, id string, change domain.TaskChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	t, ok := m.Tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	return t.Apply(change)
}

// AppendUpdate appends one update.
func (m *MockTaskRepository) AppendUpdate(_ context.Context, id string, update domain.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	t, ok := m.Tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.Updates = append(t.Updates, update)
	return nil
}

// EditUpdate edits one update.
func (m *MockTaskRepository) EditUpdate(_ context.Context, id, updateID, content string, editedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	return t.EditUpdate(updateID, content, editedAt)
}

// DeleteUpdate removes one update.
func (m *MockTaskRepository) DeleteUpdate(_ context.Context, id, updateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	t.RemoveUpdate(updateID)
	return nil
}

// MockAgentRepository is a test double for domain.AgentRepository.
type MockAgentRepository struct {
	Agents    map[string]*domain.Agent
	GetErr    error
	SaveErr   error
	DeleteErr error
	order     []string
	mu        sync.Mutex
	NextIDN   int
}

// NewMockAgentRepository creates a new MockAgentRepository with initialized maps.
func NewMockAgentRepository() *MockAgentRepository {
	return &MockAgentRepository{
		Agents:  make(map[string]*domain.Agent),
		NextIDN: 1,
	}
}

// Put stores an agent directly, bypassing ID assignment.
func (m *MockAgentRepository) Put(agent *domain.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Agents[agent.ID]; !ok {
		m.order = append(m.order, agent.ID)
	}
	m.Agents[agent.ID] = agent.Clone()
}

// Get retrieves an agent by ID.
func (m *MockAgentRepository) Get(_ context.Context, id string) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	a, ok := m.Agents[id]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

// List returns agents in insertion order.
func (m *MockAgentRepository) List(_ context.Context) ([]*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Agent, 0, len(m.order))
	for _, id := range m.order {
		if a, ok := m.Agents[id]; ok {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// Insert stores a new agent, assigning agent-N when the ID is empty.
func (m *MockAgentRepository) Insert(_ context.Context, agent *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if agent.ID == "" {
		agent.ID = fmt.Sprintf("agent-%d", m.NextIDN)
		m.NextIDN++
	}
	m.order = append(m.order, agent.ID)
	m.Agents[agent.ID] = agent.Clone()
	return nil
}

// Save replaces the profile fields, keeping notes.
func (m *MockAgentRepository) Save(_ context.Context, agent *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cur, ok := m.Agents[agent.ID]
	if !ok {
		return domain.ErrAgentNotFound
	}
	next := agent.Clone()
	next.Notes = cur.Notes
	m.Agents[agent.ID] = next
	return nil
}

// Delete removes an agent.
func (m *MockAgentRepository) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	if _, ok := m.Agents[id]; !ok {
		return false, nil
	}
	delete(m.Agents, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return true, nil
}

// AppendNote appends a note.
func (m *MockAgentRepository) AppendNote(_ context.Context, id string, note domain.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Agents[id]
	if !ok {
		return domain.ErrAgentNotFound
	}
	a.Notes = append(a.Notes, note)
	return nil
}

// EditNote edits a note.
func (m *MockAgentRepository) EditNote(_ context.Context, id, noteID, content string, editedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Agents[id]
	if !ok {
		return domain.ErrAgentNotFound
	}
	return a.EditNote(noteID, content, editedAt)
}

// DeleteNote removes a note.
func (m *MockAgentRepository) DeleteNote(_ context.Context, id, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Agents[id]
	if !ok {
		return domain.ErrAgentNotFound
	}
	a.RemoveNote(noteID)
	return nil
}

// MockTimerRepository is a test double for domain.TimerRepository.
type MockTimerRepository struct {
	Jobs      map[string]domain.TimerJob
	Corrupt   *domain.CorruptRecordsError
	SaveErr   error
	ListErr   error
	DeleteErr error
	mu        sync.Mutex
}

// NewMockTimerRepository creates a new MockTimerRepository with initialized maps.
func NewMockTimerRepository() *MockTimerRepository {
	return &MockTimerRepository{Jobs: make(map[string]domain.TimerJob)}
}

// Save inserts or replaces a job.
func (m *MockTimerRepository) Save(_ context.Context, job domain.TimerJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	job.TaskIDs = slices.Clone(job.TaskIDs)
	m.Jobs[job.ID] = job
	return nil
}

// Get retrieves a job by ID.
func (m *MockTimerRepository) Get(_ context.Context, id string) (*domain.TimerJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

// List returns jobs sorted by ID, plus the configured corrupt records.
func (m *MockTimerRepository) List(_ context.Context) ([]domain.TimerJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]domain.TimerJob, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		out = append(out, j)
	}
	slices.SortFunc(out, func(a, b domain.TimerJob) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, m.Corrupt.OrNil()
}

// Delete removes a job.
func (m *MockTimerRepository) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	if _, ok := m.Jobs[id]; !ok {
		return false, nil
	}
	delete(m.Jobs, id)
	return true, nil
}

// DeleteByAgent removes every job owned by the agent.
func (m *MockTimerRepository) DeleteByAgent(_ context.Context, agentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	n := 0
	for id, j := range m.Jobs {
		if j.AgentID == agentID {
			delete(m.Jobs, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored jobs.
func (m *MockTimerRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Jobs)
}

// InstructionCall records one ExecuteInstruction invocation.
type InstructionCall struct {
	Instruction string
	Snapshot    domain.TaskSnapshot
}

// MockOracle is a test double for domain.Oracle.
// ExecuteFunc, when set, decides the action; otherwise Action/ExecuteErr are returned.
type MockOracle struct {
	ExecuteFunc func(ctx context.Context, instruction string, snap domain.TaskSnapshot) (*domain.Action, error)
	Action      *domain.Action
	ExecuteErr  error
	Analysis    *domain.Analysis
	AnalyzeErr  error
	Reply       *domain.ChatReply
	ChatErr     error
	LastChat    struct {
		Agent   *domain.AgentContext
		Message string
		Tasks   []domain.TaskContext
	}
	calls []InstructionCall
	mu    sync.Mutex
}

// Analyze returns the configured analysis.
func (m *MockOracle) Analyze(_ context.Context, _ string, _ []domain.Update) (*domain.Analysis, error) {
	return m.Analysis, m.AnalyzeErr
}

// Chat records its arguments and returns the configured reply.
func (m *MockOracle) Chat(_ context.Context, message string, tasks []domain.TaskContext, agent *domain.AgentContext) (*domain.ChatReply, error) {
	m.mu.Lock()
	m.LastChat.Message = message
	m.LastChat.Tasks = tasks
	m.LastChat.Agent = agent
	m.mu.Unlock()
	return m.Reply, m.ChatErr
}

// ExecuteInstruction records the call and returns the configured action.
func (m *MockOracle) ExecuteInstruction(ctx context.Context, instruction string, snap domain.TaskSnapshot, _ time.Time) (*domain.Action, error) {
	m.mu.Lock()
	m.calls = append(m.calls, InstructionCall{Instruction: instruction, Snapshot: snap})
	fn := m.ExecuteFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, instruction, snap)
	}
	if m.Action == nil {
		return nil, m.ExecuteErr
	}
	a := *m.Action
	return &a, m.ExecuteErr
}

// Calls returns the recorded ExecuteInstruction calls.
func (m *MockOracle) Calls() []InstructionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// LogLine is one line captured by RecordingLogger.
type LogLine struct {
	Level    string
	Subject  string
	Category string
	Msg      string
}

// RecordingLogger is a domain.Logger that keeps every line in memory.
type RecordingLogger struct {
	lines []LogLine
	mu    sync.Mutex
}

func (l *RecordingLogger) add(level, subject, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, LogLine{Level: level, Subject: subject, Category: category, Msg: msg})
}

// Debug records a debug line.
func (l *RecordingLogger) Debug(subject, category, msg string) { l.add("DEBUG", subject, category, msg) }

// Info records an info line.
func (l *RecordingLogger) Info(subject, category, msg string) { l.add("INFO", subject, category, msg) }

// Warn records a warning line.
func (l *RecordingLogger) Warn(subject, category, msg string) { l.add("WARN", subject, category, msg) }

// Error records an error line.
func (l *RecordingLogger) Error(subject, category, msg string) { l.add("ERROR", subject, category, msg) }

// Lines returns the recorded lines at the given level ("" = all).
func (l *RecordingLogger) Lines(level string) []LogLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogLine
	for _, line := range l.lines {
		if level == "" || line.Level == level {
			out = append(out, line)
		}
	}
	return out
}

// RecordingPublisher is a domain.EventPublisher that keeps every event.
type RecordingPublisher struct {
	events []domain.Event
	mu     sync.Mutex
}

// Publish records the event.
func (p *RecordingPublisher) Publish(e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// Events returns the recorded events of the given type ("" = all).
func (p *RecordingPublisher) Events(typ string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// MockStoreInitializer is a test double for domain.StoreInitializer.
type MockStoreInitializer struct {
	Err         error
	Initialized bool
}

// Initialize records the call.
func (m *MockStoreInitializer) Initialize() error {
	m.Initialized = m.Err == nil
	return m.Err
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config *domain.Config
	Err    error
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	return m.Config, m.Err
}
