package domain

import (
	"context"
	"time"
)

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error
}

// TaskRepository manages task documents.
// Every method is an atomic single-document operation; appends never rewrite the update log.
type TaskRepository interface {
	// Get retrieves a task by ID. Returns nil if not found.
	Get(ctx context.Context, id string) (*Task, error)

	// List retrieves tasks matching the filter.
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)

	// Insert stores a new task. An empty ID is assigned by the store;
	// a preset ID is kept (store migration).
	Insert(ctx context.Context, task *Task) error

	// Apply sets fields and appends updates in one atomic operation.
	// Returns ErrTaskNotFound if the task does not exist.
	Apply(ctx context.Context, id string, change TaskChange) error

	// AppendUpdate atomically appends one update to the task's log.
	AppendUpdate(ctx context.Context, id string, update Update) error

	// EditUpdate replaces the content of one update and stamps LastEditedAt.
	EditUpdate(ctx context.Context, id, updateID, content string, editedAt time.Time) error

	// DeleteUpdate removes one update by ID. Absent IDs are a no-op.
	DeleteUpdate(ctx context.Context, id, updateID string) error
}

// AgentRepository manages agent documents.
type AgentRepository interface {
	// Get retrieves an agent by ID. Returns nil if not found.
	Get(ctx context.Context, id string) (*Agent, error)

	// List retrieves all agents ordered by creation time.
	List(ctx context.Context) ([]*Agent, error)

	// Insert stores a new agent. An empty ID is assigned by the store.
	Insert(ctx context.Context, agent *Agent) error

	// Save replaces the agent's profile fields (notes are left untouched).
	Save(ctx context.Context, agent *Agent) error

	// Delete removes an agent. Returns false if it did not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// AppendNote atomically appends a note.
	AppendNote(ctx context.Context, id string, note Update) error

	// EditNote replaces the content of one note and stamps LastEditedAt.
	EditNote(ctx context.Context, id, noteID, content string, editedAt time.Time) error

	// DeleteNote removes one note by ID. Absent IDs are a no-op.
	DeleteNote(ctx context.Context, id, noteID string) error
}

// TimerRepository is the durable table of timer jobs.
type TimerRepository interface {
	// Save inserts or replaces a job.
	Save(ctx context.Context, job TimerJob) error

	// Get retrieves a job by ID. Returns nil if not found.
	Get(ctx context.Context, id string) (*TimerJob, error)

	// List returns every decodable job. Undecodable records are reported
	// through a *CorruptRecordsError returned alongside the jobs.
	List(ctx context.Context) ([]TimerJob, error)

	// Delete removes a job. Returns false if it did not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByAgent removes every job owned by the agent and returns the count.
	DeleteByAgent(ctx context.Context, agentID string) (int, error)
}

// Action is a structured recommendation returned by the oracle.
type Action struct {
	Kind    string          `json:"action"`
	Content string          `json:"content"`
	Task    *ActionTaskSpec `json:"task,omitempty"`
}

// Supported action kinds.
const (
	ActionAddUpdate  = "add_update"
	ActionCreateTask = "create_task"
)

// ActionTaskSpec is the payload of a create_task action.
type ActionTaskSpec struct {
	Title         string   `json:"title"`
	Priority      string   `json:"priority,omitempty"`
	Category      string   `json:"category,omitempty"`
	Labels        []string `json:"labels,omitempty"`
	FolderID      string   `json:"folder_id,omitempty"`
	InitialUpdate string   `json:"initial_update,omitempty"`
}

// TaskContext is the per-task context handed to the oracle for chat.
type TaskContext struct {
	Title         string
	Status        Status
	Priority      Priority
	Category      string
	Folder        string
	Labels        []string
	RecentUpdates []string
}

// ChatReply is the oracle answer to a chat message: free text, optionally with an action.
type ChatReply struct {
	Action *Action
	Text   string
}

// Oracle is the AI decision boundary. A nil result with a nil error means "no action".
type Oracle interface {
	// Analyze produces structured feedback for a task.
	Analyze(ctx context.Context, title string, updates []Update) (*Analysis, error)

	// Chat answers a message given task contexts and an optional agent.
	Chat(ctx context.Context, message string, tasks []TaskContext, agent *AgentContext) (*ChatReply, error)

	// ExecuteInstruction decides what to do with a task for a timed instruction.
	ExecuteInstruction(ctx context.Context, instruction string, snapshot TaskSnapshot, now time.Time) (*Action, error)
}

// IDGenerator creates opaque unique identifiers.
type IDGenerator interface {
	NewID() string
}

// Logger writes leveled, categorised log lines.
// subject scopes the line (empty = global, otherwise e.g. a timer job ID).
type Logger interface {
	Debug(subject, category, msg string)
	Info(subject, category, msg string)
	Warn(subject, category, msg string)
	Error(subject, category, msg string)
}

// Event is a notification about something the engine did.
type Event struct {
	Time    time.Time      `json:"time"`
	Type    string         `json:"type"`
	Subject string         `json:"subject"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventPublisher fans events out to subscribers. Publish must not block.
type EventPublisher interface {
	Publish(event Event)
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults + global + local).
	Load() (*Config, error)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, string, string) {}
func (NopLogger) Info(string, string, string)  {}
func (NopLogger) Warn(string, string, string)  {}
func (NopLogger) Error(string, string, string) {}
