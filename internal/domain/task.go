// Package domain contains core business entities and interfaces.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultCategory is used when a task is created without a category.
const DefaultCategory = "General"

// Priority is the coarse urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// importanceByPriority maps priorities to the 1-5 importance scale.
var importanceByPriority = map[Priority]int{
	PriorityLow:    2,
	PriorityMedium: 3,
	PriorityHigh:   5,
}

// Importance returns the importance derived from the priority.
// Unknown priorities are treated as medium.
func (p Priority) Importance() int {
	if v, ok := importanceByPriority[p]; ok {
		return v
	}
	return importanceByPriority[PriorityMedium]
}

// ParsePriority parses a priority name case-insensitively. Empty means medium.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if _, ok := importanceByPriority[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// UpdateType tags an Update entry.
type UpdateType string

const (
	UpdateCreation       UpdateType = "creation"
	UpdateDetail         UpdateType = "detail"
	UpdateExecution      UpdateType = "execution"
	UpdateNote           UpdateType = "note"
	UpdateStatusChange   UpdateType = "status_change"
	UpdatePropertyChange UpdateType = "property_change"
	UpdateDeletion       UpdateType = "deletion"
	UpdateArchive        UpdateType = "archive"
	UpdateTimerExecution UpdateType = "timer_execution"
	UpdateAIAnalysis     UpdateType = "ai_analysis"
)

// Provenance identifies the automated actor that wrote an entry.
type Provenance struct {
	AgentID string `json:"agent_id" yaml:"agent_id"`
	Skill   Skill  `json:"skill" yaml:"skill"`
}

// Update is an audit/log entry attached to a task. Notes on agents share the shape.
// Only Content and LastEditedAt change after the entry is appended.
type Update struct {
	Timestamp    time.Time   `json:"timestamp" yaml:"timestamp"`
	LastEditedAt *time.Time  `json:"last_edited_at,omitempty" yaml:"last_edited_at,omitempty"`
	Provenance   *Provenance `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	ID           string      `json:"id" yaml:"id"`
	Content      string      `json:"content" yaml:"content"`
	Type         UpdateType  `json:"type" yaml:"type"`
}

// Analysis is the structured feedback produced by the oracle for a task.
type Analysis struct {
	AnalyzedAt  time.Time `json:"analyzed_at" yaml:"analyzed_at"`
	Summary     string    `json:"summary" yaml:"summary"`
	Suggestions string    `json:"suggestions" yaml:"suggestions"`
	Priority    Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Category    string    `json:"category,omitempty" yaml:"category,omitempty"`
	Importance  int       `json:"importance,omitempty" yaml:"importance,omitempty"`
}

// TaskFields holds the mutable scalar part of a task.
// Stores set it as one unit; the update log is never rewritten through it.
type TaskFields struct {
	UpdatedAt       time.Time  `json:"updated_at" yaml:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at" yaml:"completed_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty" yaml:"archived_at,omitempty"`
	Analysis        *Analysis  `json:"ai_analysis,omitempty" yaml:"ai_analysis,omitempty"`
	Title           string     `json:"title" yaml:"title"`
	Status          Status     `json:"status" yaml:"status"`
	Priority        Priority   `json:"priority" yaml:"priority"`
	Category        string     `json:"category" yaml:"category"`
	FolderID        string     `json:"folder_id,omitempty" yaml:"folder_id,omitempty"`
	Owner           string     `json:"owner,omitempty" yaml:"owner,omitempty"`
	AssignedAgentID string     `json:"assigned_agent_id,omitempty" yaml:"assigned_agent_id,omitempty"`
	Labels          []string   `json:"labels" yaml:"labels"`
	Importance      int        `json:"importance" yaml:"importance"`
	Order           int        `json:"order" yaml:"order"`
}

// Task represents a work unit tracked by dorae.
type Task struct {
	Created    time.Time `json:"created_at" yaml:"created_at"`
	TaskFields `yaml:",inline"`
	ID         string   `json:"id" yaml:"-"`
	Updates    []Update `json:"updates" yaml:"updates"`
}

// TaskChange is one atomic mutation of a task document: an optional full
// field-set or targeted analysis set, followed by zero or more appended updates.
// Stores apply it under their per-document lock.
type TaskChange struct {
	Fields   *TaskFields // every field except Analysis
	Analysis *Analysis   // sets Analysis and UpdatedAt (= AnalyzedAt) only
	// ExpectStatus, when set, rejects the change with ErrStaleTask unless the
	// stored status still equals it.
	ExpectStatus Status
	Append       []Update
}

// IsEmpty reports whether the change does nothing.
func (c TaskChange) IsEmpty() bool {
	return c.Fields == nil && c.Analysis == nil && len(c.Append) == 0
}

// Apply applies the change to the in-memory document. On error the task is untouched.
func (t *Task) Apply(c TaskChange) error {
	if c.ExpectStatus != "" && t.Status != c.ExpectStatus {
		return fmt.Errorf("task %s is %s, expected %s: %w", t.ID, t.Status, c.ExpectStatus, ErrStaleTask)
	}
	if c.Fields != nil {
		analysis := t.Analysis
		t.TaskFields = *c.Fields
		t.Labels = slices.Clone(c.Fields.Labels)
		t.Analysis = analysis
	}
	if c.Analysis != nil {
		a := *c.Analysis
		t.Analysis = &a
		t.UpdatedAt = a.AnalyzedAt
	}
	t.Updates = append(t.Updates, c.Append...)
	return nil
}

// EditUpdate replaces the content of the update with the given id.
func (t *Task) EditUpdate(updateID, content string, editedAt time.Time) error {
	for i := range t.Updates {
		if t.Updates[i].ID == updateID {
			t.Updates[i].Content = content
			edited := editedAt
			t.Updates[i].LastEditedAt = &edited
			return nil
		}
	}
	return ErrUpdateNotFound
}

// RemoveUpdate removes the update with the given id. Removing an absent id is a no-op.
func (t *Task) RemoveUpdate(updateID string) {
	t.Updates = slices.DeleteFunc(t.Updates, func(u Update) bool { return u.ID == updateID })
}

// LastUpdateContent returns the content of the most recent update, or "None".
func (t *Task) LastUpdateContent() string {
	if len(t.Updates) == 0 {
		return "None"
	}
	return t.Updates[len(t.Updates)-1].Content
}

// RecentUpdates returns the contents of the last n updates, oldest first.
func (t *Task) RecentUpdates(n int) []string {
	start := max(len(t.Updates)-n, 0)
	out := make([]string, 0, len(t.Updates)-start)
	for _, u := range t.Updates[start:] {
		out = append(out, u.Content)
	}
	return out
}

// HasLabel reports whether the task carries the label.
func (t *Task) HasLabel(label string) bool {
	return slices.Contains(t.Labels, label)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.Labels = slices.Clone(t.Labels)
	c.Updates = slices.Clone(t.Updates)
	return &c
}

// TaskFilter specifies criteria for listing tasks.
// The zero value lists tasks visible by default (Active and Closed).
type TaskFilter struct {
	Statuses        []Status // empty = Active and Closed
	Label           string
	FolderID        string
	Owner           string
	AssignedAgentID string
	FolderIDs       []string // match any of these folders (OR'ed with AssignedAgentID when both set)
}

// Matches reports whether a task satisfies the filter.
func (f TaskFilter) Matches(t *Task) bool {
	if len(f.Statuses) == 0 {
		if !t.Status.VisibleByDefault() {
			return false
		}
	} else if !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if f.Label != "" && !t.HasLabel(f.Label) {
		return false
	}
	if f.FolderID != "" && t.FolderID != f.FolderID {
		return false
	}
	if f.Owner != "" && t.Owner != f.Owner {
		return false
	}
	switch {
	case f.AssignedAgentID != "" && len(f.FolderIDs) > 0:
		return t.AssignedAgentID == f.AssignedAgentID || slices.Contains(f.FolderIDs, t.FolderID)
	case f.AssignedAgentID != "":
		return t.AssignedAgentID == f.AssignedAgentID
	case len(f.FolderIDs) > 0:
		return slices.Contains(f.FolderIDs, t.FolderID)
	}
	return true
}

// TaskSnapshot is the context handed to the oracle for a timed instruction.
type TaskSnapshot struct {
	Now        time.Time
	ID         string
	Title      string
	Status     Status
	LastUpdate string
	Skills     []Skill
}

// Snapshot builds the oracle context for the task.
func (t *Task) Snapshot(now time.Time, skills []Skill) TaskSnapshot {
	return TaskSnapshot{
		ID:         t.ID,
		Title:      t.Title,
		Status:     t.Status,
		LastUpdate: t.LastUpdateContent(),
		Now:        now,
		Skills:     skills,
	}
}
