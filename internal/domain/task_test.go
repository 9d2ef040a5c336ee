package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Importance(t *testing.T) {
	tests := []struct {
		priority Priority
		want     int
	}{
		{PriorityLow, 2},
		{PriorityMedium, 3},
		{PriorityHigh, 5},
		{Priority("urgent"), 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.priority.Importance())
		})
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	_, err = ParsePriority("urgent")
	assert.ErrorIs(t, err, ErrInvalidPriority)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTask_EditUpdate(t *testing.T) {
	task := &Task{Updates: []Update{{ID: "u1", Content: "old", Type: UpdateNote}}}
	edited := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, task.EditUpdate("u1", "new", edited))

	assert.Equal(t, "new", task.Updates[0].Content)
	require.NotNil(t, task.Updates[0].LastEditedAt)
	assert.Equal(t, edited, *task.Updates[0].LastEditedAt)
	assert.Equal(t, UpdateNote, task.Updates[0].Type)

	assert.ErrorIs(t, task.EditUpdate("missing", "x", edited), ErrUpdateNotFound)
}

func TestTask_RemoveUpdate_Idempotent(t *testing.T) {
	task := &Task{Updates: []Update{{ID: "u1"}, {ID: "u2"}}}

	task.RemoveUpdate("u1")
	task.RemoveUpdate("u1")
	task.RemoveUpdate("absent")

	require.Len(t, task.Updates, 1)
	assert.Equal(t, "u2", task.Updates[0].ID)
}

func TestTask_LastUpdateContent(t *testing.T) {
	task := &Task{}
	assert.Equal(t, "None", task.LastUpdateContent())

	task.Updates = []Update{{Content: "first"}, {Content: "draft written"}}
	assert.Equal(t, "draft written", task.LastUpdateContent())
}

func TestTask_RecentUpdates(t *testing.T) {
	task := &Task{Updates: []Update{{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"}}}

	assert.Equal(t, []string{"b", "c", "d"}, task.RecentUpdates(3))
	assert.Equal(t, []string{"a", "b", "c", "d"}, task.RecentUpdates(10))
}

func TestTask_Apply(t *testing.T) {
	task := newActiveTask()
	fields := task.TaskFields
	fields.Title = "Renamed"
	fields.Labels = []string{"x"}

	require.NoError(t, task.Apply(TaskChange{Fields: &fields, Append: []Update{{ID: "u1"}}}))

	assert.Equal(t, "Renamed", task.Title)
	assert.Equal(t, []string{"x"}, task.Labels)
	require.Len(t, task.Updates, 1)

	fields.Labels[0] = "mutated"
	assert.Equal(t, []string{"x"}, task.Labels)
}

func TestTask_Apply_ExpectStatus(t *testing.T) {
	task := newActiveTask()
	task.Status = StatusArchived
	fields := task.TaskFields
	fields.Status = StatusActive

	err := task.Apply(TaskChange{Fields: &fields, ExpectStatus: StatusActive, Append: []Update{{ID: "u1"}}})

	assert.ErrorIs(t, err, ErrStaleTask)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusArchived, task.Status)
	assert.Empty(t, task.Updates)

	require.NoError(t, task.Apply(TaskChange{ExpectStatus: StatusArchived, Append: []Update{{ID: "u2"}}}))
	assert.Len(t, task.Updates, 1)
}

func TestTask_Apply_AnalysisLeavesFields(t *testing.T) {
	task := newActiveTask()
	task.Status = StatusDeleted
	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, task.Apply(TaskChange{Analysis: &Analysis{AnalyzedAt: at, Summary: "On track"}}))

	require.NotNil(t, task.Analysis)
	assert.Equal(t, "On track", task.Analysis.Summary)
	assert.Equal(t, at, task.UpdatedAt)
	assert.Equal(t, StatusDeleted, task.Status)
	assert.Equal(t, "Write report", task.Title)

	fields := task.TaskFields
	fields.Analysis = nil
	fields.Title = "Renamed"
	require.NoError(t, task.Apply(TaskChange{Fields: &fields}))
	require.NotNil(t, task.Analysis, "a field-set never clears the analysis")
	assert.Equal(t, "Renamed", task.Title)
}

func TestTaskFilter_Matches(t *testing.T) {
	active := &Task{TaskFields: TaskFields{Status: StatusActive, FolderID: "f1", AssignedAgentID: "a1", Labels: []string{"bug"}, Owner: "me@example.com"}}
	deleted := &Task{TaskFields: TaskFields{Status: StatusDeleted}}
	archived := &Task{TaskFields: TaskFields{Status: StatusArchived}}
	other := &Task{TaskFields: TaskFields{Status: StatusClosed, FolderID: "f2"}}

	tests := []struct {
		name   string
		filter TaskFilter
		task   *Task
		want   bool
	}{
		{"default shows active", TaskFilter{}, active, true},
		{"default hides deleted", TaskFilter{}, deleted, false},
		{"default hides archived", TaskFilter{}, archived, false},
		{"trash shows deleted", TaskFilter{Statuses: []Status{StatusDeleted}}, deleted, true},
		{"trash hides archived", TaskFilter{Statuses: []Status{StatusDeleted}}, archived, false},
		{"label match", TaskFilter{Label: "bug"}, active, true},
		{"label mismatch", TaskFilter{Label: "feature"}, active, false},
		{"folder match", TaskFilter{FolderID: "f1"}, active, true},
		{"owner mismatch", TaskFilter{Owner: "you@example.com"}, active, false},
		{"agent match", TaskFilter{AssignedAgentID: "a1"}, active, true},
		{"agent or folder", TaskFilter{AssignedAgentID: "a1", FolderIDs: []string{"f2"}}, other, true},
		{"folder set mismatch", TaskFilter{FolderIDs: []string{"f3"}}, other, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.task))
		})
	}
}

func TestTimerJob_Validate(t *testing.T) {
	valid := TimerJob{ID: "j1", AgentID: "a1", IntervalSeconds: 600, Instruction: "check progress", TaskIDs: []string{"t1"}}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 10*time.Minute, valid.Interval())

	noInterval := valid
	noInterval.IntervalSeconds = 0
	assert.ErrorIs(t, noInterval.Validate(), ErrInvalidInterval)

	blank := valid
	blank.Instruction = "  "
	assert.ErrorIs(t, blank.Validate(), ErrEmptyInstruction)

	noTargets := valid
	noTargets.TaskIDs = nil
	assert.ErrorIs(t, noTargets.Validate(), ErrNoTargets)
	assert.ErrorIs(t, noTargets.Validate(), ErrInvalidInput)
}
