package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dorae/dorae/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskNew_And_List(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "task", "new", "--title", "Book venue", "--priority", "high", "--label", "event", "--detail", "Call on Monday")
	assert.Equal(t, "Created task task-1\n", out)
	assert.True(t, env.init.Initialized)

	task := env.tasks.Snapshot("task-1")
	require.NotNil(t, task)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, []string{"event"}, task.Labels)
	require.Len(t, task.Updates, 2)
	assert.Equal(t, "Call on Monday", task.Updates[1].Content)

	out = env.mustRun(t, "task", "list")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "Book venue")
	assert.Contains(t, out, "[event]")
}

func TestTaskNew_RequiresTitle(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "task", "new")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestTaskList_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "task", "new", "--title", "Open one")
	env.mustRun(t, "task", "new", "--title", "Done one")
	env.mustRun(t, "task", "close", "task-2")

	out := env.mustRun(t, "task", "list", "--status", "Closed")
	assert.Contains(t, out, "Done one")
	assert.NotContains(t, out, "Open one")

	_, err := env.run(t, "task", "list", "--status", "Someday")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestTaskShow(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "task", "new", "--title", "Write report", "--category", "Work")

	out := env.mustRun(t, "task", "show", "task-1")

	assert.Contains(t, out, "Task task-1: Write report")
	assert.Contains(t, out, "Category: Work")
	assert.Contains(t, out, "Task created")

	_, err := env.run(t, "task", "show", "nope")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskEdit(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "task", "new", "--title", "Write report")

	out := env.mustRun(t, "task", "edit", "task-1", "--priority", "low", "--add-label", "q3")

	assert.Equal(t, "Updated task task-1\n", out)
	task := env.tasks.Snapshot("task-1")
	assert.Equal(t, domain.PriorityLow, task.Priority)
	assert.Equal(t, []string{"q3"}, task.Labels)

	_, err := env.run(t, "task", "edit", "task-1")
	assert.ErrorIs(t, err, domain.ErrNoFieldsToUpdate)
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "task", "new", "--title", "Write report")

	assert.Equal(t, "Closed task task-1\n", env.mustRun(t, "task", "close", "task-1"))
	assert.Equal(t, "Task task-1 is already Closed\n", env.mustRun(t, "task", "close", "task-1"))
	assert.Equal(t, "Reopened task task-1\n", env.mustRun(t, "task", "reopen", "task-1"))
	assert.Equal(t, "Moved task task-1 to the trash\n", env.mustRun(t, "task", "delete", "task-1"))

	out := env.mustRun(t, "task", "trash")
	assert.Contains(t, out, "Write report")

	_, err := env.run(t, "task", "close", "task-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, "Archived 1 task(s)\n", env.mustRun(t, "task", "empty-trash"))
	assert.Equal(t, domain.StatusArchived, env.tasks.Snapshot("task-1").Status)
}

func TestTaskUpdates(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "task", "new", "--title", "Write report")

	out := env.mustRun(t, "task", "update", "add", "task-1", "Drafted", "intro")
	require.Contains(t, out, "Added update")

	task := env.tasks.Snapshot("task-1")
	last := task.Updates[len(task.Updates)-1]
	assert.Equal(t, "Drafted intro", last.Content)
	assert.Equal(t, domain.UpdateNote, last.Type)

	env.mustRun(t, "task", "update", "edit", "task-1", last.ID, "Drafted", "outline")
	task = env.tasks.Snapshot("task-1")
	assert.Equal(t, "Drafted outline", task.Updates[len(task.Updates)-1].Content)

	env.mustRun(t, "task", "update", "delete", "task-1", last.ID)
	assert.Len(t, env.tasks.Snapshot("task-1").Updates, len(task.Updates)-1)

	_, err := env.run(t, "task", "update", "delete", "nope", last.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskAnalyze(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "task", "new", "--title", "Write report")

	out := env.mustRun(t, "task", "analyze", "task-1")
	assert.Contains(t, out, "No analysis available")

	env.oracle.Analysis = &domain.Analysis{Summary: "On track", Suggestions: "Add figures", Priority: domain.PriorityHigh}
	out = env.mustRun(t, "task", "analyze", "task-1")
	assert.Contains(t, out, "Summary:     On track")
	assert.Contains(t, out, "Priority:    high")
}

func TestTaskImport(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "tasks.md")
	content := "---\ntitle: Book venue\npriority: high\n---\nCall the shortlisted places.\n\n---\ntitle: Send invitations\n---\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out := env.mustRun(t, "task", "import", path, "--dry-run")
	assert.Contains(t, out, "1. Book venue")
	assert.Contains(t, out, "2. Send invitations")
	assert.Nil(t, env.tasks.Snapshot("task-1"))

	out = env.mustRun(t, "task", "import", path)
	assert.Contains(t, out, "Created 2 task(s)")
	assert.Equal(t, "Send invitations", env.tasks.Snapshot("task-2").Title)
}
