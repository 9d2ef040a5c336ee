package cli

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/infra/sqlitestore"
	"github.com/dorae/dorae/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "agent", "new", "--name", "Planner", "--skill", "add_task")
	env.oracle.Reply = &domain.ChatReply{
		Text: "I'll add that.",
		Action: &domain.Action{
			Kind: domain.ActionCreateTask,
			Task: &domain.ActionTaskSpec{Title: "Buy snacks"},
		},
	}

	out := env.mustRun(t, "chat", "--agent", "agent-1", "add", "a", "snack", "run")

	assert.Contains(t, out, "I'll add that.")
	assert.Contains(t, out, "Created task task-1: Buy snacks")
	assert.Equal(t, "add a snack run", env.oracle.LastChat.Message)

	out = env.mustRun(t, "chat", "add", "another")
	assert.Contains(t, out, "(not done: create_task requires an agent)")
	assert.Nil(t, env.tasks.Snapshot("task-2"))
}

func TestChat_OracleFailure(t *testing.T) {
	env := newTestEnv(t)
	env.oracle.ChatErr = errors.New("upstream 500")

	_, err := env.run(t, "chat", "hello")

	assert.ErrorIs(t, err, domain.ErrOracleFailure)
}

func TestConfigTemplate_SkipsStore(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "config", "template")

	assert.Contains(t, out, "[store]")
	assert.Contains(t, out, "[timer]")
	assert.False(t, env.init.Initialized)
}

func TestStore_NeedsGitDriver(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "store", "snapshots")

	assert.ErrorIs(t, err, errNoSnapshots)
}

func TestMigrate_ToSQLite(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "agent", "new", "--name", "Planner", "--skill", "add_task")
	env.mustRun(t, "task", "new", "--title", "Book venue")
	env.mustRun(t, "agent", "create-task", "agent-1", "--title", "Order catering")
	path := filepath.Join(t.TempDir(), "store.db")

	out := env.mustRun(t, "migrate", "--to", "sqlite", "--path", path)

	assert.Contains(t, out, "Migrated into sqlite store")
	assert.Contains(t, out, "agents: 1 copied")
	assert.Contains(t, out, "tasks:  2 copied")

	db, err := sqlitestore.Open(path, &testutil.SequentialIDs{Prefix: "x"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	task, err := db.Tasks().Get(context.Background(), "task-2")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Order catering", task.Title)
	assert.Equal(t, "agent-1", task.AssignedAgentID)

	_, err = env.run(t, "migrate", "--to", "mongo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLogs(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	env.c.Config.Log.Dir = dir
	require.NoError(t, os.WriteFile(domain.GlobalLogPath(dir), []byte("first\nsecond\nthird\n"), 0o600))

	out := env.mustRun(t, "logs", "-n", "2")
	assert.Equal(t, "second\nthird\n", out)

	_, err := env.run(t, "logs", "timer-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.run(t, "logs", "../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTimerCommands(t *testing.T) {
	env := newTestEnv(t)
	env.agents.Put(&domain.Agent{ID: "planner", Name: "Planner", Skills: []domain.Skill{domain.SkillTimer}})
	env.agents.Put(&domain.Agent{ID: "reader", Name: "Reader"})
	env.tasks.Put(&domain.Task{ID: "t1", Created: testNow, TaskFields: domain.TaskFields{Title: "Write report", Status: domain.StatusActive}})
	env.oracle.Action = &domain.Action{Kind: domain.ActionAddUpdate, Content: "Checked in"}

	srv, report, err := env.c.Server(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Restored)
	t.Cleanup(func() { _ = env.c.Close() })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	out := env.mustRun(t, "timer", "--addr", ts.URL, "start", "planner", "--every", "1h", "--task", "t1", "--instruction", "Check progress")
	require.True(t, strings.HasPrefix(out, "Started timer "), out)
	jobID := strings.TrimSpace(strings.TrimPrefix(out, "Started timer "))
	assert.Equal(t, 1, env.timers.Count())

	out = env.mustRun(t, "timer", "--addr", ts.URL, "list", "--agent", "planner")
	assert.Contains(t, out, jobID)

	out = env.mustRun(t, "timer", "--addr", ts.URL, "run", jobID)
	assert.Contains(t, out, "t1: appended")
	task := env.tasks.Snapshot("t1")
	assert.Equal(t, "Checked in", task.Updates[len(task.Updates)-1].Content)

	_, err = env.run(t, "timer", "--addr", ts.URL, "start", "reader", "--every", "1h", "--task", "t1", "--instruction", "Check")
	assert.ErrorIs(t, err, domain.ErrSkillDisabled)

	_, err = env.run(t, "timer", "--addr", ts.URL, "start", "planner", "--every", "10ms", "--task", "t1", "--instruction", "Check")
	assert.ErrorContains(t, err, "at least 1s")

	assert.Equal(t, "Stopped timer "+jobID+"\n", env.mustRun(t, "timer", "--addr", ts.URL, "stop", jobID))
	assert.Equal(t, "Timer "+jobID+" was not running\n", env.mustRun(t, "timer", "--addr", ts.URL, "stop", jobID))
	assert.Equal(t, 0, env.timers.Count())

	_, err = env.run(t, "timer", "--addr", ts.URL, "stop")
	assert.Error(t, err)
}
