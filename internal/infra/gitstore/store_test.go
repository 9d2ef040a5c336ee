package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/infra/crypto"
	"github.com/dorae/dorae/internal/testutil"
)

var created = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), nil)
	require.NoError(t, err)
	return NewWithRepo(repo, "dorae-test", &testutil.SequentialIDs{Prefix: "t"})
}

func newTask(title string, status domain.Status, at time.Time) *domain.Task {
	return &domain.Task{
		Created: at,
		TaskFields: domain.TaskFields{
			UpdatedAt:  at,
			Title:      title,
			Status:     status,
			Priority:   domain.PriorityMedium,
			Category:   domain.DefaultCategory,
			Labels:     []string{"home"},
			Importance: 3,
		},
		Updates: []domain.Update{{ID: "u1", Timestamp: at, Content: "Task created", Type: domain.UpdateCreation}},
	}
}

func TestStore_Initialize(t *testing.T) {
	store := setupTestStore(t)
	assert.False(t, store.IsInitialized())

	require.NoError(t, store.Initialize())
	assert.True(t, store.IsInitialized())

	// Second call should be idempotent
	require.NoError(t, store.Initialize())
}

func TestOpen_CreatesBareRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "store.git")

	store, err := Open(path, "", &testutil.SequentialIDs{})
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	task := newTask("Persisted", domain.StatusActive, created)
	require.NoError(t, store.Tasks().Insert(ctx, task))

	reopened, err := Open(path, "", &testutil.SequentialIDs{})
	require.NoError(t, err)
	assert.True(t, reopened.IsInitialized())
	got, err := reopened.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Persisted", got.Title)
}

func TestTaskStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	task := newTask("Write report", domain.StatusActive, created)

	require.NoError(t, store.Tasks().Insert(ctx, task))
	assert.Equal(t, "t-1", task.ID)

	got, err := store.Tasks().Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, task, got)

	// Each document lives behind its own ref
	_, err = store.repo.Reference(plumbing.ReferenceName("refs/dorae-test/tasks/t-1"), true)
	require.NoError(t, err)

	got, err = store.Tasks().Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskStore_InsertPresetID(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Tasks()

	task := newTask("Imported", domain.StatusActive, created)
	task.ID = "legacy-7"
	require.NoError(t, repo.Insert(ctx, task))
	assert.Equal(t, "legacy-7", task.ID)

	again := newTask("Again", domain.StatusActive, created)
	again.ID = "legacy-7"
	assert.ErrorIs(t, repo.Insert(ctx, again), domain.ErrDuplicateID)

	bad := newTask("Bad", domain.StatusActive, created)
	bad.ID = "has space.."
	assert.ErrorIs(t, repo.Insert(ctx, bad), domain.ErrInvalidInput)
}

func TestTaskStore_List(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Tasks()
	second := newTask("Second", domain.StatusClosed, created.Add(time.Hour))
	first := newTask("First", domain.StatusActive, created)
	deleted := newTask("Gone", domain.StatusDeleted, created)
	for _, task := range []*domain.Task{second, first, deleted} {
		require.NoError(t, repo.Insert(ctx, task))
	}

	visible, err := repo.List(ctx, domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "First", visible[0].Title)
	assert.Equal(t, "Second", visible[1].Title)

	trash, err := repo.List(ctx, domain.TaskFilter{Statuses: []domain.Status{domain.StatusDeleted}})
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, deleted.ID, trash[0].ID)
}

func TestTaskStore_ApplyAndUpdates(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Tasks()
	task := newTask("Write report", domain.StatusActive, created)
	require.NoError(t, repo.Insert(ctx, task))

	fields := task.TaskFields
	fields.Status = domain.StatusClosed
	completed := created.Add(time.Hour)
	fields.CompletedAt = &completed
	require.NoError(t, repo.Apply(ctx, task.ID, domain.TaskChange{
		Fields: &fields,
		Append: []domain.Update{{ID: "u2", Timestamp: completed, Content: "Status changed", Type: domain.UpdateStatusChange}},
	}))
	require.NoError(t, repo.AppendUpdate(ctx, task.ID, domain.Update{ID: "u3", Timestamp: completed, Content: "note", Type: domain.UpdateNote}))

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))
	require.Len(t, got.Updates, 3)

	edited := completed.Add(time.Minute)
	require.NoError(t, repo.EditUpdate(ctx, task.ID, "u3", "better note", edited))
	assert.ErrorIs(t, repo.EditUpdate(ctx, task.ID, "missing", "x", edited), domain.ErrUpdateNotFound)
	require.NoError(t, repo.DeleteUpdate(ctx, task.ID, "u2"))
	require.NoError(t, repo.DeleteUpdate(ctx, task.ID, "u2"))

	got, err = repo.Get(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got.Updates, 2)
	assert.Equal(t, "better note", got.Updates[1].Content)
	require.NotNil(t, got.Updates[1].LastEditedAt)
	assert.True(t, edited.Equal(*got.Updates[1].LastEditedAt))

	assert.ErrorIs(t, repo.Apply(ctx, "nope", domain.TaskChange{}), domain.ErrTaskNotFound)
	assert.ErrorIs(t, repo.DeleteUpdate(ctx, "nope", "u"), domain.ErrTaskNotFound)
}

func TestAgentStore(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Agents()
	agent := &domain.Agent{
		Created: created,
		Name:    "Planner",
		Status:  domain.AgentIdle,
		Skills:  []domain.Skill{domain.SkillAddTask},
	}
	require.NoError(t, repo.Insert(ctx, agent))
	require.NotEmpty(t, agent.ID)

	require.NoError(t, repo.AppendNote(ctx, agent.ID, domain.Update{ID: "n1", Timestamp: created, Content: "prefers mornings", Type: domain.UpdateNote}))

	profile := agent.Clone()
	profile.Role = "planning"
	profile.Notes = nil
	require.NoError(t, repo.Save(ctx, profile))

	got, err := repo.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "planning", got.Role)
	require.Len(t, got.Notes, 1)

	require.NoError(t, repo.EditNote(ctx, agent.ID, "n1", "prefers evenings", created))
	assert.ErrorIs(t, repo.EditNote(ctx, agent.ID, "n9", "x", created), domain.ErrNoteNotFound)
	require.NoError(t, repo.DeleteNote(ctx, agent.ID, "n1"))
	got, err = repo.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	ok, err := repo.Delete(ctx, agent.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Delete(ctx, agent.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, repo.Save(ctx, profile), domain.ErrAgentNotFound)
}

func TestTimerStore(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Timers()
	jobA := domain.TimerJob{ID: "j1", AgentID: "agentA", Instruction: "check", TaskIDs: []string{"task1"}, IntervalSeconds: 600, Created: created}
	jobB := domain.TimerJob{ID: "j2", AgentID: "agentB", Instruction: "nudge", TaskIDs: []string{"task2"}, IntervalSeconds: 60, Created: created.Add(time.Minute)}
	require.NoError(t, repo.Save(ctx, jobB))
	require.NoError(t, repo.Save(ctx, jobA))

	got, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, &jobA, got)

	jobs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimerJob{jobA, jobB}, jobs)

	n, err := repo.DeleteByAgent(ctx, "agentB")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := repo.Delete(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTimerStore_ListReportsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	good := domain.TimerJob{ID: "good", AgentID: "a", Instruction: "go", TaskIDs: []string{"t"}, IntervalSeconds: 60, Created: created}
	require.NoError(t, store.Timers().Save(ctx, good))

	hash, err := store.writeBlob([]byte("job_id: bad\ninterval: often\n"))
	require.NoError(t, err)
	require.NoError(t, store.repo.Storer.SetReference(plumbing.NewHashReference(store.docRef(kindTimers, "bad"), hash)))

	jobs, err := store.Timers().List(ctx)

	assert.Equal(t, []domain.TimerJob{good}, jobs)
	var corrupt *domain.CorruptRecordsError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, []string{"bad"}, corrupt.IDs)
}

func TestStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	task := newTask("Keep me", domain.StatusActive, created)
	require.NoError(t, store.Tasks().Insert(ctx, task))
	job := domain.TimerJob{ID: "j1", AgentID: "a", Instruction: "check", TaskIDs: []string{task.ID}, IntervalSeconds: 60, Created: created}
	require.NoError(t, store.Timers().Save(ctx, job))

	snap, err := store.SaveSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Seq)
	assert.Equal(t, "refs/dorae-test/snapshots/001", snap.Ref)

	// Diverge from the snapshot
	require.NoError(t, store.Tasks().Insert(ctx, newTask("Later", domain.StatusActive, created.Add(time.Hour))))
	_, err = store.Timers().Delete(ctx, "j1")
	require.NoError(t, err)

	second, err := store.SaveSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seq)

	list, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Snapshot{snap, second}, list)

	require.NoError(t, store.RestoreSnapshot(ctx, 1))

	tasks, err := store.Tasks().List(ctx, domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Keep me", tasks[0].Title)
	jobs, err := store.Timers().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimerJob{job}, jobs)

	assert.ErrorIs(t, store.RestoreSnapshot(ctx, 9), domain.ErrNotFound)
}

func TestStore_CanceledContext(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Tasks().Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Timers().Save(ctx, domain.TimerJob{ID: "j"}), context.Canceled)
}

func TestStore_Sealed(t *testing.T) {
	ctx := context.Background()
	repo, err := git.Init(memory.NewStorage(), nil)
	require.NoError(t, err)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewSealer(key)
	require.NoError(t, err)

	store := NewWithRepo(repo, "dorae-test", &testutil.SequentialIDs{Prefix: "t"}).WithSealer(sealer)
	require.NoError(t, store.Initialize())
	task := newTask("Secret plans", domain.StatusActive, created)
	require.NoError(t, store.Tasks().Insert(ctx, task))

	got, err := store.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Secret plans", got.Title)

	ref, err := repo.Reference(store.docRef(kindTasks, task.ID), true)
	require.NoError(t, err)
	blob, err := repo.BlobObject(ref.Hash())
	require.NoError(t, err)
	r, err := blob.Reader()
	require.NoError(t, err)
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Secret plans")

	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherSealer, err := crypto.NewSealer(otherKey)
	require.NoError(t, err)
	wrong := NewWithRepo(repo, "dorae-test", &testutil.SequentialIDs{Prefix: "t"}).WithSealer(otherSealer)
	_, err = wrong.Tasks().Get(ctx, task.ID)
	assert.ErrorIs(t, err, crypto.ErrOpenFailed)
}

func TestTaskStore_ApplyExpectStatus(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Tasks()
	task := newTask("Write report", domain.StatusActive, created)
	require.NoError(t, repo.Insert(ctx, task))

	fields := task.TaskFields
	fields.Status = domain.StatusDeleted
	change := domain.TaskChange{
		Fields:       &fields,
		ExpectStatus: domain.StatusActive,
		Append:       []domain.Update{{ID: "u2", Timestamp: created, Content: "Task moved to trash", Type: domain.UpdateDeletion}},
	}
	require.NoError(t, repo.Apply(ctx, task.ID, change))

	// A second writer that read the task while it was still Active loses.
	change.Append = []domain.Update{{ID: "u3", Timestamp: created, Content: "Task moved to trash", Type: domain.UpdateDeletion}}
	assert.ErrorIs(t, repo.Apply(ctx, task.ID, change), domain.ErrStaleTask)

	require.NoError(t, repo.Apply(ctx, task.ID, domain.TaskChange{Analysis: &domain.Analysis{AnalyzedAt: created.Add(time.Hour), Summary: "Stalled"}}))

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, got.Status)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "Stalled", got.Analysis.Summary)
	require.Len(t, got.Updates, 2)
	assert.Equal(t, "u2", got.Updates[1].ID)
}

func TestTaskStore_ConcurrentAppendAndEdit(t *testing.T) {
	const n = 8
	ctx := context.Background()
	repo := setupTestStore(t).Tasks()
	task := newTask("Write report", domain.StatusActive, created)
	require.NoError(t, repo.Insert(ctx, task))

	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			u := domain.Update{ID: fmt.Sprintf("run-%d", i), Timestamp: created, Content: "Checked in", Type: domain.UpdateTimerExecution}
			assert.NoError(t, repo.AppendUpdate(ctx, task.ID, u))
		})
		wg.Go(func() {
			cur, err := repo.Get(ctx, task.ID)
			if !assert.NoError(t, err) {
				return
			}
			fields := cur.TaskFields
			fields.Title = fmt.Sprintf("Write report v%d", i)
			assert.NoError(t, repo.Apply(ctx, task.ID, domain.TaskChange{Fields: &fields, ExpectStatus: domain.StatusActive}))
		})
	}
	wg.Wait()

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	runs := 0
	for _, u := range got.Updates {
		if u.Type == domain.UpdateTimerExecution {
			runs++
		}
	}
	assert.Equal(t, n, runs)
	assert.Len(t, got.Updates, n+1)
}
