package usecase

import (
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/testutil"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	tasks  *testutil.MockTaskRepository
	agents *testutil.MockAgentRepository
	timers *testutil.MockTimerRepository
	oracle *testutil.MockOracle
	clock  *testutil.MockClock
	ids    *testutil.SequentialIDs
	logger *testutil.RecordingLogger
}

func newFixture() *fixture {
	return &fixture{
		tasks:  testutil.NewMockTaskRepository(),
		agents: testutil.NewMockAgentRepository(),
		timers: testutil.NewMockTimerRepository(),
		oracle: &testutil.MockOracle{},
		clock:  &testutil.MockClock{NowTime: fixedNow},
		ids:    &testutil.SequentialIDs{Prefix: "u"},
		logger: &testutil.RecordingLogger{},
	}
}

func (f *fixture) createTaskAsAgent() *CreateTaskAsAgent {
	return NewCreateTaskAsAgent(f.tasks, f.agents, f.ids, f.clock, f.logger)
}

func (f *fixture) putTask(id string, status domain.Status) *domain.Task {
	t := &domain.Task{
		ID:      id,
		Created: fixedNow.Add(-time.Hour),
		TaskFields: domain.TaskFields{
			Title:      "Task " + id,
			Status:     status,
			Priority:   domain.PriorityMedium,
			Importance: 3,
			Category:   domain.DefaultCategory,
		},
	}
	if status == domain.StatusClosed {
		done := fixedNow.Add(-time.Minute)
		t.CompletedAt = &done
	}
	f.tasks.Put(t)
	return t
}

func (f *fixture) putAgent(id, name string, skills ...domain.Skill) *domain.Agent {
	a := &domain.Agent{ID: id, Name: name, Skills: skills, Status: domain.AgentIdle, Created: fixedNow}
	f.agents.Put(a)
	return a
}
