package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/testutil"
	"github.com/dorae/dorae/internal/usecase"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	c      *app.Container
	tasks  *testutil.MockTaskRepository
	agents *testutil.MockAgentRepository
	timers *testutil.MockTimerRepository
	init   *testutil.MockStoreInitializer
	oracle *testutil.MockOracle
}

// newTestEnv creates a container backed by in-memory mocks.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tasks:  testutil.NewMockTaskRepository(),
		agents: testutil.NewMockAgentRepository(),
		timers: testutil.NewMockTimerRepository(),
		init:   &testutil.MockStoreInitializer{},
		oracle: &testutil.MockOracle{},
	}
	cfg := domain.NewDefaultConfig(t.TempDir())
	env.c = app.NewWithDeps(cfg,
		usecase.StoreSet{Tasks: env.tasks, Agents: env.agents, Timers: env.timers, Init: env.init},
		env.oracle,
		&testutil.MockClock{NowTime: testNow},
		&testutil.SequentialIDs{Prefix: "u"},
		&testutil.RecordingLogger{},
	)
	env.c.WorkDir = t.TempDir()
	return env
}

// run executes the root command with args and returns stdout.
func (env *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(env.c, "test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (env *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := env.run(t, args...)
	require.NoError(t, err, out)
	return out
}
