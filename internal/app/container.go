// Package app provides the dependency injection container for the application.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/infra/config"
	"github.com/dorae/dorae/internal/infra/crypto"
	"github.com/dorae/dorae/internal/infra/gitstore"
	"github.com/dorae/dorae/internal/infra/idgen"
	"github.com/dorae/dorae/internal/infra/jsonstore"
	"github.com/dorae/dorae/internal/infra/logging"
	"github.com/dorae/dorae/internal/infra/oracle"
	"github.com/dorae/dorae/internal/infra/sqlitestore"
	"github.com/dorae/dorae/internal/server"
	"github.com/dorae/dorae/internal/timer"
	"github.com/dorae/dorae/internal/usecase"
)

// Store is an opened store driver.
type Store struct {
	usecase.StoreSet
	Git    *gitstore.Store // Set for the git driver only
	Driver string
	Path   string
	close  func() error
}

// Close releases the store's resources.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore opens the store sc describes. getenv resolves the git store key.
func OpenStore(sc domain.StoreConfig, getenv func(string) string, ids domain.IDGenerator) (*Store, error) {
	driver, path := sc.Driver, sc.Path
	if driver == "" {
		driver = domain.StoreJSON
	}
	st := &Store{Driver: driver, Path: path}
	switch driver {
	case domain.StoreJSON:
		js := jsonstore.New(path, ids)
		st.StoreSet = usecase.StoreSet{Tasks: js.Tasks(), Agents: js.Agents(), Timers: js.Timers(), Init: js}
	case domain.StoreSQLite:
		db, err := sqlitestore.Open(path, ids)
		if err != nil {
			return nil, err
		}
		st.StoreSet = usecase.StoreSet{Tasks: db.Tasks(), Agents: db.Agents(), Timers: db.Timers(), Init: db}
		st.close = db.Close
	case domain.StoreGit:
		gs, err := gitstore.Open(path, sc.Namespace, ids)
		if err != nil {
			return nil, err
		}
		if sc.KeyEnv != "" {
			key := getenv(sc.KeyEnv)
			if key == "" {
				return nil, fmt.Errorf("%w: store key variable %s is not set", domain.ErrInvalidInput, sc.KeyEnv)
			}
			sealer, err := crypto.NewSealer(key)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, sc.KeyEnv, err)
			}
			gs.WithSealer(sealer)
		}
		st.StoreSet = usecase.StoreSet{Tasks: gs.Tasks(), Agents: gs.Agents(), Timers: gs.Timers(), Init: gs}
		st.Git = gs
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidInput, driver)
	}
	return st, nil
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Tasks         domain.TaskRepository
	Agents        domain.AgentRepository
	Timers        domain.TimerRepository
	StoreInit     domain.StoreInitializer
	Oracle        domain.Oracle
	Clock         domain.Clock
	IDs           domain.IDGenerator
	Logger        domain.Logger
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager

	// Pointer fields
	Config  *domain.Config
	Store   *Store
	HTTPLog *slog.Logger
	engine  *timer.Engine
	broker  *server.Broker
	closers []func() error

	WorkDir string
}

// New creates a Container for the working directory dir.
// Configuration errors fall back to defaults and are recorded as warnings.
func New(dir string) (*Container, error) {
	loader := config.NewLoader(dir)
	cfg, err := loader.Load()
	if err != nil {
		cfg = domain.NewDefaultConfig(loader.DataDir())
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("config: %v (using defaults)", err))
	}

	ids := idgen.UUID{}
	store, err := OpenStore(cfg.Store, os.Getenv, ids)
	if err != nil {
		return nil, err
	}

	orc, err := oracle.New(oracle.ConfigFrom(cfg.Oracle, os.Getenv))
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("oracle: %v (AI features disabled)", err))
		orc = oracle.Unconfigured{}
	}

	logger := logging.New(cfg.Log.Dir, logging.ParseLevel(cfg.Log.Level), logging.WithConsole(os.Stderr))

	c := &Container{
		Tasks:         store.Tasks,
		Agents:        store.Agents,
		Timers:        store.Timers,
		StoreInit:     store.Init,
		Oracle:        orc,
		Clock:         domain.RealClock{},
		IDs:           ids,
		Logger:        logger,
		ConfigLoader:  loader,
		ConfigManager: config.NewManager(dir),
		Config:        cfg,
		Store:         store,
		HTTPLog: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logging.ParseLevel(cfg.Log.Level),
		})),
		closers: []func() error{store.Close, logger.Close},
		WorkDir: dir,
	}
	return c, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(cfg *domain.Config, set usecase.StoreSet, orc domain.Oracle, clock domain.Clock, ids domain.IDGenerator, logger domain.Logger) *Container {
	if cfg == nil {
		cfg = domain.NewDefaultConfig(os.TempDir())
	}
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Container{
		Tasks:     set.Tasks,
		Agents:    set.Agents,
		Timers:    set.Timers,
		StoreInit: set.Init,
		Oracle:    orc,
		Clock:     clock,
		IDs:       ids,
		Logger:    logger,
		Config:    cfg,
		Store:     &Store{StoreSet: set},
		HTTPLog:   slog.New(slog.DiscardHandler),
	}
}

// Close stops the timer engine and releases the store and log files.
func (c *Container) Close() error {
	if c.engine != nil {
		c.engine.Close()
	}
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broker returns the shared event broker.
func (c *Container) Broker() *server.Broker {
	if c.broker == nil {
		c.broker = server.NewBroker()
	}
	return c.broker
}

// TimerEngine returns the shared timer engine. It is not restored yet.
func (c *Container) TimerEngine() *timer.Engine {
	if c.engine == nil {
		c.engine = timer.New(timer.Deps{
			Timers:    c.Timers,
			Tasks:     c.Tasks,
			Agents:    c.Agents,
			Oracle:    c.Oracle,
			AddUpdate: c.AddUpdateUseCase(),
			IDs:       c.IDs,
			Clock:     c.Clock,
			Logger:    c.Logger,
			Events:    c.Broker(),
		}, timer.Options{
			OracleTimeout: time.Duration(c.Config.Timer.OracleTimeout),
			SkipOverlap:   c.Config.Timer.SkipOverlap,
		})
	}
	return c.engine
}

// Server initializes the store, restores persisted timers and returns the HTTP server.
func (c *Container) Server(ctx context.Context) (*server.Server, *timer.RestoreReport, error) {
	if err := c.StoreInit.Initialize(); err != nil {
		return nil, nil, domain.Persistence("initialize store", err)
	}
	engine := c.TimerEngine()
	report, err := engine.RestoreOnBoot(ctx)
	if err != nil {
		return nil, nil, err
	}
	srv := server.New(server.Deps{
		Engine:     engine,
		CreateTask: c.CreateTaskAsAgentUseCase(),
		Chat:       c.ChatUseCase(),
		CloseTask:  c.CloseTaskUseCase(),
		ReopenTask: c.ReopenTaskUseCase(),
		DeleteTask: c.DeleteTaskUseCase(),
		EmptyTrash: c.EmptyTrashUseCase(),
		Broker:     c.Broker(),
		Logger:     c.HTTPLog,
	})
	return srv, report, nil
}

// DataDir returns the directory holding the default store and logs.
func (c *Container) DataDir() string {
	return config.NewLoader(c.WorkDir).DataDir()
}

// OpenTarget opens a second store, used as a migration destination.
func (c *Container) OpenTarget(driver, path string) (*Store, error) {
	if path == "" {
		path = domain.DefaultStorePath(c.DataDir(), driver)
	}
	sc := c.Config.Store
	sc.Driver, sc.Path = driver, path
	return OpenStore(sc, os.Getenv, c.IDs)
}

// UseCase factory methods

// NewTaskUseCase returns a new NewTask use case.
func (c *Container) NewTaskUseCase() *usecase.NewTask {
	return usecase.NewNewTask(c.Tasks, c.IDs, c.Clock, c.Logger)
}

// ListTasksUseCase returns a new ListTasks use case.
func (c *Container) ListTasksUseCase() *usecase.ListTasks {
	return usecase.NewListTasks(c.Tasks)
}

// ListTrashUseCase returns a new ListTrash use case.
func (c *Container) ListTrashUseCase() *usecase.ListTrash {
	return usecase.NewListTrash(c.Tasks)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.Tasks)
}

// EditTaskUseCase returns a new EditTask use case.
func (c *Container) EditTaskUseCase() *usecase.EditTask {
	return usecase.NewEditTask(c.Tasks, c.IDs, c.Clock, c.Logger)
}

// CloseTaskUseCase returns a new CloseTask use case.
func (c *Container) CloseTaskUseCase() *usecase.CloseTask {
	return usecase.NewCloseTask(c.Tasks, c.IDs, c.Clock, c.Logger)
}

// ReopenTaskUseCase returns a new ReopenTask use case.
func (c *Container) ReopenTaskUseCase() *usecase.ReopenTask {
	return usecase.NewReopenTask(c.Tasks, c.IDs, c.Clock, c.Logger)
}

// DeleteTaskUseCase returns a new DeleteTask use case.
func (c *Container) DeleteTaskUseCase() *usecase.DeleteTask {
	return usecase.NewDeleteTask(c.Tasks, c.IDs, c.Clock, c.Logger)
}

// EmptyTrashUseCase returns a new EmptyTrash use case.
func (c *Container) EmptyTrashUseCase() *usecase.EmptyTrash {
	return usecase.NewEmptyTrash(c.Tasks, c.IDs, c.Clock, c.Logger)
}

// AddUpdateUseCase returns a new AddUpdate use case.
func (c *Container) AddUpdateUseCase() *usecase.AddUpdate {
	return usecase.NewAddUpdate(c.Tasks, c.IDs, c.Clock, c.Logger)
}

// EditUpdateUseCase returns a new EditUpdate use case.
func (c *Container) EditUpdateUseCase() *usecase.EditUpdate {
	return usecase.NewEditUpdate(c.Tasks, c.Clock)
}

// DeleteUpdateUseCase returns a new DeleteUpdate use case.
func (c *Container) DeleteUpdateUseCase() *usecase.DeleteUpdate {
	return usecase.NewDeleteUpdate(c.Tasks)
}

// AnalyzeTaskUseCase returns a new AnalyzeTask use case.
func (c *Container) AnalyzeTaskUseCase() *usecase.AnalyzeTask {
	return usecase.NewAnalyzeTask(c.Tasks, c.Oracle, c.IDs, c.Clock, c.Logger)
}

// CreateTaskAsAgentUseCase returns a new CreateTaskAsAgent use case.
func (c *Container) CreateTaskAsAgentUseCase() *usecase.CreateTaskAsAgent {
	return usecase.NewCreateTaskAsAgent(c.Tasks, c.Agents, c.IDs, c.Clock, c.Logger)
}

// CreateTasksFromFileUseCase returns a new CreateTasksFromFile use case.
func (c *Container) CreateTasksFromFileUseCase() *usecase.CreateTasksFromFile {
	return usecase.NewCreateTasksFromFile(c.Agents, c.NewTaskUseCase(), c.CreateTaskAsAgentUseCase())
}

// ListAgentCreatedTasksUseCase returns a new ListAgentCreatedTasks use case.
func (c *Container) ListAgentCreatedTasksUseCase() *usecase.ListAgentCreatedTasks {
	return usecase.NewListAgentCreatedTasks(c.Tasks, c.Agents)
}

// ChatUseCase returns a new Chat use case.
func (c *Container) ChatUseCase() *usecase.Chat {
	return usecase.NewChat(c.Tasks, c.Agents, c.Oracle, c.CreateTaskAsAgentUseCase(), c.Logger)
}

// CreateAgentUseCase returns a new CreateAgent use case.
func (c *Container) CreateAgentUseCase() *usecase.CreateAgent {
	return usecase.NewCreateAgent(c.Agents, c.Clock, c.Logger)
}

// ShowAgentUseCase returns a new ShowAgent use case.
func (c *Container) ShowAgentUseCase() *usecase.ShowAgent {
	return usecase.NewShowAgent(c.Agents)
}

// ListAgentsUseCase returns a new ListAgents use case.
func (c *Container) ListAgentsUseCase() *usecase.ListAgents {
	return usecase.NewListAgents(c.Agents)
}

// EditAgentUseCase returns a new EditAgent use case.
func (c *Container) EditAgentUseCase() *usecase.EditAgent {
	return usecase.NewEditAgent(c.Agents, c.Logger)
}

// DeleteAgentUseCase returns a new DeleteAgent use case.
func (c *Container) DeleteAgentUseCase() *usecase.DeleteAgent {
	return usecase.NewDeleteAgent(c.Agents, c.Logger)
}

// AddAgentNoteUseCase returns a new AddAgentNote use case.
func (c *Container) AddAgentNoteUseCase() *usecase.AddAgentNote {
	return usecase.NewAddAgentNote(c.Agents, c.IDs, c.Clock)
}

// EditAgentNoteUseCase returns a new EditAgentNote use case.
func (c *Container) EditAgentNoteUseCase() *usecase.EditAgentNote {
	return usecase.NewEditAgentNote(c.Agents, c.Clock)
}

// DeleteAgentNoteUseCase returns a new DeleteAgentNote use case.
func (c *Container) DeleteAgentNoteUseCase() *usecase.DeleteAgentNote {
	return usecase.NewDeleteAgentNote(c.Agents)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

// ShowLogsUseCase returns a new ShowLogs use case.
func (c *Container) ShowLogsUseCase() *usecase.ShowLogs {
	return usecase.NewShowLogs(c.Config.Log.Dir)
}

// MigrateStoreUseCase returns a MigrateStore use case copying into dest.
func (c *Container) MigrateStoreUseCase(dest *Store) *usecase.MigrateStore {
	return usecase.NewMigrateStore(c.Store.StoreSet, dest.StoreSet)
}

var _ io.Closer = (*Store)(nil)
