// Package timer runs agent-owned periodic instructions against tasks.
//
// The engine keeps an arena of TimerJob records keyed by job ID. Every record gets
// one schedule goroutine, and every tick runs the same generic handler parameterised
// by the record, so restoring from the store rebuilds behaviour from data alone.
package timer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// DefaultOracleTimeout bounds one ExecuteInstruction call.
const DefaultOracleTimeout = 30 * time.Second

// Event types published by the engine.
const (
	EventStarted = "timer.started"
	EventStopped = "timer.stopped"
	EventTick    = "timer.tick"
	EventSkipped = "timer.skipped"
)

// ErrEngineClosed is returned by StartTimer after Close.
var ErrEngineClosed = errors.New("timer engine is closed")

// Deps are the collaborators of the engine.
type Deps struct {
	Timers    domain.TimerRepository
	Tasks     domain.TaskRepository
	Agents    domain.AgentRepository
	Oracle    domain.Oracle
	AddUpdate *usecase.AddUpdate
	IDs       domain.IDGenerator
	Clock     domain.Clock
	Logger    domain.Logger
	Events    domain.EventPublisher // optional
}

// Options tune the engine.
type Options struct {
	NewTicker     TickerFactory // nil = NewRealTicker
	OracleTimeout time.Duration // 0 = DefaultOracleTimeout
	SkipOverlap   bool          // skip a due tick while the previous one of the same job still runs
}

// StartTimerInput contains the parameters of a new timer job.
type StartTimerInput struct {
	AgentID         string   // Owning agent (required, needs the timer skill)
	Instruction     string   // Instruction handed to the oracle (required)
	TaskIDs         []string // Target tasks (at least one)
	IntervalSeconds int      // Tick period in seconds (> 0)
}

// RestoreReport summarises one RestoreOnBoot run.
type RestoreReport struct {
	Corrupt       []string // Record IDs that could not be decoded
	Invalid       []string // Record IDs that decoded but cannot be scheduled
	Restored      int      // Jobs scheduled by this run
	AlreadyActive int      // Jobs that already had a schedule entry
}

type entry struct {
	stop     chan struct{}
	job      domain.TimerJob
	inFlight int
	stopped  bool
}

// Engine is the Timer Engine. Construct it once with New and share it by reference.
type Engine struct {
	deps  Deps
	opts  Options
	jobs  map[string]*entry
	loops sync.WaitGroup // schedule goroutines
	ticks sync.WaitGroup // scheduled ticks in flight
	mu    sync.Mutex

	restored bool
	closed   bool
}

// New creates an engine. Call RestoreOnBoot before StartTimer or StopTimer.
func New(deps Deps, opts Options) *Engine {
	if opts.NewTicker == nil {
		opts.NewTicker = NewRealTicker
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = DefaultOracleTimeout
	}
	if deps.Logger == nil {
		deps.Logger = domain.NopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	return &Engine{
		deps: deps,
		opts: opts,
		jobs: make(map[string]*entry),
	}
}

// Restored reports whether RestoreOnBoot has completed.
func (e *Engine) Restored() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restored
}

// RestoreOnBoot schedules every persisted job that has no live entry yet.
// Undecodable or invalid records are logged and skipped. Running it again is a no-op
// for jobs already scheduled.
func (e *Engine) RestoreOnBoot(ctx context.Context) (*RestoreReport, error) {
	jobs, err := e.deps.Timers.List(ctx)
	report := &RestoreReport{}

	var corrupt *domain.CorruptRecordsError
	if errors.As(err, &corrupt) {
		report.Corrupt = slices.Clone(corrupt.IDs)
		for i, id := range corrupt.IDs {
			e.deps.Logger.Warn("", "timer", fmt.Sprintf("restore: skipping unreadable job %s: %v", id, corrupt.Errors[i]))
		}
	} else if err != nil {
		return nil, domain.Persistence("list timer jobs", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			report.Invalid = append(report.Invalid, job.ID)
			e.deps.Logger.Warn("", "timer", fmt.Sprintf("restore: skipping invalid job %s: %v", job.ID, err))
			continue
		}
		if _, ok := e.jobs[job.ID]; ok {
			report.AlreadyActive++
			continue
		}
		e.scheduleLocked(job)
		report.Restored++
		e.deps.Logger.Info(subject(job.ID), "timer", fmt.Sprintf("restored: every %ds for agent %s on %d task(s)",
			job.IntervalSeconds, job.AgentID, len(job.TaskIDs)))
	}
	e.restored = true

	e.deps.Logger.Info("", "timer", fmt.Sprintf("restore complete: %d restored, %d already active, %d corrupt, %d invalid",
		report.Restored, report.AlreadyActive, len(report.Corrupt), len(report.Invalid)))
	return report, nil
}

// StartTimer validates, persists and then schedules a new job, returning its ID.
// A failed durable write schedules nothing.
func (e *Engine) StartTimer(ctx context.Context, in StartTimerInput) (string, error) {
	if err := e.accepting(); err != nil {
		return "", err
	}

	instruction := strings.TrimSpace(in.Instruction)
	targets := normalizeTargets(in.TaskIDs)
	switch {
	case in.IntervalSeconds <= 0:
		return "", domain.ErrInvalidInterval
	case instruction == "":
		return "", domain.ErrEmptyInstruction
	case len(targets) == 0:
		return "", domain.ErrNoTargets
	}

	agent, err := shared.GetAgent(ctx, e.deps.Agents, in.AgentID)
	if err != nil {
		return "", err
	}
	if err := domain.RequireSkill(agent, domain.SkillTimer); err != nil {
		e.deps.Logger.Warn("", "skill", fmt.Sprintf("timer declined for agent %s (%s)", agent.Name, agent.ID))
		return "", err
	}

	job := domain.TimerJob{
		ID:              e.deps.IDs.NewID(),
		AgentID:         agent.ID,
		IntervalSeconds: in.IntervalSeconds,
		Instruction:     instruction,
		TaskIDs:         targets,
		Created:         e.deps.Clock.Now(),
	}
	if err := e.deps.Timers.Save(ctx, job); err != nil {
		return "", domain.Persistence("save timer job", err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrEngineClosed
	}
	e.scheduleLocked(job)
	e.mu.Unlock()

	e.deps.Logger.Info(subject(job.ID), "timer", fmt.Sprintf("started by agent %s: every %ds on %d task(s)",
		agent.ID, job.IntervalSeconds, len(job.TaskIDs)))
	e.publish(EventStarted, job.ID, map[string]any{"agent_id": job.AgentID, "interval": job.IntervalSeconds})
	return job.ID, nil
}

// StopTimer removes the live entry and the durable record.
// It reports whether a job existed; stopping an unknown job returns false and no error.
// A tick already in flight is allowed to finish.
func (e *Engine) StopTimer(ctx context.Context, jobID string) (bool, error) {
	if err := e.accepting(); err != nil {
		return false, err
	}

	e.mu.Lock()
	live := e.unscheduleLocked(jobID)
	e.mu.Unlock()

	persisted, err := e.deps.Timers.Delete(ctx, jobID)
	if err != nil {
		return live, domain.Persistence("delete timer job", err)
	}

	existed := live || persisted
	if existed {
		e.deps.Logger.Info(subject(jobID), "timer", "stopped")
		e.publish(EventStopped, jobID, nil)
	}
	return existed, nil
}

// StopAgentTimers stops every job owned by the agent and returns how many were removed.
func (e *Engine) StopAgentTimers(ctx context.Context, agentID string) (int, error) {
	if err := e.accepting(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(agentID) == "" {
		return 0, fmt.Errorf("agent id: %w", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	var stopped []string
	for id, en := range e.jobs {
		if en.job.AgentID == agentID {
			stopped = append(stopped, id)
		}
	}
	for _, id := range stopped {
		e.unscheduleLocked(id)
	}
	e.mu.Unlock()

	n, err := e.deps.Timers.DeleteByAgent(ctx, agentID)
	if err != nil {
		return len(stopped), domain.Persistence("delete agent timer jobs", err)
	}
	for _, id := range stopped {
		e.publish(EventStopped, id, map[string]any{"agent_id": agentID})
	}
	e.deps.Logger.Info("", "timer", fmt.Sprintf("stopped %d job(s) of agent %s", max(n, len(stopped)), agentID))
	return max(n, len(stopped)), nil
}

// ListTimers returns the live jobs of the agent ordered by creation time.
// An empty agent ID lists every job.
func (e *Engine) ListTimers(agentID string) []domain.TimerJob {
	e.mu.Lock()
	out := make([]domain.TimerJob, 0, len(e.jobs))
	for _, en := range e.jobs {
		if agentID == "" || en.job.AgentID == agentID {
			j := en.job
			j.TaskIDs = slices.Clone(j.TaskIDs)
			out = append(out, j)
		}
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b domain.TimerJob) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Close stops every schedule and waits for in-flight ticks to finish.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for id := range e.jobs {
		e.unscheduleLocked(id)
	}
	e.mu.Unlock()

	e.loops.Wait()
	e.ticks.Wait()
}

func (e *Engine) accepting() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.closed:
		return ErrEngineClosed
	case !e.restored:
		return domain.ErrEngineNotRestored
	}
	return nil
}

// scheduleLocked registers the job and starts its schedule goroutine. Caller holds e.mu.
func (e *Engine) scheduleLocked(job domain.TimerJob) {
	en := &entry{job: job, stop: make(chan struct{})}
	e.jobs[job.ID] = en
	t := e.opts.NewTicker(job.Interval())
	e.loops.Add(1)
	go e.loop(en, t)
}

// unscheduleLocked removes the live entry. Caller holds e.mu.
func (e *Engine) unscheduleLocked(jobID string) bool {
	en, ok := e.jobs[jobID]
	if !ok {
		return false
	}
	en.stopped = true
	close(en.stop)
	delete(e.jobs, jobID)
	return true
}

func (e *Engine) loop(en *entry, t Ticker) {
	defer e.loops.Done()
	defer t.Stop()
	for {
		select {
		case <-en.stop:
			return
		case <-t.C():
			e.fire(en)
		}
	}
}

// fire starts one scheduled tick unless the job was stopped or overlap is refused.
func (e *Engine) fire(en *entry) {
	e.mu.Lock()
	if en.stopped {
		e.mu.Unlock()
		return
	}
	if en.inFlight > 0 && e.opts.SkipOverlap {
		e.mu.Unlock()
		e.deps.Logger.Info(subject(en.job.ID), "timer", "tick skipped: previous tick still running")
		e.publish(EventSkipped, en.job.ID, map[string]any{"reason": "overlap"})
		return
	}
	en.inFlight++
	job := en.job
	e.ticks.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.ticks.Done()
		e.tick(context.Background(), job)

		e.mu.Lock()
		en.inFlight--
		e.mu.Unlock()
	}()
}

func (e *Engine) publish(typ, jobID string, data map[string]any) {
	if e.deps.Events == nil {
		return
	}
	e.deps.Events.Publish(domain.Event{
		Time:    e.deps.Clock.Now(),
		Type:    typ,
		Subject: jobID,
		Data:    data,
	})
}

// subject is the log subject of a job; the file logger gives it its own file.
func subject(jobID string) string {
	return "timer-" + jobID
}

func normalizeTargets(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
