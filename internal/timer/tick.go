package timer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase"
)

// Outcome is the result of one target within a tick.
type Outcome string

const (
	OutcomeAppended Outcome = "appended"  // timer_execution update written
	OutcomeNoAction Outcome = "no_action" // oracle returned nothing
	OutcomeMissing  Outcome = "missing"   // target task does not exist
	OutcomeSkipped  Outcome = "skipped"   // oracle failure or an unsupported action
	OutcomeFailed   Outcome = "failed"    // store error while loading or appending
)

// TargetResult is the outcome for one target task.
type TargetResult struct {
	Err      error
	TaskID   string
	UpdateID string
	Outcome  Outcome
}

// TickReport describes one tick of a job.
type TickReport struct {
	Started time.Time
	JobID   string
	Results []TargetResult
}

// Count returns how many targets ended with the outcome.
func (r *TickReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// RunTick runs one tick of a live job synchronously.
func (e *Engine) RunTick(ctx context.Context, jobID string) (*TickReport, error) {
	e.mu.Lock()
	en, ok := e.jobs[jobID]
	var job domain.TimerJob
	if ok {
		job = en.job
	}
	e.mu.Unlock()
	if !ok {
		return nil, domain.ErrTimerNotFound
	}
	return e.tick(ctx, job), nil
}

// tick is the generic handler shared by every job.
// Targets run concurrently and never affect each other.
func (e *Engine) tick(ctx context.Context, job domain.TimerJob) *TickReport {
	report := &TickReport{
		JobID:   job.ID,
		Started: e.deps.Clock.Now(),
		Results: make([]TargetResult, len(job.TaskIDs)),
	}
	log := subject(job.ID)

	skills, err := e.agentSkills(ctx, job)
	if err != nil {
		e.deps.Logger.Warn(log, "timer", fmt.Sprintf("tick skipped: %v", err))
		for i, id := range job.TaskIDs {
			report.Results[i] = TargetResult{TaskID: id, Outcome: OutcomeSkipped, Err: err}
		}
		e.publishTick(report)
		return report
	}

	var wg sync.WaitGroup
	for i, id := range job.TaskIDs {
		wg.Go(func() {
			report.Results[i] = e.runTarget(ctx, job, id, skills)
		})
	}
	wg.Wait()

	e.deps.Logger.Info(log, "timer", fmt.Sprintf("tick: %d appended, %d no action, %d missing, %d skipped, %d failed",
		report.Count(OutcomeAppended), report.Count(OutcomeNoAction), report.Count(OutcomeMissing),
		report.Count(OutcomeSkipped), report.Count(OutcomeFailed)))
	e.publishTick(report)
	return report
}

// agentSkills returns the skills surfaced to the oracle.
// A deleted agent does not stop the job; a present agent without the timer skill does.
// When the agent cannot be loaded the gate is unknown, so the tick is skipped
// and the next one tries again.
func (e *Engine) agentSkills(ctx context.Context, job domain.TimerJob) ([]domain.Skill, error) {
	agent, err := e.deps.Agents.Get(ctx, job.AgentID)
	if err != nil {
		return nil, domain.Persistence("load agent "+job.AgentID, err)
	}
	if agent == nil {
		e.deps.Logger.Debug(subject(job.ID), "timer", fmt.Sprintf("agent %s no longer exists", job.AgentID))
		return nil, nil
	}
	if err := domain.RequireSkill(agent, domain.SkillTimer); err != nil {
		return nil, err
	}
	return domain.EnabledSkills(agent), nil
}

func (e *Engine) runTarget(ctx context.Context, job domain.TimerJob, taskID string, skills []domain.Skill) TargetResult {
	log := subject(job.ID)
	res := TargetResult{TaskID: taskID}

	task, err := e.deps.Tasks.Get(ctx, taskID)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, domain.Persistence("load task", err)
		e.deps.Logger.Warn(log, "timer", fmt.Sprintf("task %s: %v", taskID, res.Err))
		return res
	}
	if task == nil {
		res.Outcome = OutcomeMissing
		e.deps.Logger.Info(log, "timer", fmt.Sprintf("task %s not found, skipping", taskID))
		return res
	}
	if task.Status.IsTerminal() {
		res.Outcome = OutcomeSkipped
		e.deps.Logger.Info(log, "timer", fmt.Sprintf("task %s is archived, skipping", taskID))
		return res
	}

	now := e.deps.Clock.Now()
	action, err := e.decide(ctx, job.Instruction, task.Snapshot(now, skills), now)
	if err != nil {
		res.Outcome, res.Err = OutcomeSkipped, domain.OracleFailure("execute instruction", err)
		e.deps.Logger.Warn(log, "oracle", fmt.Sprintf("task %s: %v", taskID, err))
		return res
	}
	if action == nil {
		res.Outcome = OutcomeNoAction
		e.deps.Logger.Debug(log, "oracle", fmt.Sprintf("task %s: no action", taskID))
		return res
	}
	content := strings.TrimSpace(action.Content)
	if action.Kind != domain.ActionAddUpdate || content == "" {
		res.Outcome = OutcomeSkipped
		res.Err = domain.OracleFailure("execute instruction", fmt.Errorf("unsupported action %q", action.Kind))
		e.deps.Logger.Warn(log, "oracle", fmt.Sprintf("task %s: %v", taskID, res.Err))
		return res
	}

	out, err := e.deps.AddUpdate.Execute(ctx, usecase.AddUpdateInput{
		TaskID:     taskID,
		Content:    content,
		Type:       domain.UpdateTimerExecution,
		Provenance: &domain.Provenance{AgentID: job.AgentID, Skill: domain.SkillTimer},
	})
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		e.deps.Logger.Error(log, "timer", fmt.Sprintf("task %s: %v", taskID, err))
		return res
	}

	res.Outcome, res.UpdateID = OutcomeAppended, out.Update.ID
	e.deps.Logger.Info(log, "timer", fmt.Sprintf("task %s: update %s appended", taskID, out.Update.ID))
	return res
}

// decide calls the oracle and gives up after the oracle timeout even if the
// oracle ignores its context.
func (e *Engine) decide(ctx context.Context, instruction string, snap domain.TaskSnapshot, now time.Time) (*domain.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.OracleTimeout)
	defer cancel()

	type result struct {
		action *domain.Action
		err    error
	}
	done := make(chan result, 1)
	go func() {
		a, err := e.deps.Oracle.ExecuteInstruction(ctx, instruction, snap, now)
		done <- result{a, err}
	}()

	select {
	case r := <-done:
		return r.action, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", e.opts.OracleTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

func (e *Engine) publishTick(r *TickReport) {
	e.publish(EventTick, r.JobID, map[string]any{
		"appended":  r.Count(OutcomeAppended),
		"no_action": r.Count(OutcomeNoAction),
		"missing":   r.Count(OutcomeMissing),
		"skipped":   r.Count(OutcomeSkipped),
		"failed":    r.Count(OutcomeFailed),
	})
}
