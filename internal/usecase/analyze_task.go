package usecase

import (
	"context"
	"fmt"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// AnalyzeTaskInput contains the parameters for analyzing a task.
type AnalyzeTaskInput struct {
	TaskID string // Task ID (required)
}

// AnalyzeTaskOutput contains the result of an analysis.
type AnalyzeTaskOutput struct {
	Task     *domain.Task     // The task, with Analysis set when Analyzed
	Analysis *domain.Analysis // The stored analysis (nil when not Analyzed)
	Analyzed bool             // False when the oracle produced nothing
}

// AnalyzeTask asks the oracle for structured feedback and stores it on the task.
type AnalyzeTask struct {
	tasks  domain.TaskRepository
	oracle domain.Oracle
	ids    domain.IDGenerator
	clock  domain.Clock
	logger domain.Logger
}

// NewAnalyzeTask creates a new AnalyzeTask use case.
func NewAnalyzeTask(tasks domain.TaskRepository, oracle domain.Oracle, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *AnalyzeTask {
	return &AnalyzeTask{
		tasks:  tasks,
		oracle: oracle,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// Execute runs the analysis. An oracle failure or empty answer leaves the task
// unchanged and is reported as Analyzed=false rather than as an error.
func (uc *AnalyzeTask) Execute(ctx context.Context, in AnalyzeTaskInput) (*AnalyzeTaskOutput, error) {
	task, err := shared.GetTask(ctx, uc.tasks, in.TaskID)
	if err != nil {
		return nil, err
	}

	analysis, err := uc.oracle.Analyze(ctx, task.Title, task.Updates)
	if err != nil || analysis == nil {
		if err != nil && uc.logger != nil {
			uc.logger.Warn(task.ID, "oracle", fmt.Sprintf("analysis failed: %v", err))
		}
		return &AnalyzeTaskOutput{Task: task}, nil
	}

	now := uc.clock.Now()
	stored := *analysis
	stored.AnalyzedAt = now
	if stored.Importance == 0 && stored.Priority != "" {
		stored.Importance = stored.Priority.Importance()
	}
	content := stored.Summary
	if content == "" {
		content = "AI analysis completed"
	}
	u := newUpdate(uc.ids, now, domain.UpdateAIAnalysis, content, nil)

	// Only the analysis is written: the oracle call may be slow and the
	// task's lifecycle can move on meanwhile.
	if err := uc.tasks.Apply(ctx, task.ID, domain.TaskChange{Analysis: &stored, Append: []domain.Update{u}}); err != nil {
		return nil, domain.Persistence("save analysis", err)
	}
	if fresh, err := uc.tasks.Get(ctx, task.ID); err == nil && fresh != nil {
		task = fresh
	} else {
		task.Analysis = &stored
		task.UpdatedAt = now
		task.Updates = append(task.Updates, u)
	}

	if uc.logger != nil {
		uc.logger.Info(task.ID, "oracle", "analysis stored")
	}
	return &AnalyzeTaskOutput{Task: task, Analysis: &stored, Analyzed: true}, nil
}
