package domain

import (
	"strings"
	"time"
)

// TimerJob is the persisted specification of a periodic, agent-owned instruction.
// It is both the unit of durable storage and of live scheduling.
type TimerJob struct {
	Created         time.Time `json:"created_at" yaml:"created_at"`
	ID              string    `json:"job_id" yaml:"job_id"`
	AgentID         string    `json:"agent_id" yaml:"agent_id"`
	Instruction     string    `json:"instruction" yaml:"instruction"`
	TaskIDs         []string  `json:"task_ids" yaml:"task_ids"`
	IntervalSeconds int       `json:"interval" yaml:"interval"`
}

// Interval returns the tick period.
func (j TimerJob) Interval() time.Duration {
	return time.Duration(j.IntervalSeconds) * time.Second
}

// Validate checks the fields required to schedule the job.
func (j TimerJob) Validate() error {
	if j.IntervalSeconds <= 0 {
		return ErrInvalidInterval
	}
	if strings.TrimSpace(j.Instruction) == "" {
		return ErrEmptyInstruction
	}
	if len(j.TaskIDs) == 0 {
		return ErrNoTargets
	}
	if j.ID == "" || j.AgentID == "" {
		return ErrInvalidInput
	}
	return nil
}
