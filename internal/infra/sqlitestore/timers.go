package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dorae/dorae/internal/domain"
)

// TimerStore implements domain.TimerRepository.
type TimerStore struct {
	s *Store
}

// Save inserts or replaces a job.
func (r *TimerStore) Save(ctx context.Context, job domain.TimerJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal timer %s: %w", job.ID, err)
	}
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO timers (id, agent_id, body) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET agent_id = excluded.agent_id, body = excluded.body`,
		job.ID, job.AgentID, string(body))
	if err != nil {
		return fmt.Errorf("save timer %s: %w", job.ID, err)
	}
	return nil
}

// Get retrieves a job by ID.
func (r *TimerStore) Get(ctx context.Context, id string) (*domain.TimerJob, error) {
	var raw string
	err := r.s.db.QueryRowContext(ctx, `SELECT body FROM timers WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get timer %s: %w", id, err)
	}
	job, err := decodeTimer(id, raw)
	if err != nil {
		return nil, fmt.Errorf("decode timer %s: %w", id, err)
	}
	return &job, nil
}

// List returns every decodable job ordered by creation time.
// Undecodable rows are reported in a *domain.CorruptRecordsError.
func (r *TimerStore) List(ctx context.Context) ([]domain.TimerJob, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT id, body FROM timers`)
	if err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		jobs    []domain.TimerJob
		corrupt domain.CorruptRecordsError
	)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		job, err := decodeTimer(id, raw)
		if err != nil {
			corrupt.Add(id, err)
			continue
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(jobs, func(a, b domain.TimerJob) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return jobs, corrupt.OrNil()
}

// Delete removes a job.
func (r *TimerStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.s.db.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete timer %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByAgent removes every job owned by the agent.
func (r *TimerStore) DeleteByAgent(ctx context.Context, agentID string) (int, error) {
	res, err := r.s.db.ExecContext(ctx, `DELETE FROM timers WHERE agent_id = ?`, agentID)
	if err != nil {
		return 0, fmt.Errorf("delete timers of %s: %w", agentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func decodeTimer(id, raw string) (domain.TimerJob, error) {
	var job domain.TimerJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, err
	}
	if job.ID == "" {
		job.ID = id
	}
	if job.ID != id {
		return job, fmt.Errorf("job_id %q does not match row", job.ID)
	}
	return job, nil
}
