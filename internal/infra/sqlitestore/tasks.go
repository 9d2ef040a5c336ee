package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

// taskDoc is the stored form of a task without its update log.
type taskDoc struct {
	Created time.Time `json:"created_at"`
	domain.TaskFields
}

// TaskStore implements domain.TaskRepository.
type TaskStore struct {
	s *Store
}

// Get retrieves a task by ID.
func (r *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	var raw string
	err := r.s.db.QueryRowContext(ctx, `SELECT doc FROM tasks WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	task, err := decodeTask(id, raw)
	if err != nil {
		return nil, err
	}
	if task.Updates, err = loadUpdates(ctx, r.s.db, id); err != nil {
		return nil, err
	}
	return task, nil
}

// List retrieves tasks matching the filter, oldest first.
func (r *TaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []domain.Status{domain.StatusActive, domain.StatusClosed}
	}
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	query := `SELECT id, doc FROM tasks WHERE status IN (?` + strings.Repeat(", ?", len(args)-1) + `)`

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var tasks []*domain.Task
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task, err := decodeTask(id, raw)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		if filter.Matches(task) {
			tasks = append(tasks, task)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if t.Updates, err = loadUpdates(ctx, r.s.db, t.ID); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

// Insert stores a new task, assigning an ID when it is empty.
func (r *TaskStore) Insert(ctx context.Context, task *domain.Task) error {
	id := task.ID
	if id == "" {
		id = r.s.ids.NewID()
	}
	doc, err := encodeTask(task)
	if err != nil {
		return err
	}
	err = r.s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM tasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("task %s: %w", id, domain.ErrDuplicateID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks (id, status, doc) VALUES (?, ?, ?)`, id, string(task.Status), doc); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return appendUpdates(ctx, tx, id, task.Updates)
	})
	if err != nil {
		return err
	}
	task.ID = id
	return nil
}

// Apply sets fields and appends updates in one transaction.
func (r *TaskStore) Apply(ctx context.Context, id string, change domain.TaskChange) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT doc FROM tasks WHERE id = ?`, id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		if err != nil {
			return fmt.Errorf("get task %s: %w", id, err)
		}

		if change.Fields != nil || change.Analysis != nil || change.ExpectStatus != "" {
			task, err := decodeTask(id, raw)
			if err != nil {
				return err
			}
			if err := task.Apply(domain.TaskChange{
				Fields:       change.Fields,
				Analysis:     change.Analysis,
				ExpectStatus: change.ExpectStatus,
			}); err != nil {
				return err
			}
			doc, err := encodeTask(task)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status = ?, doc = ? WHERE id = ?`, string(task.Status), doc, id); err != nil {
				return fmt.Errorf("update task: %w", err)
			}
		}
		return appendUpdates(ctx, tx, id, change.Append)
	})
}

// AppendUpdate appends one update to the task's log.
func (r *TaskStore) AppendUpdate(ctx context.Context, id string, update domain.Update) error {
	return r.Apply(ctx, id, domain.TaskChange{Append: []domain.Update{update}})
}

// EditUpdate replaces the content of one update.
func (r *TaskStore) EditUpdate(ctx context.Context, id, updateID, content string, editedAt time.Time) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT seq, body FROM task_updates WHERE task_id = ? AND id = ? ORDER BY seq LIMIT 1`, id, updateID,
		).Scan(&seq, &raw)
		if errors.Is(err, sql.ErrNoRows) {
			found, err := exists(ctx, tx, `SELECT 1 FROM tasks WHERE id = ?`, id)
			if err != nil {
				return err
			}
			if !found {
				return domain.ErrTaskNotFound
			}
			return domain.ErrUpdateNotFound
		}
		if err != nil {
			return fmt.Errorf("get update: %w", err)
		}

		var u domain.Update
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return fmt.Errorf("decode update %s: %w", updateID, err)
		}
		u.Content = content
		edited := editedAt
		u.LastEditedAt = &edited
		body, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE task_updates SET body = ? WHERE seq = ?`, string(body), seq); err != nil {
			return fmt.Errorf("update update: %w", err)
		}
		return nil
	})
}

// DeleteUpdate removes one update. Absent IDs are a no-op.
func (r *TaskStore) DeleteUpdate(ctx context.Context, id, updateID string) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM tasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrTaskNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_updates WHERE task_id = ? AND id = ?`, id, updateID); err != nil {
			return fmt.Errorf("delete update: %w", err)
		}
		return nil
	})
}

func encodeTask(t *domain.Task) (string, error) {
	b, err := json.Marshal(taskDoc{Created: t.Created, TaskFields: t.TaskFields})
	if err != nil {
		return "", fmt.Errorf("encode task: %w", err)
	}
	return string(b), nil
}

func decodeTask(id, raw string) (*domain.Task, error) {
	var doc taskDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &domain.Task{ID: id, Created: doc.Created, TaskFields: doc.TaskFields}, nil
}

func appendUpdates(ctx context.Context, tx *sql.Tx, taskID string, updates []domain.Update) error {
	for _, u := range updates {
		body, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode update: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_updates (task_id, id, body) VALUES (?, ?, ?)`, taskID, u.ID, string(body),
		); err != nil {
			return fmt.Errorf("append update: %w", err)
		}
	}
	return nil
}

func loadUpdates(ctx context.Context, q querier, taskID string) ([]domain.Update, error) {
	bodies, err := loadBodies(ctx, q, `SELECT body FROM task_updates WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("load updates of %s: %w", taskID, err)
	}
	var updates []domain.Update
	for _, b := range bodies {
		var u domain.Update
		if err := json.Unmarshal([]byte(b), &u); err != nil {
			return nil, fmt.Errorf("decode update of %s: %w", taskID, err)
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func loadBodies(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
